package model

import (
	"sort"

	"github.com/drakos74/fuzzy-group/internal/math"
)

// Group is a disjoint set of entities formed out of the fuzzy partition.
type Group struct {
	ID       int           `json:"id"`
	Centroid math.Vector   `json:"centroid"`
	Members  []*Membership `json:"members"`
}

// NewGroup creates an empty group for the given center.
func NewGroup(center Center) *Group {
	return &Group{
		ID:       center.ID,
		Centroid: center.Vector.Clone(),
		Members:  make([]*Membership, 0),
	}
}

// Size returns the number of members.
func (g *Group) Size() int {
	return len(g.Members)
}

// Add appends the member to the group.
func (g *Group) Add(m *Membership) {
	g.Members = append(g.Members, m)
}

// Remove removes the member at the given index and returns it.
func (g *Group) Remove(i int) *Membership {
	m := g.Members[i]
	g.Members = append(g.Members[:i], g.Members[i+1:]...)
	return m
}

// Sort orders the members ascending by their weight for this group.
// Members with equal weights keep their relative order.
func (g *Group) Sort() {
	sort.SliceStable(g.Members, func(i, j int) bool {
		return g.Members[i].Weight(g.ID).Cmp(g.Members[j].Weight(g.ID)) < 0
	})
}

// IDs returns the entity ids of the members.
func (g *Group) IDs() []int {
	ids := make([]int, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.Entity.ID
	}
	return ids
}
