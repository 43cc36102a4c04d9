package model

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
)

// Entity is a member of the population to be grouped.
// It is created once out of the input records and never mutated.
type Entity struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Features math.Vector `json:"features"`
}

// NewEntity creates a new entity out of float features.
func NewEntity(id int, name string, features ...float64) (Entity, error) {
	v, err := math.NewVector(features...)
	if err != nil {
		return Entity{}, fmt.Errorf("could not create entity %d: %w", id, err)
	}
	return Entity{
		ID:       id,
		Name:     name,
		Features: v,
	}, nil
}

// Dim returns the number of features of the entity.
func (e Entity) Dim() int {
	return len(e.Features)
}

// Membership pairs an entity with its membership weights, one per cluster.
type Membership struct {
	Entity  Entity      `json:"entity"`
	Weights math.Vector `json:"weights"`
}

// Weight returns the membership weight for the cluster with the given 1-based id.
func (m *Membership) Weight(id int) *apd.Decimal {
	if id < 1 || id > len(m.Weights) {
		return new(apd.Decimal)
	}
	return m.Weights[id-1]
}

// Best returns the 1-based id of the cluster with the strictly greatest weight.
// On ties the lowest id wins.
func (m *Membership) Best() int {
	best := 0
	for i, w := range m.Weights {
		if best == 0 || w.Cmp(m.Weights[best-1]) > 0 {
			best = i + 1
		}
	}
	return best
}

// Matrix is the membership matrix, one row per entity in input order.
type Matrix []*Membership

// Clone creates a deep copy of the matrix weights. Entities are shared.
func (mm Matrix) Clone() Matrix {
	c := make(Matrix, len(mm))
	for i, m := range mm {
		c[i] = &Membership{
			Entity:  m.Entity,
			Weights: m.Weights.Clone(),
		}
	}
	return c
}

// Column returns the weights of all entities for the cluster with the given 1-based id.
func (mm Matrix) Column(id int) math.Vector {
	v := make(math.Vector, len(mm))
	for i, m := range mm {
		v[i] = m.Weight(id)
	}
	return v
}

// Center is a cluster centroid.
type Center struct {
	ID     int         `json:"id"`
	Vector math.Vector `json:"vector"`
}

func (c Center) String() string {
	return fmt.Sprintf("%d:%v", c.ID, c.Vector)
}
