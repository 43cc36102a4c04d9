package ml

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FormGroups hardens the fuzzy partition into disjoint groups of balanced size.
// Each entity joins the group it has the greatest membership for,
// then members are moved from overflowing groups to their next best group
// and into groups below the minimum size, until every group has between
// floor(n/k) and ceil(n/k) members.
// Rows that cannot be matched to a group are returned as orphans.
func FormGroups(matrix model.Matrix, centers []model.Center) ([]*model.Group, model.Matrix, error) {
	groups := make([]*model.Group, len(centers))
	index := make(map[int]*model.Group, len(centers))
	for i, c := range centers {
		g := model.NewGroup(c)
		groups[i] = g
		index[c.ID] = g
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].ID < groups[j].ID
	})

	orphans := make(model.Matrix, 0)
	for _, row := range matrix {
		id := row.Best()
		g, ok := index[id]
		if !ok {
			log.Warn().
				Err(OrphanMemberErr).
				Int("entity", row.Entity.ID).
				Int("group", id).
				Msg("dropping member without group")
			orphans = append(orphans, row)
			continue
		}
		g.Add(row)
	}

	if len(groups) == 0 {
		return groups, orphans, nil
	}

	n := len(matrix) - len(orphans)
	k := len(groups)
	minSize := n / k
	maxSize := (n + k - 1) / k

	for _, g := range groups {
		g.Sort()
	}

	if err := drain(groups, minSize, maxSize); err != nil {
		return nil, orphans, err
	}
	if err := fill(groups, minSize); err != nil {
		return nil, orphans, err
	}

	for _, g := range groups {
		g.Sort()
	}
	return groups, orphans, nil
}

// drain moves the least confident members out of the groups exceeding maxSize.
func drain(groups []*model.Group, minSize, maxSize int) error {
	for _, g := range groups {
		for g.Size() > maxSize {
			member := g.Members[0]
			dest := destination(member, g, groups, minSize, maxSize)
			if dest == nil {
				return fmt.Errorf("no destination for entity %d of group %d [min=%d,max=%d]: %w",
					member.Entity.ID, g.ID, minSize, maxSize, RedistributionExhaustedErr)
			}
			g.Remove(0)
			dest.Add(member)
			dest.Sort()
			log.Debug().
				Int("entity", member.Entity.ID).
				Int("from", g.ID).
				Int("to", dest.ID).
				Msg("move overflowing member")
		}
	}
	return nil
}

// destination picks the group the member should move to out of the given group.
// Candidates are ranked by the member's weight for them.
// The first candidate below minSize wins, otherwise, once all groups reached minSize,
// the first candidate below maxSize.
func destination(member *model.Membership, from *model.Group, groups []*model.Group, minSize, maxSize int) *model.Group {
	candidates := make([]*model.Group, 0, len(groups)-1)
	for _, g := range groups {
		if g != from {
			candidates = append(candidates, g)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return member.Weight(candidates[i].ID).Cmp(member.Weight(candidates[j].ID)) > 0
	})

	for _, c := range candidates {
		if c.Size() < minSize {
			return c
		}
	}
	for _, g := range groups {
		if g.Size() < minSize {
			return nil
		}
	}
	for _, c := range candidates {
		if c.Size() < maxSize {
			return c
		}
	}
	return nil
}

// fill moves members into the groups below minSize out of the groups above it,
// picking the member with the greatest weight for the needy group.
func fill(groups []*model.Group, minSize int) error {
	for {
		var needy *model.Group
		for _, g := range groups {
			if g.Size() < minSize {
				needy = g
				break
			}
		}
		if needy == nil {
			return nil
		}

		var donor *model.Group
		var pick int
		var best *apd.Decimal
		for _, g := range groups {
			if g == needy || g.Size() <= minSize {
				continue
			}
			for i, m := range g.Members {
				w := m.Weight(needy.ID)
				if best == nil || w.Cmp(best) > 0 {
					donor = g
					pick = i
					best = w
				}
			}
		}
		if donor == nil {
			return fmt.Errorf("no donor for group %d [size=%d,min=%d]: %w",
				needy.ID, needy.Size(), minSize, RedistributionExhaustedErr)
		}
		member := donor.Remove(pick)
		needy.Add(member)
		needy.Sort()
		log.Debug().
			Int("entity", member.Entity.ID).
			Int("from", donor.ID).
			Int("to", needy.ID).
			Msg("move member to under-sized group")
	}
}

// Result is the outcome of a clustering run.
type Result struct {
	ID         uuid.UUID      `json:"id"`
	State      State          `json:"state"`
	Iterations int            `json:"iterations"`
	Objective  *apd.Decimal   `json:"objective"`
	Centers    []model.Center `json:"centers"`
	Groups     []*model.Group `json:"groups"`
	Orphans    model.Matrix   `json:"orphans"`
}

// Cluster builds the model for the population and forms the balanced groups.
func Cluster(population []model.Entity, cfg Config, observers ...Observer) (Result, error) {
	m, err := BuildModel(population, cfg, observers...)
	if err != nil {
		return Result{}, err
	}
	groups, orphans, err := FormGroups(m.Matrix(), m.Centers())
	if err != nil {
		return Result{}, fmt.Errorf("could not form groups for run %s: %w", m.ID(), err)
	}
	return Result{
		ID:         m.ID(),
		State:      m.State(),
		Iterations: m.Iterations(),
		Objective:  m.Objective(),
		Centers:    m.Centers(),
		Groups:     groups,
		Orphans:    orphans,
	}, nil
}
