package ml

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func centersOf(k int) []model.Center {
	cc := make([]model.Center, k)
	for i := range cc {
		cc[i] = model.Center{ID: i + 1, Vector: math.MustVector(float64(i))}
	}
	return cc
}

func matrixOf(t *testing.T, weights ...[]float64) model.Matrix {
	mm := make(model.Matrix, len(weights))
	for i, w := range weights {
		e, err := model.NewEntity(i+1, fmt.Sprintf("e%d", i+1), float64(i))
		require.NoError(t, err)
		mm[i] = &model.Membership{Entity: e, Weights: math.MustVector(w...)}
	}
	return mm
}

func sizes(groups []*model.Group) []int {
	ss := make([]int, len(groups))
	for i, g := range groups {
		ss[i] = g.Size()
	}
	return ss
}

func TestFormGroups_HardAssignment(t *testing.T) {

	matrix := matrixOf(t,
		[]float64{0.9, 0.1},
		[]float64{0.2, 0.8},
		[]float64{0.5, 0.5},
		[]float64{0.3, 0.7},
	)
	groups, orphans, err := FormGroups(matrix, centersOf(2))
	require.NoError(t, err)
	assert.Empty(t, orphans)

	require.Len(t, groups, 2)
	// ties go to the lowest id, members sorted by ascending confidence
	assert.Equal(t, []int{3, 1}, groups[0].IDs())
	assert.Equal(t, []int{4, 2}, groups[1].IDs())
	assert.True(t, groups[0].Centroid.Equal(math.MustVector(0)))
}

func TestFormGroups_Drain(t *testing.T) {

	// everyone prefers group 1, the least confident move to their second choice
	matrix := matrixOf(t,
		[]float64{0.9, 0.05, 0.05},
		[]float64{0.5, 0.1, 0.4},
		[]float64{0.8, 0.15, 0.05},
		[]float64{0.4, 0.35, 0.25},
		[]float64{0.7, 0.2, 0.1},
		[]float64{0.6, 0.3, 0.1},
	)
	groups, orphans, err := FormGroups(matrix, centersOf(3))
	require.NoError(t, err)
	assert.Empty(t, orphans)

	assert.Equal(t, []int{2, 2, 2}, sizes(groups))
	assert.ElementsMatch(t, []int{1, 3}, groups[0].IDs())
	// 4 prefers 2 and moves first, 2 prefers 3, 6 follows into 2
	assert.ElementsMatch(t, []int{4, 6}, groups[1].IDs())
	assert.ElementsMatch(t, []int{2, 5}, groups[2].IDs())
}

func TestFormGroups_Fill(t *testing.T) {

	// 3,3,1 is within the max size, but group 3 is below the min size
	matrix := matrixOf(t,
		[]float64{0.8, 0.1, 0.1},
		[]float64{0.6, 0.1, 0.3},
		[]float64{0.7, 0.2, 0.1},
		[]float64{0.1, 0.8, 0.1},
		[]float64{0.1, 0.5, 0.4},
		[]float64{0.2, 0.7, 0.1},
		[]float64{0.1, 0.1, 0.8},
	)
	groups, _, err := FormGroups(matrix, centersOf(3))
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2, 2}, sizes(groups))
	// 5 has the greatest weight for group 3
	assert.ElementsMatch(t, []int{5, 7}, groups[2].IDs())
	assert.ElementsMatch(t, []int{4, 6}, groups[1].IDs())
}

func TestFormGroups_Orphans(t *testing.T) {

	matrix := matrixOf(t,
		[]float64{0.9, 0.1, 0},
		[]float64{0.1, 0.1, 0.8},
		[]float64{0.1, 0.9, 0},
	)
	groups, orphans, err := FormGroups(matrix, centersOf(2))
	require.NoError(t, err)

	require.Len(t, orphans, 1)
	assert.Equal(t, 2, orphans[0].Entity.ID)
	assert.Equal(t, []int{1, 1}, sizes(groups))
}

func TestFormGroups_NoGroups(t *testing.T) {
	groups, orphans, err := FormGroups(matrixOf(t, []float64{1}), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Len(t, orphans, 1)
}

func TestFormGroups_Balanced(t *testing.T) {

	rnd := rand.New(rand.NewSource(17))
	calc := math.NewCalc(0)

	for _, n := range []int{1, 5, 7, 8, 10, 13, 31} {
		for _, k := range []int{1, 2, 3, 4, 6} {
			t.Run(fmt.Sprintf("%d-%d", n, k), func(t *testing.T) {
				matrix := make(model.Matrix, n)
				for i := range matrix {
					w, err := randomWeights(calc, rnd, k)
					require.NoError(t, err)
					// skew towards the first group to force redistribution
					w[0], err = calc.AddD(w[0], math.MustParse("0.5"))
					require.NoError(t, err)
					e, err := model.NewEntity(i+1, "", float64(i))
					require.NoError(t, err)
					matrix[i] = &model.Membership{Entity: e, Weights: w}
				}
				groups, orphans, err := FormGroups(matrix, centersOf(k))
				require.NoError(t, err)
				assert.Empty(t, orphans)

				total := 0
				seen := make(map[int]bool)
				for _, g := range groups {
					assert.GreaterOrEqual(t, g.Size(), n/k)
					assert.LessOrEqual(t, g.Size(), (n+k-1)/k)
					total += g.Size()
					for _, id := range g.IDs() {
						assert.False(t, seen[id], "entity %d in more than one group", id)
						seen[id] = true
					}
				}
				assert.Equal(t, n, total)
			})
		}
	}
}

func TestDestination(t *testing.T) {

	member := &model.Membership{Weights: math.MustVector(0.1, 0.5, 0.4)}
	groups := []*model.Group{
		model.NewGroup(model.Center{ID: 1}),
		model.NewGroup(model.Center{ID: 2}),
		model.NewGroup(model.Center{ID: 3}),
	}
	fillTo := func(g *model.Group, n int) {
		for g.Size() < n {
			g.Add(&model.Membership{Weights: math.MustVector(0, 0, 0)})
		}
	}

	// below min size wins over preference
	fillTo(groups[0], 4)
	fillTo(groups[1], 2)
	fillTo(groups[2], 1)
	assert.Equal(t, 3, destination(member, groups[0], groups, 2, 3).ID)

	// all at min size, the preferred one with room
	fillTo(groups[2], 2)
	assert.Equal(t, 2, destination(member, groups[0], groups, 2, 3).ID)

	// all full
	fillTo(groups[1], 3)
	fillTo(groups[2], 3)
	assert.Nil(t, destination(member, groups[0], groups, 2, 3))

	err := drain(groups, 2, 3)
	assert.True(t, errors.Is(err, RedistributionExhaustedErr))
}
