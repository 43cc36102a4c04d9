package ml

import (
	"errors"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entities(t *testing.T, features ...[]float64) []model.Entity {
	population := make([]model.Entity, len(features))
	for i, ff := range features {
		e, err := model.NewEntity(i+1, "", ff...)
		require.NoError(t, err)
		population[i] = e
	}
	return population
}

// twoBlobs is a population of 8 entities with 4 features, forming two obvious clusters.
func twoBlobs(t *testing.T) []model.Entity {
	return entities(t,
		[]float64{1, 1, 1, 1},
		[]float64{9, 9, 9, 9},
		[]float64{1, 2, 1, 1},
		[]float64{9, 8, 9, 9},
		[]float64{2, 1, 1, 2},
		[]float64{8, 9, 9, 8},
		[]float64{1, 1, 2, 1},
		[]float64{9, 9, 8, 9},
	)
}

func twoBlobsVectors() []math.Vector {
	vv := make([]math.Vector, 8)
	for i := range vv {
		if i%2 == 0 {
			vv[i] = math.MustVector(0.6, 0.4)
		} else {
			vv[i] = math.MustVector(0.4, 0.6)
		}
	}
	return vv
}

func assertRowSums(t *testing.T, calc *math.Calc, matrix model.Matrix) {
	tolerance := math.MustParse("1e-9")
	for _, row := range matrix {
		sum, err := calc.Sum(row.Weights)
		require.NoError(t, err)
		diff, err := calc.SubD(sum, apd.New(1, 0))
		require.NoError(t, err)
		assert.True(t, calc.AbsD(diff).Cmp(tolerance) < 0, "row %d sums to %s", row.Entity.ID, sum)
		for _, w := range row.Weights {
			assert.True(t, w.Sign() >= 0)
			assert.True(t, w.Cmp(apd.New(1, 0)) <= 0)
		}
	}
}

func TestBuildModel_Validation(t *testing.T) {

	type test struct {
		cfg Config
		err error
	}

	tests := map[string]test{
		"mass-1": {
			cfg: NewConfig(2).WithMass("1"),
			err: InvalidParameterErr,
		},
		"mass-below-1": {
			cfg: NewConfig(2).WithMass("0.5"),
			err: InvalidParameterErr,
		},
		"min-improvement-0": {
			cfg: NewConfig(2).WithMinImprovement("0"),
			err: InvalidParameterErr,
		},
		"min-improvement-1": {
			cfg: NewConfig(2).WithMinImprovement("1"),
			err: InvalidParameterErr,
		},
		"no-groups": {
			cfg: NewConfig(0),
			err: InvalidParameterErr,
		},
		"no-iterations": {
			cfg: NewConfig(2).WithMaxIteration(0),
			err: InvalidParameterErr,
		},
		"unknown-init": {
			cfg: NewConfig(2).WithInit("other"),
			err: InvalidParameterErr,
		},
		"initial-vector-size": {
			cfg: NewConfig(2).WithInitialVectors(math.MustVector(0.2, 0.3, 0.5)),
			err: math.LengthMismatchErr,
		},
		"precision": {
			cfg: func() Config {
				cfg := NewConfig(2)
				cfg.Precision = MaxPrecision + 1
				return cfg
			}(),
			err: InvalidParameterErr,
		},
		"valid": {
			cfg: NewConfig(2).WithMass("1.5").WithMinImprovement("0.5").WithSeed(1),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := BuildModel(twoBlobs(t), tt.cfg)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err), "unexpected error %v", err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, Failed, m.State())
		})
	}
}

func TestBuildModel_Population(t *testing.T) {

	_, err := BuildModel(nil, NewConfig(2))
	assert.True(t, errors.Is(err, InvalidParameterErr))

	population := entities(t, []float64{1, 2}, []float64{1, 2, 3})
	_, err = BuildModel(population, NewConfig(2))
	assert.True(t, errors.Is(err, math.LengthMismatchErr))
}

func TestModel_RowSums(t *testing.T) {

	m, err := New(twoBlobs(t), NewConfig(2).WithSeed(42))
	require.NoError(t, err)
	assertRowSums(t, m.calc, m.Matrix())

	for i := 0; i < 10 && m.State() == Running; i++ {
		_, err := m.Step()
		require.NoError(t, err)
		assertRowSums(t, m.calc, m.Matrix())
	}
}

func TestModel_StoppingRule(t *testing.T) {

	trace := NewTrace()
	cfg := NewConfig(2).WithSeed(7)
	m, err := BuildModel(twoBlobs(t), cfg, trace.Observe)
	require.NoError(t, err)

	require.Equal(t, Converged, m.State())
	require.Equal(t, m.Iterations(), trace.Size())

	last := trace.Size() - 1
	for i := 0; i < last; i++ {
		assert.Equal(t, i+1, trace.Iterations[i])
		assert.True(t, trace.Improvements[i].Cmp(cfg.MinImprovement) >= 0,
			"converged late at %d with %s", i+1, trace.Improvements[i])
	}
	assert.True(t, trace.Improvements[last].Cmp(cfg.MinImprovement) < 0)
	assert.Equal(t, 0, trace.Objectives[last].Cmp(m.Objective()))
}

func TestModel_EarlyStop(t *testing.T) {

	// an improvement threshold that is never reached
	cfg := NewConfig(2).
		WithMinImprovement("0.0000000000000000000000000000000000000001").
		WithMaxIteration(3).
		WithSeed(3)
	trace := NewTrace()
	m, err := BuildModel(twoBlobs(t), cfg, trace.Observe)
	require.NoError(t, err)

	assert.Equal(t, Running, m.State())
	assert.False(t, m.Converged())
	assert.Equal(t, 3, m.Iterations())
	assert.Equal(t, 3, trace.Size())
	assert.Len(t, m.Centers(), 2)
}

func TestModel_DegenerateDistance(t *testing.T) {

	// a single cluster has its center on the single entity
	m, err := BuildModel(entities(t, []float64{3, 4, 5, 6}), NewConfig(1))
	require.NoError(t, err)
	assert.True(t, m.Matrix()[0].Weights.Equal(math.MustVector(1)))
	assert.True(t, m.Centers()[0].Vector.Equal(math.MustVector(3, 4, 5, 6)))

	calc := math.NewCalc(0)
	population := entities(t, []float64{1, 1}, []float64{2, 2})
	matrix := model.Matrix{
		{Entity: population[0], Weights: math.MustVector(0.5, 0.5, 0)},
		{Entity: population[1], Weights: math.MustVector(0.5, 0.5, 0)},
	}
	distances := [][]*apd.Decimal{
		{math.MustParse("0.5"), math.MustParse("0")},
		{math.MustParse("0"), math.MustParse("2")},
		{math.MustParse("0"), math.MustParse("1")},
	}
	exp, err := exponent(calc, math.MustParse("2"))
	require.NoError(t, err)
	require.NoError(t, Update(calc, matrix, distances, exp))

	// the first coinciding center takes the full membership
	assert.True(t, matrix[0].Weights.Equal(math.MustVector(0, 1, 0)))
	assert.True(t, matrix[1].Weights.Equal(math.MustVector(1, 0, 0)))
}

func TestUpdate_Memberships(t *testing.T) {

	calc := math.NewCalc(0)
	population := entities(t, []float64{0})
	matrix := model.Matrix{
		{Entity: population[0], Weights: math.MustVector(0.5, 0.5)},
	}
	// distances 1 and 2 with m=2 give weights 1 and 1/4, normalized to 0.8 and 0.2
	distances := [][]*apd.Decimal{
		{math.MustParse("1")},
		{math.MustParse("2")},
	}
	exp, err := exponent(calc, math.MustParse("2"))
	require.NoError(t, err)
	assert.Equal(t, 0, exp.Cmp(apd.New(-2, 0)))

	require.NoError(t, Update(calc, matrix, distances, exp))
	assert.True(t, matrix[0].Weights.Equal(math.MustVector(0.8, 0.2)), "%v", matrix[0].Weights)

	objective, err := Objective(calc, matrix, distances, math.MustParse("2"))
	require.NoError(t, err)
	// 0.64*1 + 0.04*2
	assert.Equal(t, 0, objective.Cmp(math.MustParse("0.72")))
}

func TestCenters(t *testing.T) {

	calc := math.NewCalc(0)
	population := entities(t, []float64{0, 0}, []float64{4, 2})
	matrix := model.Matrix{
		{Entity: population[0], Weights: math.MustVector(1, 0)},
		{Entity: population[1], Weights: math.MustVector(0.5, 0)},
	}
	centers, err := Centers(calc, matrix, math.MustParse("2"), nil)
	require.NoError(t, err)
	require.Len(t, centers, 2)

	// weights 1 and 0.25 give (0*1 + 4*0.25) / 1.25
	assert.Equal(t, 1, centers[0].ID)
	assert.True(t, centers[0].Vector.Equal(math.MustVector(0.8, 0.4)), "%v", centers[0].Vector)

	// no weight at all falls back to the population mean
	assert.Equal(t, 2, centers[1].ID)
	assert.True(t, centers[1].Vector.Equal(math.MustVector(2, 1)))

	// ... or to the previous center
	previous := []model.Center{{ID: 2, Vector: math.MustVector(7, 7)}}
	centers, err = Centers(calc, matrix, math.MustParse("2"), previous)
	require.NoError(t, err)
	assert.True(t, centers[1].Vector.Equal(math.MustVector(7, 7)))
}

func TestInitialize(t *testing.T) {

	calc := math.NewCalc(0)
	population := twoBlobs(t)

	random, err := Initialize(calc, population, NewConfig(3).WithSeed(11))
	require.NoError(t, err)
	require.Len(t, random, len(population))
	assertRowSums(t, calc, random)

	// a missing vector falls back to random weights
	seeded := NewConfig(2).WithInitialVectors(
		math.MustVector(0.9, 0.1),
		nil,
		math.MustVector(0.3, 0.7),
	)
	matrix, err := Initialize(calc, population, seeded)
	require.NoError(t, err)
	assert.True(t, matrix[0].Weights.Equal(math.MustVector(0.9, 0.1)))
	assert.True(t, matrix[2].Weights.Equal(math.MustVector(0.3, 0.7)))
	assertRowSums(t, calc, matrix[1:2])
	assertRowSums(t, calc, matrix[3:])

	// the vectors are used verbatim, but not shared
	seeded.InitialVectors[0][0].SetInt64(0)
	assert.True(t, matrix[0].Weights.Equal(math.MustVector(0.9, 0.1)))
}

func TestBuildModel_Determinism(t *testing.T) {

	run := func(cfg Config) *Model {
		m, err := BuildModel(twoBlobs(t), cfg)
		require.NoError(t, err)
		return m
	}

	type test struct {
		cfg func() Config
	}

	tests := map[string]test{
		"seeded": {
			cfg: func() Config {
				return NewConfig(2).WithInitialVectors(twoBlobsVectors()...)
			},
		},
		"random-with-seed": {
			cfg: func() Config {
				return NewConfig(2).WithSeed(1234)
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m1 := run(tt.cfg())
			m2 := run(tt.cfg())
			require.Equal(t, m1.Iterations(), m2.Iterations())
			for i := range m1.Matrix() {
				for c := range m1.Matrix()[i].Weights {
					assert.Equal(t, m1.Matrix()[i].Weights[c].String(), m2.Matrix()[i].Weights[c].String())
				}
			}
			g1, _, err := FormGroups(m1.Matrix(), m1.Centers())
			require.NoError(t, err)
			g2, _, err := FormGroups(m2.Matrix(), m2.Centers())
			require.NoError(t, err)
			for i := range g1 {
				assert.Equal(t, g1[i].IDs(), g2[i].IDs())
			}
		})
	}
}

func TestCluster_TwoBlobs(t *testing.T) {

	type test struct {
		cfg      Config
		together bool
	}

	tests := map[string]test{
		"seeded": {
			cfg:      NewConfig(2).WithInitialVectors(twoBlobsVectors()...),
			together: true,
		},
		"random": {
			cfg:      NewConfig(2).WithSeed(99),
			together: true,
		},
		// k-means starts from a random partition, so only the sizes are deterministic
		"kmeans": {
			cfg: NewConfig(2).WithInit(KMeansInit),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := tt.cfg.
				WithMass("2").
				WithMinImprovement("0.001").
				WithMaxIteration(100)
			result, err := Cluster(twoBlobs(t), cfg)
			require.NoError(t, err)

			require.Len(t, result.Groups, 2)
			assert.Empty(t, result.Orphans)
			assert.Equal(t, Converged, result.State)

			total := 0
			ids := make([]int, 0)
			for _, g := range result.Groups {
				assert.Equal(t, 4, g.Size())
				total += g.Size()
				ids = append(ids, g.ID)
			}
			assert.Equal(t, []int{1, 2}, ids)
			assert.Equal(t, 8, total)

			if !tt.together {
				return
			}
			// the blobs stay together
			for _, g := range result.Groups {
				odd := g.Members[0].Entity.ID % 2
				for _, m := range g.Members {
					assert.Equal(t, odd, m.Entity.ID%2)
				}
			}
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "state(5)", State(5).String())
}
