package ml

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/rs/zerolog/log"
)

// Initialize creates the membership matrix for the population based on the configured mode.
func Initialize(calc *math.Calc, population []model.Entity, cfg Config) (model.Matrix, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	vectors := cfg.InitialVectors
	switch cfg.init() {
	case RandomInit:
		vectors = nil
	case KMeansInit:
		vv, err := KMeansVectors(calc, population, cfg.Groups, cfg.MaxIteration)
		if err != nil {
			return nil, fmt.Errorf("could not warm start with k-means: %w", err)
		}
		vectors = vv
	}

	matrix := make(model.Matrix, len(population))
	for i, e := range population {
		var weights math.Vector
		if i < len(vectors) && vectors[i] != nil {
			if len(vectors[i]) != cfg.Groups {
				return nil, fmt.Errorf("initial vector for entity %d has size %d instead of %d: %w",
					e.ID, len(vectors[i]), cfg.Groups, math.LengthMismatchErr)
			}
			weights = vectors[i].Clone()
		} else {
			if cfg.init() == SeededInit {
				log.Debug().Int("entity", e.ID).Msg("no initial vector, falling back to random weights")
			}
			w, err := randomWeights(calc, rnd, cfg.Groups)
			if err != nil {
				return nil, fmt.Errorf("could not initialise entity %d: %w", e.ID, err)
			}
			weights = w
		}
		matrix[i] = &model.Membership{
			Entity:  e,
			Weights: weights,
		}
	}
	return matrix, nil
}

// randomWeights draws k uniform weights within (0,1] and normalizes them by their sum.
func randomWeights(calc *math.Calc, rnd *rand.Rand, k int) (math.Vector, error) {
	ff := make([]float64, k)
	for i := range ff {
		ff[i] = 1 - rnd.Float64()
	}
	v, err := math.NewVector(ff...)
	if err != nil {
		return nil, err
	}
	return calc.Normalize(v)
}

// exponent computes the membership exponent -2/(m-1) for the given mass.
func exponent(calc *math.Calc, mass *apd.Decimal) (*apd.Decimal, error) {
	d, err := calc.SubD(mass, apd.New(1, 0))
	if err != nil {
		return nil, err
	}
	return calc.QuoD(apd.New(-2, 0), d)
}

// Update recomputes the membership weights of every entity out of the distances to the centers.
// distances is indexed by cluster and then by entity.
// An entity coinciding with a center is fully assigned to the first such cluster.
func Update(calc *math.Calc, matrix model.Matrix, distances [][]*apd.Decimal, exp *apd.Decimal) error {
	k := len(distances)
	for e, row := range matrix {
		weights := math.Zero(k)
		zero := -1
		for c := 0; c < k; c++ {
			if distances[c][e].IsZero() {
				zero = c
				break
			}
		}
		if zero >= 0 {
			weights[zero].SetInt64(1)
			row.Weights = weights
			continue
		}
		for c := 0; c < k; c++ {
			w, err := calc.PowD(distances[c][e], exp)
			if err != nil {
				return fmt.Errorf("could not update membership of entity %d for cluster %d: %w", row.Entity.ID, c+1, err)
			}
			weights[c] = w
		}
		sum, err := calc.Sum(weights)
		if err != nil {
			return fmt.Errorf("could not update membership of entity %d: %w", row.Entity.ID, err)
		}
		weights, err = calc.Div(weights, sum)
		if err != nil {
			return fmt.Errorf("could not update membership of entity %d: %w", row.Entity.ID, err)
		}
		row.Weights = weights
	}
	return nil
}

// Normalize divides each membership row by its sum.
func Normalize(calc *math.Calc, matrix model.Matrix) error {
	for _, row := range matrix {
		w, err := calc.Normalize(row.Weights)
		if err != nil {
			return fmt.Errorf("could not normalize membership of entity %d: %w", row.Entity.ID, err)
		}
		row.Weights = w
	}
	return nil
}
