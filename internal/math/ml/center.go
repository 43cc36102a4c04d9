package ml

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
)

// Centers computes the cluster centroids as the membership weighted mean of the entity features.
// A cluster without any weight keeps its previous center,
// or falls back to the population mean if there is none.
func Centers(calc *math.Calc, matrix model.Matrix, mass *apd.Decimal, previous []model.Center) ([]model.Center, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("empty membership matrix: %w", InvalidParameterErr)
	}
	k := len(matrix[0].Weights)
	dim := matrix[0].Entity.Dim()
	centers := make([]model.Center, k)
	for c := 0; c < k; c++ {
		id := c + 1
		num := math.Zero(dim)
		den := new(apd.Decimal)
		for _, row := range matrix {
			w, err := calc.PowD(row.Weight(id), mass)
			if err != nil {
				return nil, fmt.Errorf("could not weigh entity %d for cluster %d: %w", row.Entity.ID, id, err)
			}
			x, err := calc.Scale(row.Entity.Features, w)
			if err != nil {
				return nil, fmt.Errorf("could not weigh entity %d for cluster %d: %w", row.Entity.ID, id, err)
			}
			num, err = calc.Add(num, x)
			if err != nil {
				return nil, fmt.Errorf("could not accumulate entity %d for cluster %d: %w", row.Entity.ID, id, err)
			}
			den, err = calc.AddD(den, w)
			if err != nil {
				return nil, fmt.Errorf("could not accumulate entity %d for cluster %d: %w", row.Entity.ID, id, err)
			}
		}
		if den.IsZero() {
			v, err := fallback(calc, matrix, previous, id)
			if err != nil {
				return nil, err
			}
			centers[c] = model.Center{ID: id, Vector: v}
			continue
		}
		v, err := calc.Div(num, den)
		if err != nil {
			return nil, fmt.Errorf("could not compute center for cluster %d: %w", id, err)
		}
		centers[c] = model.Center{ID: id, Vector: v}
	}
	return centers, nil
}

func fallback(calc *math.Calc, matrix model.Matrix, previous []model.Center, id int) (math.Vector, error) {
	for _, p := range previous {
		if p.ID == id {
			return p.Vector.Clone(), nil
		}
	}
	sum := math.Zero(matrix[0].Entity.Dim())
	for _, row := range matrix {
		s, err := calc.Add(sum, row.Entity.Features)
		if err != nil {
			return nil, fmt.Errorf("could not compute population mean: %w", err)
		}
		sum = s
	}
	return calc.Div(sum, apd.New(int64(len(matrix)), 0))
}

// Distances computes the euclidean distance of every entity to every center,
// indexed by cluster and then by entity.
func Distances(calc *math.Calc, centers []model.Center, matrix model.Matrix) ([][]*apd.Decimal, error) {
	distances := make([][]*apd.Decimal, len(centers))
	for c, center := range centers {
		distances[c] = make([]*apd.Decimal, len(matrix))
		for e, row := range matrix {
			d, err := calc.Distance(center.Vector, row.Entity.Features)
			if err != nil {
				return nil, fmt.Errorf("could not compute distance of entity %d to center %d: %w", row.Entity.ID, center.ID, err)
			}
			distances[c][e] = d
		}
	}
	return distances, nil
}

// Objective computes the weighted sum of the distances of the entities to the centers.
func Objective(calc *math.Calc, matrix model.Matrix, distances [][]*apd.Decimal, mass *apd.Decimal) (*apd.Decimal, error) {
	j := new(apd.Decimal)
	for e, row := range matrix {
		for c := range distances {
			w, err := calc.PowD(row.Weight(c+1), mass)
			if err != nil {
				return nil, fmt.Errorf("could not compute objective for entity %d: %w", row.Entity.ID, err)
			}
			t, err := calc.MulD(w, distances[c][e])
			if err != nil {
				return nil, fmt.Errorf("could not compute objective for entity %d: %w", row.Entity.ID, err)
			}
			j, err = calc.AddD(j, t)
			if err != nil {
				return nil, fmt.Errorf("could not compute objective for entity %d: %w", row.Entity.ID, err)
			}
		}
	}
	return j, nil
}
