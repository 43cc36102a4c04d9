package ml

import (
	"fmt"
	"io"

	"github.com/cdipaolo/goml/cluster"
	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/rs/zerolog/log"
)

// KMeansVectors derives initial membership vectors out of a hard k-means partition of the population.
// Every entity gets weight 2/(k+1) for its k-means cluster and 1/(k+1) for every other one.
// NOTE : goml seeds its centroids from the global math/rand source, so the partition
// does not depend on the configured seed and repeated runs may differ.
func KMeansVectors(calc *math.Calc, population []model.Entity, k int, iterations int) ([]math.Vector, error) {
	if len(population) < k {
		return nil, fmt.Errorf("population of %d is too small for %d clusters: %w", len(population), k, InvalidParameterErr)
	}
	data := make([][]float64, len(population))
	for i, e := range population {
		data[i] = e.Features.Float64s()
	}

	km := cluster.NewKMeans(k, iterations, data)
	km.Output = io.Discard
	if err := km.Learn(); err != nil {
		log.Error().
			Err(err).
			Int("k", k).
			Int("data", len(data)).
			Msg("error during training on k-means")
		return nil, fmt.Errorf("could not train: %w", err)
	}
	guesses := km.Guesses()
	if len(guesses) != len(population) {
		return nil, fmt.Errorf("could not align guesses with population [ %d | %d ]", len(guesses), len(population))
	}

	den := apd.New(int64(k+1), 0)
	high, err := calc.QuoD(apd.New(2, 0), den)
	if err != nil {
		return nil, err
	}
	low, err := calc.QuoD(apd.New(1, 0), den)
	if err != nil {
		return nil, err
	}

	vectors := make([]math.Vector, len(population))
	for i, g := range guesses {
		v := make(math.Vector, k)
		for c := range v {
			if c == g {
				v[c] = new(apd.Decimal).Set(high)
			} else {
				v[c] = new(apd.Decimal).Set(low)
			}
		}
		vectors[i] = v
	}
	log.Debug().Int("k", k).Int("population", len(population)).Msg("k-means warm start")
	return vectors, nil
}
