package ml

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
)

var (
	InvalidParameterErr        = errors.New("invalid parameter")
	OrphanMemberErr            = errors.New("orphan member")
	RedistributionExhaustedErr = errors.New("redistribution exhausted")
)

// Init defines how the membership matrix is initialised.
type Init string

const (
	// RandomInit draws uniform random weights for every entity.
	RandomInit Init = "random"
	// SeededInit uses the configured initial vectors,
	// falling back to random weights for entities without one.
	SeededInit Init = "seeded"
	// KMeansInit derives the initial vectors out of a k-means partition.
	// The partition ignores Config.Seed, so runs in this mode are not reproducible.
	KMeansInit Init = "kmeans"
)

const (
	DefaultMaxIteration   = 100
	DefaultMinImprovement = "0.001"
	DefaultMass           = "2"

	// MaxPrecision bounds the significant digits of the decimal arithmetic.
	MaxPrecision uint32 = 1000
)

// Config defines the clustering parameters.
// Groups is the number of clusters to form
// MaxIteration is the upper bound of iterations, after which the model stops without converging
// MinImprovement is the objective difference below which the model is considered converged, it must be within (0,1)
// Mass is the fuzziness exponent, it must be greater than 1
// Precision is the number of significant digits for the decimal arithmetic
// Init defines the initialisation mode of the membership matrix
// Seed is the seed for the random initialisation, 0 will use the current time
// InitialVectors are the initial membership vectors, one per entity, for the seeded mode
type Config struct {
	Groups         int           `json:"groups"`
	MaxIteration   int           `json:"max_iteration"`
	MinImprovement *apd.Decimal  `json:"min_improvement"`
	Mass           *apd.Decimal  `json:"mass"`
	Precision      uint32        `json:"precision"`
	Init           Init          `json:"init"`
	Seed           int64         `json:"seed"`
	InitialVectors []math.Vector `json:"initial_vectors,omitempty"`
}

// NewConfig creates a config for the given number of groups with the default parameters.
func NewConfig(groups int) Config {
	return Config{
		Groups:         groups,
		MaxIteration:   DefaultMaxIteration,
		MinImprovement: math.MustParse(DefaultMinImprovement),
		Mass:           math.MustParse(DefaultMass),
		Precision:      math.DefaultPrecision,
	}
}

// WithMass sets the fuzziness exponent.
func (c Config) WithMass(mass string) Config {
	c.Mass = math.MustParse(mass)
	return c
}

// WithMinImprovement sets the convergence threshold.
func (c Config) WithMinImprovement(improvement string) Config {
	c.MinImprovement = math.MustParse(improvement)
	return c
}

// WithMaxIteration sets the iteration limit.
func (c Config) WithMaxIteration(max int) Config {
	c.MaxIteration = max
	return c
}

// WithSeed sets the seed for the random initialisation.
func (c Config) WithSeed(seed int64) Config {
	c.Seed = seed
	return c
}

// WithInit sets the initialisation mode.
func (c Config) WithInit(init Init) Config {
	c.Init = init
	return c
}

// WithInitialVectors sets the initial membership vectors and switches to the seeded mode.
func (c Config) WithInitialVectors(vectors ...math.Vector) Config {
	c.InitialVectors = vectors
	c.Init = SeededInit
	return c
}

// init resolves the initialisation mode.
func (c Config) init() Init {
	if c.Init != "" {
		return c.Init
	}
	if len(c.InitialVectors) > 0 {
		return SeededInit
	}
	return RandomInit
}

// Validate checks the parameters against the population.
func (c Config) Validate(population []model.Entity) error {
	if c.Groups < 1 {
		return fmt.Errorf("group count must be positive but was %d: %w", c.Groups, InvalidParameterErr)
	}
	if c.MaxIteration < 1 {
		return fmt.Errorf("max iteration must be positive but was %d: %w", c.MaxIteration, InvalidParameterErr)
	}
	if c.Mass == nil || c.Mass.Cmp(apd.New(1, 0)) <= 0 {
		return fmt.Errorf("mass must be greater than 1 but was '%v': %w", c.Mass, InvalidParameterErr)
	}
	if c.MinImprovement == nil ||
		c.MinImprovement.Sign() <= 0 ||
		c.MinImprovement.Cmp(apd.New(1, 0)) >= 0 {
		return fmt.Errorf("min improvement must be within (0,1) but was '%v': %w", c.MinImprovement, InvalidParameterErr)
	}
	if c.Precision > MaxPrecision {
		return fmt.Errorf("precision must be at most %d but was %d: %w", MaxPrecision, c.Precision, InvalidParameterErr)
	}
	switch c.init() {
	case RandomInit, SeededInit, KMeansInit:
	default:
		return fmt.Errorf("unknown init mode '%s': %w", c.Init, InvalidParameterErr)
	}
	if len(population) == 0 {
		return fmt.Errorf("empty population: %w", InvalidParameterErr)
	}
	dim := population[0].Dim()
	for _, e := range population {
		if e.Dim() != dim {
			return fmt.Errorf("entity %d has %d features instead of %d: %w", e.ID, e.Dim(), dim, math.LengthMismatchErr)
		}
	}
	for i, v := range c.InitialVectors {
		if v != nil && len(v) != c.Groups {
			return fmt.Errorf("initial vector %d has size %d instead of %d: %w", i, len(v), c.Groups, math.LengthMismatchErr)
		}
	}
	return nil
}
