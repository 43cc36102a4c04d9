package ml

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State is the state of the fuzzy c-means model.
type State int

const (
	Running State = iota
	Converged
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Observer is notified once per iteration with the objective value and its improvement
// over the previous iteration.
type Observer func(iteration int, objective, improvement *apd.Decimal)

// Model is a fuzzy c-means model over a fixed population.
// It is not safe for concurrent use.
type Model struct {
	id        uuid.UUID
	cfg       Config
	calc      *math.Calc
	exponent  *apd.Decimal
	matrix    model.Matrix
	centers   []model.Center
	objective *apd.Decimal
	previous  *apd.Decimal
	iteration int
	state     State
	observers []Observer
}

// New validates the config and initialises the membership matrix for the population.
func New(population []model.Entity, cfg Config, observers ...Observer) (*Model, error) {
	if cfg.Mass == nil {
		cfg.Mass = math.MustParse(DefaultMass)
	}
	if err := cfg.Validate(population); err != nil {
		return nil, fmt.Errorf("could not build model: %w", err)
	}
	calc := math.NewCalc(cfg.Precision)
	exp, err := exponent(calc, cfg.Mass)
	if err != nil {
		return nil, fmt.Errorf("could not compute membership exponent: %w", err)
	}
	matrix, err := Initialize(calc, population, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not initialise membership matrix: %w", err)
	}
	return &Model{
		id:        uuid.New(),
		cfg:       cfg,
		calc:      calc,
		exponent:  exp,
		matrix:    matrix,
		objective: new(apd.Decimal),
		previous:  new(apd.Decimal),
		iteration: 1,
		state:     Running,
		observers: observers,
	}, nil
}

// BuildModel creates the model and iterates until it converges or reaches the iteration limit.
func BuildModel(population []model.Entity, cfg Config, observers ...Observer) (*Model, error) {
	m, err := New(population, cfg, observers...)
	if err != nil {
		return nil, err
	}
	if err := m.Run(); err != nil {
		return m, err
	}
	return m, nil
}

// Run iterates until the objective improvement drops below the configured threshold,
// or the iteration limit is exceeded. In the latter case the model remains in the Running state.
func (m *Model) Run() error {
	log.Info().
		Str("id", m.id.String()).
		Int("population", len(m.matrix)).
		Int("groups", m.cfg.Groups).
		Str("mass", m.cfg.Mass.String()).
		Str("min-improvement", m.cfg.MinImprovement.String()).
		Int("max-iteration", m.cfg.MaxIteration).
		Msg("start fuzzy c-means")
	for m.state == Running && m.iteration <= m.cfg.MaxIteration {
		converged, err := m.Step()
		if err != nil {
			log.Error().Err(err).
				Str("id", m.id.String()).
				Int("iteration", m.iteration).
				Msg("fuzzy c-means failed")
			return fmt.Errorf("could not complete iteration %d: %w", m.iteration, err)
		}
		if converged {
			log.Info().
				Str("id", m.id.String()).
				Int("iteration", m.iteration).
				Str("objective", m.objective.String()).
				Msg("fuzzy c-means converged")
			return nil
		}
	}
	if m.state == Running {
		log.Warn().
			Str("id", m.id.String()).
			Int("max-iteration", m.cfg.MaxIteration).
			Str("objective", m.objective.String()).
			Msg("fuzzy c-means stopped without converging")
	}
	return nil
}

// Step executes one iteration and reports if the model converged.
// Any error leaves the model in the Failed state.
// NOTE : Step does not check the iteration limit.
func (m *Model) Step() (bool, error) {
	if m.state != Running {
		return m.state == Converged, nil
	}
	converged, err := m.step()
	if err != nil {
		m.state = Failed
		return false, err
	}
	if converged {
		m.state = Converged
		return true, nil
	}
	m.iteration++
	return false, nil
}

func (m *Model) step() (bool, error) {
	centers, err := Centers(m.calc, m.matrix, m.cfg.Mass, m.centers)
	if err != nil {
		return false, fmt.Errorf("could not update centers: %w", err)
	}
	distances, err := Distances(m.calc, centers, m.matrix)
	if err != nil {
		return false, err
	}
	if err := Update(m.calc, m.matrix, distances, m.exponent); err != nil {
		return false, err
	}
	if err := Normalize(m.calc, m.matrix); err != nil {
		return false, err
	}
	objective, err := Objective(m.calc, m.matrix, distances, m.cfg.Mass)
	if err != nil {
		return false, err
	}
	diff, err := m.calc.SubD(objective, m.previous)
	if err != nil {
		return false, err
	}
	improvement := m.calc.AbsD(diff)

	m.centers = centers
	m.objective = objective

	log.Debug().
		Str("id", m.id.String()).
		Int("iteration", m.iteration).
		Str("objective", math.Format(objective)).
		Str("improvement", math.Format(improvement)).
		Msg("iteration")
	for _, observe := range m.observers {
		observe(m.iteration, objective, improvement)
	}

	if improvement.Cmp(m.cfg.MinImprovement) < 0 {
		return true, nil
	}
	m.previous = objective
	return false, nil
}

// ID returns the unique id of the model run.
func (m *Model) ID() uuid.UUID {
	return m.id
}

// State returns the current state of the model.
func (m *Model) State() State {
	return m.state
}

// Converged checks if the model has converged.
func (m *Model) Converged() bool {
	return m.state == Converged
}

// Iterations returns the number of completed iterations.
func (m *Model) Iterations() int {
	if m.state == Converged {
		return m.iteration
	}
	return m.iteration - 1
}

// Objective returns the latest objective value.
func (m *Model) Objective() *apd.Decimal {
	return m.objective
}

// Matrix returns the membership matrix.
func (m *Model) Matrix() model.Matrix {
	return m.matrix
}

// Centers returns the latest cluster centers.
func (m *Model) Centers() []model.Center {
	return m.centers
}

// Config returns the config of the model.
func (m *Model) Config() Config {
	return m.cfg
}
