package metrics

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/math/ml"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the progress and outcome of the clustering runs.
type Metrics struct {
	prometheus Prometheus
}

// NewMetrics creates the metrics and registers them with the given registry.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	p := NewPrometheusMetrics()
	for _, c := range p.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("could not register metrics: %w", err)
		}
	}
	return &Metrics{prometheus: p}, nil
}

// Observe is an ml.Observer tracking every iteration.
func (m *Metrics) Observe(iteration int, objective, improvement *apd.Decimal) {
	m.prometheus.Iterations.Inc()
	m.prometheus.Objective.Set(math.ToFloat(objective))
	m.prometheus.Improvement.Set(math.ToFloat(improvement))
}

// Done records the outcome of a run.
func (m *Metrics) Done(result ml.Result) {
	m.prometheus.Runs.WithLabelValues(result.State.String()).Inc()
	m.prometheus.Orphans.Add(float64(len(result.Orphans)))
	for _, g := range result.Groups {
		m.prometheus.GroupSize.WithLabelValues(strconv.Itoa(g.ID)).Set(float64(g.Size()))
	}
}

// Failed records a run that could not complete.
func (m *Metrics) Failed() {
	m.prometheus.Runs.WithLabelValues(ml.Failed.String()).Inc()
}
