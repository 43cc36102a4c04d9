package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "fuzzy_group"

type Prometheus struct {
	Iterations  prometheus.Counter
	Objective   prometheus.Gauge
	Improvement prometheus.Gauge
	Runs        *prometheus.CounterVec
	GroupSize   *prometheus.GaugeVec
	Orphans     prometheus.Counter
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Iterations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iterations_total",
				Help:      "number of fuzzy c-means iterations",
			}),
		Objective: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "objective",
				Help:      "objective value of the latest iteration",
			}),
		Improvement: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "improvement",
				Help:      "objective improvement of the latest iteration",
			}),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "number of clustering runs by final state",
			}, []string{"state"}),
		GroupSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "group_size",
				Help:      "number of members per group of the latest run",
			}, []string{"group"}),
		Orphans: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphans_total",
				Help:      "number of members dropped without a group",
			}),
	}
}

func (p Prometheus) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		p.Iterations,
		p.Objective,
		p.Improvement,
		p.Runs,
		p.GroupSize,
		p.Orphans,
	}
}
