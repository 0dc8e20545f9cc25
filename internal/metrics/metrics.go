// Package metrics exports the analysis driver lifecycle as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/fsm"
)

const namespace = "cadence"

// Metrics holds the analysis collectors.
type Metrics struct {
	stateDuration *prometheus.HistogramVec
	stateErrors   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "state_duration_seconds",
				Help:      "Duration of state steps by performance name",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"perf_name"},
		),
		stateErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_errors_total",
				Help:      "Total number of failed state steps",
			},
			[]string{"perf_name", "fault"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Total number of state transitions",
			},
			[]string{"scope"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by outcome",
			},
			[]string{"scope", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of analysis runs",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"scope"},
		),
	}
	for _, c := range []prometheus.Collector{m.stateDuration, m.stateErrors, m.transitions, m.runs, m.runDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the driver hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateLeave: func(_ context.Context, e *domain.StateEvent) {
			m.stateDuration.WithLabelValues(perfName(e)).Observe(e.Duration.Seconds())
		},
		OnStateError: func(_ context.Context, e *domain.StateEvent) {
			m.stateDuration.WithLabelValues(perfName(e)).Observe(e.Duration.Seconds())
			m.stateErrors.WithLabelValues(perfName(e), fsm.Classify(e.Err).String()).Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.transitions.WithLabelValues(e.Scope).Add(float64(e.Transitions))
			m.runs.WithLabelValues(e.Scope, e.Status).Inc()
			m.runDuration.WithLabelValues(e.Scope).Observe(e.Duration.Seconds())
		},
	}
}

func perfName(e *domain.StateEvent) string {
	if e.PerfName != "" {
		return e.PerfName
	}
	return e.State
}
