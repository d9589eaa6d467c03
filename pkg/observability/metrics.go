package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for step execution.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certwizard_step_requests_total",
				Help: "Total number of completed step requests",
			},
			[]string{"step", "outcome", "code"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "certwizard_step_duration_seconds",
				Help:    "Duration of step requests",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "certwizard_step_in_flight",
				Help: "Step requests currently waiting for completion",
			},
			[]string{"step"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration, m.InFlight)
	}
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, e *domain.StepEvent) {
			m.InFlight.WithLabelValues(string(e.Step)).Inc()
		},
		OnStepDone: func(_ context.Context, e *domain.StepEvent) {
			m.observe(e, "done")
		},
		OnStepFailed: func(_ context.Context, e *domain.StepEvent) {
			m.observe(e, "failed")
		},
	}
}

func (m *Metrics) observe(e *domain.StepEvent, outcome string) {
	step := string(e.Step)
	code := "none"
	if e.Status != 0 {
		code = strconv.Itoa(e.Status)
	}
	m.Requests.WithLabelValues(step, outcome, code).Inc()
	// Guard rejections never started, so there is nothing in flight to settle.
	if e.Issued {
		m.InFlight.WithLabelValues(step).Dec()
		m.Duration.WithLabelValues(step).Observe(e.Duration.Seconds())
	}
}
