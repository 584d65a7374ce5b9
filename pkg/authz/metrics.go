package authz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics the engine reports.
type Metrics struct {
	// Decisions counts authorization outcomes, labelled by resource type,
	// operation, and result ("allowed", a deny kind, or "error").
	Decisions *prometheus.CounterVec
}

// NewMetrics creates and registers the authorization metrics.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskhub_authz_decisions_total",
				Help: "Total number of authorization decisions",
			},
			[]string{"resource_type", "operation", "result"},
		),
	}
	if registry != nil {
		registry.MustRegister(m.Decisions)
	}
	return m
}
