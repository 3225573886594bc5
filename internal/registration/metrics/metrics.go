package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the officer-registration lifecycle.
type Metrics struct {
	Submitted prometheus.Counter
	Decisions *prometheus.CounterVec
	Expired   prometheus.Counter
}

// New creates a Metrics instance with all registration metrics registered.
func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_registrations_submitted_total",
			Help: "Total number of officer registrations submitted",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "btoflow_registration_decisions_total",
			Help: "Registration decisions by outcome",
		}, []string{"outcome"}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_registrations_expired_total",
			Help: "Approved registrations released after the project window closed",
		}),
	}
}
