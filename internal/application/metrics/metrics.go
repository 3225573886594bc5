package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application lifecycle.
type Metrics struct {
	Submitted            prometheus.Counter
	Decisions            *prometheus.CounterVec
	WithdrawalsRequested prometheus.Counter
	WithdrawalsProcessed *prometheus.CounterVec
	UnitsReserved        prometheus.Counter
	UnitsReleased        prometheus.Counter
}

// New creates a Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_applications_submitted_total",
			Help: "Total number of flat applications submitted",
		}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "btoflow_application_decisions_total",
			Help: "Application decisions by outcome",
		}, []string{"outcome"}),
		WithdrawalsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_withdrawals_requested_total",
			Help: "Total number of withdrawal requests submitted",
		}),
		WithdrawalsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "btoflow_withdrawals_processed_total",
			Help: "Withdrawal decisions by outcome",
		}, []string{"outcome"}),
		UnitsReserved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_units_reserved_total",
			Help: "Total units reserved by application approvals",
		}),
		UnitsReleased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_units_released_total",
			Help: "Total units released by approved withdrawals",
		}),
	}
}
