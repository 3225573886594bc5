package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the project directory.
type Metrics struct {
	ProjectsCreated prometheus.Counter
	ProjectsDeleted prometheus.Counter
}

// New creates a Metrics instance with all directory metrics registered.
func New() *Metrics {
	return &Metrics{
		ProjectsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_projects_created_total",
			Help: "Total number of housing projects created",
		}),
		ProjectsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_projects_deleted_total",
			Help: "Total number of housing projects deleted",
		}),
	}
}
