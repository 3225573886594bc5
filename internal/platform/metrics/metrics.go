package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transport-level Prometheus metrics.
type Metrics struct {
	HTTPLatency     *prometheus.HistogramVec
	AccountsCreated prometheus.Counter
}

// New creates and registers all transport metrics.
func New() *Metrics {
	return &Metrics{
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "btoflow_http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"method", "path", "status"}),
		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "btoflow_accounts_created_total",
			Help: "Total number of accounts created in the system",
		}),
	}
}

// ObserveHTTPLatency records one request's latency.
func (m *Metrics) ObserveHTTPLatency(method, path string, status int, d time.Duration) {
	m.HTTPLatency.WithLabelValues(method, path, strconv.Itoa(status)).
		Observe(float64(d.Microseconds()) / 1000.0)
}

// IncrementAccountsCreated increments the accounts created counter by 1.
func (m *Metrics) IncrementAccountsCreated() {
	m.AccountsCreated.Inc()
}
