package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"btoflow/internal/platform/metrics"
	"btoflow/internal/platform/middleware"
	"btoflow/internal/transport/http/shared"
)

// Registrar is implemented by each module handler; the router hands them a
// sub-tree to attach their routes to.
type Registrar interface {
	Register(r chi.Router)
}

const requestTimeout = 15 * time.Second

// NewRouter assembles the full HTTP surface. The shared middleware chain runs
// once here; handlers only add their own auth gating.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.LatencyMiddleware(m))
		for _, h := range handlers {
			h.Register(api)
		}
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
