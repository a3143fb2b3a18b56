package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/metrics"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/middleware"
)

// NewRouter builds the service's gorilla/mux router: the six documented
// endpoints plus /metrics when m is non-nil.
func NewRouter(s *Server, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recovery(s.logger))
	if m != nil {
		r.Use(middleware.Metrics(m))
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	rateLimiter := middleware.NewRateLimiter(s.cfg.RateLimitPerSecond, s.cfg.RateLimitBurst)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.Handle("/optimize", rateLimiter.Handler(http.HandlerFunc(s.handleOptimize))).Methods(http.MethodPost)
	r.HandleFunc("/progress/{id}", s.handleProgress).Methods(http.MethodGet)
	r.HandleFunc("/result/{id}", s.handleResult).Methods(http.MethodGet)
	r.HandleFunc("/cancel/{id}", s.handleCancel).Methods(http.MethodPost)
	r.HandleFunc("/export/{id}", s.handleExport).Methods(http.MethodGet)

	return r
}
