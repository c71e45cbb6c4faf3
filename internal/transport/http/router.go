// Package httptransport assembles the HTTP surface: shared middleware, the
// caller and admin route groups, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrowd/pkg/platform/httputil"
	"escrowd/pkg/platform/middleware/admin"
	"escrowd/pkg/platform/middleware/auth"
	"escrowd/pkg/platform/middleware/request"
)

// Routes is implemented by every feature handler.
type Routes interface {
	Register(r chi.Router)
}

// AdminRoutes is implemented by handlers with administrative endpoints.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config carries everything the router needs.
type Config struct {
	Logger     *slog.Logger
	Verifier   auth.SessionVerifier
	AdminToken string
	Gatherer   prometheus.Gatherer
	Health     map[string]HealthCheck
	Routes     []Routes
	Admin      []AdminRoutes
	// RateLimit runs after the caller is resolved. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter wires caller routes behind session auth and admin routes behind
// the admin token.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger))

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(admin.MarkAdmin(cfg.AdminToken))
		r.Use(auth.RequireCaller(cfg.Verifier, cfg.Logger))
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		for _, routes := range cfg.Routes {
			routes.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
		for _, routes := range cfg.Admin {
			routes.RegisterAdmin(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
