// Package httptransport assembles the HTTP surface: middleware chain, public
// registration routes, the Stripe webhook and the authenticated staff portal.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retreat/internal/admin"
	"retreat/internal/platform/metrics"
	platformmw "retreat/internal/platform/middleware"
	registrationhandler "retreat/internal/registration/handler"
	"retreat/pkg/platform/httputil"
	adminmw "retreat/pkg/platform/middleware/admin"
	"retreat/pkg/platform/middleware/metadata"
	request "retreat/pkg/platform/middleware/request"
	"retreat/pkg/platform/middleware/requesttime"
)

const defaultRequestTimeout = 30 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router mounts. Webhook may be nil when Stripe is not
// configured; Gatherer defaults to the Prometheus default registry.
type Deps struct {
	Registrations  *registrationhandler.Handler
	Admin          *admin.Handler
	AdminValidator adminmw.TokenValidator
	Webhook        http.Handler
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Health         map[string]HealthCheck
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(platformmw.Latency(d.Metrics))
	}

	r.Get("/healthz", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// The webhook reads the raw body for signature verification and must
	// answer Stripe quickly, so it sits outside the request timeout.
	if d.Webhook != nil {
		r.Method(http.MethodPost, "/webhooks/stripe", d.Webhook)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(timeout))
		d.Registrations.RegisterPublic(r)
		r.Post("/admin/login", d.Admin.HandleLogin)
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(d.AdminValidator, d.Logger))
			d.Registrations.RegisterAdmin(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
	})
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
