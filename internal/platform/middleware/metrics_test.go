package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"retreat/internal/platform/metrics"
)

func TestLatency_UsesRoutePattern(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(Latency(m))
	r.Get("/admin/registrations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/registrations/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/admin/registrations/{id}", "404"))
	assert.Equal(t, float64(1), count)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.InFlight))
}
