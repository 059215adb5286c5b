package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/sessions/{id}", "418"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/api/sessions/abc", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/sessions/{id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestObserveModelCallLabelsErrors(t *testing.T) {
	ObserveModelCall("answer", assert.AnError, 0)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(ModelRequestDuration), 1)
}

func TestMiddlewareLabelsUnknownPathsAsUnmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))

	for _, path := range []string{"/random/a1", "/random/b2", "/wp-admin"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	}

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	assert.Equal(t, before+3, after)
	assert.Zero(t, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/wp-admin", "404")))
}
