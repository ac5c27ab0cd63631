package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Collect(nil))
	r.Get("/{name}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	r.Handle("/metrics", NewPromHttpHandler())

	before := testutil.ToFloat64(totalHttpRequestsToRoute.WithLabelValues("404", "/{name}", "GET"))
	for _, k := range []string{"AA", "BB", "CC"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/"+k, nil))
	}
	after := testutil.ToFloat64(totalHttpRequestsToRoute.WithLabelValues("404", "/{name}", "GET"))
	assert.Equal(t, 3.0, after-before)

	skipped := testutil.ToFloat64(totalHttpRequestsToRoute.WithLabelValues("200", "/metrics", "GET"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, skipped, testutil.ToFloat64(totalHttpRequestsToRoute.WithLabelValues("200", "/metrics", "GET")))
}

func TestObserveFormat(t *testing.T) {
	before := testutil.ToFloat64(negotiatedResponses.WithLabelValues("yaml"))
	ObserveFormat("yaml")
	assert.Equal(t, 1.0, testutil.ToFloat64(negotiatedResponses.WithLabelValues("yaml"))-before)
}
