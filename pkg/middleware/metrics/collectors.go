package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kv_http_response_seconds",
			Help:    "http response time by route pattern.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"route"},
	)

	totalHttpRequestsFromRole = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kv_http_requests_from_role_total", Help: "http requests from role"},
		[]string{"role"},
	)

	totalHttpRequestsToRoute = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kv_http_requests_to_route_total", Help: "http requests to route pattern"},
		[]string{"code", "route", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kv_http_requests_total", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	negotiatedResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kv_http_negotiated_responses_total", Help: "lookup responses by negotiated format"},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsFromRole,
		totalHttpRequestsToRoute,
		totalHttpRequests,
		negotiatedResponses,
	)
}

// ObserveFormat counts a rendered lookup response by format name.
func ObserveFormat(format string) { negotiatedResponses.WithLabelValues(format).Inc() }
