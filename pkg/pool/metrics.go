package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "kv_pool_requests_total", Help: "pool requests by kind and outcome"},
		[]string{"kind", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kv_pool_request_duration_seconds",
			Help:    "time a worker spent on one request.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"},
	)

	inflightGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "kv_pool_inflight", Help: "requests currently held by workers"},
	)

	queuedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "kv_pool_queued", Help: "requests waiting for a worker"},
	)

	workerRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "kv_pool_worker_restarts_total", Help: "worker loops respawned after a crash"},
	)
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		requestDuration,
		inflightGauge,
		queuedGauge,
		workerRestarts,
	)
}
