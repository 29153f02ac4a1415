package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serp",
			Name:      "search_requests_total",
			Help:      "Total number of backend search requests",
		},
		[]string{"backend", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "serp",
			Name:      "search_request_duration_seconds",
			Help:      "Backend search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	SearchHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "serp",
			Name:      "search_total_hits",
			Help:      "Total matching documents reported per search",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 8),
		},
		[]string{"backend"},
	)

	SearchRescoreTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serp",
			Name:      "search_rescore_total",
			Help:      "Searches by whether a rescorer was attached",
		},
		[]string{"backend", "rescore"}, // "yes" / "no"
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serp",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "shared"
	)

	QuotaRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "serp",
			Name:      "quota_rejected_total",
			Help:      "Requests rejected by an exhausted API key quota",
		},
		[]string{"period"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchHits)
	prometheus.MustRegister(SearchRescoreTotal)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(QuotaRejectedTotal)
	searchMetricsRegistered = true
}
