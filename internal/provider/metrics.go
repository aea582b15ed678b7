package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks provider HTTP requests by endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_provider_requests_total",
			Help: "Total number of market data requests",
		},
		[]string{"endpoint", "status"},
	)

	// APIRequestDurationSeconds tracks provider HTTP latency.
	APIRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "condor_screener_provider_request_duration_seconds",
			Help:    "Duration of market data requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// ContractsFetchedTotal tracks option contracts received.
	ContractsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "condor_screener_provider_contracts_fetched_total",
		Help: "Total number of option contracts received from the provider",
	})

	// CacheHitsTotal tracks provider cache hits by data kind.
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_cache_hits_total",
			Help: "Total number of provider cache hits",
		},
		[]string{"kind"},
	)

	// CacheMissesTotal tracks provider cache misses by data kind.
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_cache_misses_total",
			Help: "Total number of provider cache misses",
		},
		[]string{"kind"},
	)

	// BreakerTransitionsTotal tracks provider circuit breaker transitions.
	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "condor_screener_provider_breaker_transitions_total",
			Help: "Total number of provider circuit breaker state changes",
		},
		[]string{"state"},
	)
)
