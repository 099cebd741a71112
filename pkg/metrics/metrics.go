package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_cache_hits_total",
		Help: "Total number of tile cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_cache_misses_total",
		Help: "Total number of tile cache misses",
	})

	CacheStores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_cache_stores_total",
		Help: "Total number of tile cache store operations",
	})

	CacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_cache_evictions_total",
		Help: "Total number of tiles evicted to stay under the byte budget",
	})

	CacheBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tile_cache_bytes",
		Help: "Bytes currently held by the tile cache",
	})

	// Fetch pipeline metrics
	FetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tile_fetch_results_total",
		Help: "Backend fetch attempts by source and outcome",
	}, []string{"source", "outcome"})

	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tile_fetch_latency_seconds",
		Help:    "Latency of backend tile fetches in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_fetch_retries_total",
		Help: "Total number of transient failures that were re-dispatched",
	})

	PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tile_pending_requests",
		Help: "Number of tiles with a fetch in flight",
	})

	DedupAttaches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_dedup_attaches_total",
		Help: "Requests attached to an already pending fetch",
	})

	DiscardedResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_discarded_results_total",
		Help: "Fetch results dropped because their request was flushed",
	})

	// Layer metrics
	LayerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tile_layer_operation_duration_seconds",
		Help:    "Duration of read-through layer operations in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"layer", "operation"})

	LayerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tile_layer_errors_total",
		Help: "Total number of read-through layer errors",
	}, []string{"layer", "operation"})

	// Draw metrics
	FallbackOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tile_fallback_ops_total",
		Help: "Draw operations by kind (exact, overzoom, underzoom)",
	}, []string{"kind"})

	Redraws = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_redraws_total",
		Help: "Coalesced redraw notifications sent to the host",
	})

	FailureWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tile_failure_warnings_total",
		Help: "Times the failure threshold warning was raised",
	})
)
