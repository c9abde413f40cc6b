// Package metrics provides Prometheus metrics for the ridewise server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridewise"

var (
	// IngestTotal counts workbook ingests by status (success/error).
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Total workbook ingests",
		},
		[]string{"status"},
	)

	// IngestDuration tracks end-to-end ingest latency (parse, enrich, embed, publish).
	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Workbook ingest duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	// IndexedRows is the number of records in the active snapshot.
	IndexedRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_rows",
			Help:      "Number of enriched trip records in the active index",
		},
	)

	// ChatRequests counts chat turns by outcome (ok/not_ready/bad_request/error).
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Total chat requests",
		},
		[]string{"outcome"},
	)

	// ChatLatency tracks chat turn latency including retrieval and model call.
	ChatLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_seconds",
			Help:      "Chat turn latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RetrievalLatency tracks nearest-neighbor query latency including query embedding.
	RetrievalLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_latency_seconds",
			Help:      "Retrieval latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// EmbeddingCacheHits counts embedding cache hits.
	EmbeddingCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_hits_total",
			Help:      "Total embedding cache hits",
		},
	)

	// EmbeddingCacheMisses counts embedding cache misses.
	EmbeddingCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_misses_total",
			Help:      "Total embedding cache misses",
		},
	)
)
