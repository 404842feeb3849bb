package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// SyncItemsTotal counts cache records written by the sync orchestrator
	SyncItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitesync_sync_items_total",
			Help: "Total number of remote entities written to the cache",
		},
		[]string{"entity_type"},
	)

	// SyncRunsTotal counts finished sync runs
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitesync_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"status"}, // status: completed, failed, cancelled
	)

	// SyncDuration measures how long a full sync run takes
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitesync_sync_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
		},
	)

	// RemotePagesTotal counts list pages requested from the remote APIs
	RemotePagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitesync_remote_pages_total",
			Help: "Total number of remote list pages requested",
		},
		[]string{"entity_type", "status"}, // status: success, error
	)

	// RemoteRequestDuration measures remote API latency
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitesync_remote_request_duration_seconds",
			Help:    "Remote API request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"backend"},
	)

	// BatchItemsTotal counts items handled by the batch processor
	BatchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitesync_batch_items_total",
			Help: "Total number of batch items processed",
		},
		[]string{"status"}, // status: completed, failed
	)

	// BatchQueueDepth is the number of items waiting in the batch queue
	BatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitesync_batch_queue_depth",
			Help: "Number of items waiting in the batch queue",
		},
	)
)
