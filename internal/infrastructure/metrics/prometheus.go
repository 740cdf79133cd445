// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "videohub"

var (
	// CacheOperationsTotal tracks cache operations (get, set).
	// Labels:
	//   - operation: get, set
	//   - status: hit, miss, stale, success, error
	//   - cache_type: redis
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - group: refresh, realtime
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"group", "result"},
	)

	// UpstreamRequestsTotal tracks upstream HTTP calls.
	// Labels:
	//   - endpoint: folders, folder_videos, realtime
	//   - outcome: ok, unauthorized, error, timeout
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream API requests",
		},
		[]string{"endpoint", "outcome"},
	)

	// UpstreamPageFailuresTotal counts folder pages that degraded to zero videos.
	UpstreamPageFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_page_failures_total",
			Help:      "Total number of folder pages that failed and contributed no videos",
		},
	)

	// RefreshCyclesTotal tracks background refresh cycles.
	// Labels:
	//   - result: success, failed, skipped
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Total number of snapshot refresh cycles",
		},
		[]string{"result"},
	)

	// RefreshDuration observes the wall time of completed refresh cycles.
	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of snapshot refresh cycles",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	// SnapshotVideos is the number of videos in the installed snapshot.
	SnapshotVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_videos",
			Help:      "Number of videos in the current snapshot",
		},
	)

	// SnapshotFolders is the number of folders in the installed snapshot.
	SnapshotFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_folders",
			Help:      "Number of folders in the current snapshot",
		},
	)

	// SnapshotTimestamp is the capture time of the installed snapshot (unix seconds).
	SnapshotTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_timestamp_seconds",
			Help:      "Unix time the current snapshot was captured",
		},
	)

	// HTTPRequestsTotal tracks served HTTP requests.
	// Labels:
	//   - route: chi route pattern (e.g. /v1/videos/{id}), "unmatched" for 404s
	//   - method: HTTP method
	//   - status: response status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration observes request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// PlaybackSessionsTotal tracks player sessions.
	// Labels:
	//   - event: started, ended
	PlaybackSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_sessions_total",
			Help:      "Total number of playback sessions started and ended",
		},
		[]string{"event"},
	)

	// BackupsTotal tracks backup runs.
	// Labels:
	//   - trigger: scheduled, task
	//   - result: success, error
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Total number of backup runs",
		},
		[]string{"trigger", "result"},
	)
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusStale   = "stale"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpGet = "get"
	CacheOpSet = "set"
)

// Cache type constants.
const (
	CacheTypeRedis = "redis"
)

// Singleflight group and result constants.
const (
	SingleflightGroupRefresh  = "refresh"
	SingleflightGroupRealtime = "realtime"

	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Upstream endpoint and outcome constants.
const (
	EndpointFolders      = "folders"
	EndpointFolderVideos = "folder_videos"
	EndpointRealtime     = "realtime"

	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
	OutcomeTimeout      = "timeout"
)

// Refresh result constants.
const (
	RefreshSuccess = "success"
	RefreshFailed  = "failed"
	RefreshSkipped = "skipped"
)

// Playback session event constants.
const (
	PlaybackStarted = "started"
	PlaybackEnded   = "ended"
)

// Backup trigger and result constants.
const (
	BackupTriggerScheduled = "scheduled"
	BackupTriggerTask      = "task"

	BackupResultSuccess = "success"
	BackupResultError   = "error"
)

// RecordSingleflight records whether a singleflight call was shared.
func RecordSingleflight(group string, shared bool) {
	if shared {
		SingleflightRequestsTotal.WithLabelValues(group, SingleflightShared).Inc()
		return
	}
	SingleflightRequestsTotal.WithLabelValues(group, SingleflightInitiated).Inc()
}
