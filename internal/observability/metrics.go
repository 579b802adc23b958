package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhotosIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegallery",
		Name:      "photos_indexed_total",
		Help:      "Total number of photos successfully added to the face index",
	}, []string{"event_id"})

	PhotosNoFace = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegallery",
		Name:      "photos_no_face_total",
		Help:      "Total number of photos skipped because no face was detected",
	}, []string{"event_id"})

	PhotosFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegallery",
		Name:      "photos_failed_total",
		Help:      "Total number of photos parked as failed after exhausting retries",
	}, []string{"event_id"})

	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "facegallery",
		Name:      "search_requests_total",
		Help:      "Total number of selfie searches by outcome",
	}, []string{"outcome"})

	SearchMatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "facegallery",
		Name:      "search_matches",
		Help:      "Number of matches returned per search",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facegallery",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	MismatchedCandidates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "facegallery",
		Name:      "mismatched_candidates_total",
		Help:      "Index entries skipped during matching due to embedding dimension mismatch",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegallery",
		Name:      "queue_depth",
		Help:      "Number of pending indexing tasks in queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "facegallery",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "facegallery",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
