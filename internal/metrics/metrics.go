// Package metrics exposes job throughput and queue health counters over the
// Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles all collectors the coordinator and API server touch.
type Metrics struct {
	registry *prometheus.Registry

	JobsSubmitted   prometheus.Counter
	JobsRejected    prometheus.Counter
	JobsFinished    *prometheus.CounterVec
	OvershootRetry  prometheus.Counter
	StaleSwept      prometheus.Counter
	QueueDepth      prometheus.Gauge
	ActiveWorkers   prometheus.Gauge
	EncodeSeconds   prometheus.Histogram
	OutputSizeBytes prometheus.Histogram
}

// New builds the collector set on a private registry so tests never collide
// on the global default.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "squeeze_jobs_submitted_total",
			Help: "Jobs accepted for compression.",
		}),
		JobsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "squeeze_jobs_rejected_total",
			Help: "Submissions rejected by queue admission control.",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "squeeze_jobs_finished_total",
			Help: "Jobs that reached a terminal state, by status.",
		}, []string{"status"}),
		OvershootRetry: factory.NewCounter(prometheus.CounterOpts{
			Name: "squeeze_overshoot_retries_total",
			Help: "Encode attempts rerun with a corrected bitrate.",
		}),
		StaleSwept: factory.NewCounter(prometheus.CounterOpts{
			Name: "squeeze_stale_jobs_swept_total",
			Help: "Jobs force-cleaned by the background sweep.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "squeeze_queue_depth",
			Help: "Jobs currently queued or processing.",
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "squeeze_active_workers",
			Help: "Worker slots currently running an encode.",
		}),
		EncodeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "squeeze_encode_duration_seconds",
			Help:    "Wall time of completed encode attempts.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		}),
		OutputSizeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "squeeze_output_size_bytes",
			Help:    "Size of produced output files.",
			Buckets: prometheus.ExponentialBuckets(256*1024, 4, 8),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
