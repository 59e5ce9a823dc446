package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromMetrics is the pull-based metrics set served on /metrics. It uses its own
// registry so tests can create as many as they like.
type PromMetrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sweepPublished  prometheus.Counter
	sweepFailed     prometheus.Counter
	submissions     *prometheus.CounterVec
}

// NewPromMetrics creates and registers the application collectors.
func NewPromMetrics(namespace string) *PromMetrics {
	registry := prometheus.NewRegistry()
	m := &PromMetrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		sweepPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_articles_published_total",
			Help:      "Scheduled articles published by the sweep",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_articles_failed_total",
			Help:      "Scheduled articles the sweep failed to publish",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "practitioner_submissions_total",
			Help:      "Practitioner intake submissions by kind",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestTotal,
		m.requestDuration,
		m.sweepPublished,
		m.sweepFailed,
		m.submissions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *PromMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one served HTTP request.
func (m *PromMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSubmission counts one intake submission.
func (m *PromMetrics) ObserveSubmission(isUpdate bool) {
	if m == nil {
		return
	}
	kind := "new"
	if isUpdate {
		kind = "update"
	}
	m.submissions.WithLabelValues(kind).Inc()
}

// SweepRecorder fans sweep outcomes out to the Prometheus and OpenTelemetry metrics.
// Either may be nil.
type SweepRecorder struct {
	Prom *PromMetrics
	OTel *Metrics
}

// RecordSweep implements the publish scheduler's recorder hook.
func (r SweepRecorder) RecordSweep(ctx context.Context, published, failed int) {
	if r.Prom != nil {
		r.Prom.sweepPublished.Add(float64(published))
		r.Prom.sweepFailed.Add(float64(failed))
	}
	RecordSweep(ctx, r.OTel, published, failed)
}
