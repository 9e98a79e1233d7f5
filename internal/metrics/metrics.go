// Package metrics holds the prometheus collectors for reelbox and the HTTP
// listener that exposes them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelbox"

// Delivery outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeAbandoned = "abandoned"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	deliveriesStarted prometheus.Counter
	deliveries        *prometheus.CounterVec
	itemsSent         prometheus.Counter
	itemErrors        prometheus.Counter
	retries           prometheus.Counter
	duration          prometheus.Histogram
	batchSize         prometheus.Histogram
	filesAdded        *prometheus.CounterVec
	groupsDeleted     prometheus.Counter
	filesDeleted      prometheus.Counter
	cleanupRemoved    *prometheus.CounterVec
}

// New registers the reelbox collectors plus the Go runtime and process
// collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		deliveriesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_started_total",
			Help:      "Batches that left the preparing state.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Finished batches by outcome.",
		}, []string{"outcome"}),
		itemsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_sent_total",
			Help:      "Items copied to recipients.",
		}),
		itemErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_errors_total",
			Help:      "Items that could not be copied.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_retries_total",
			Help:      "Copy attempts repeated after a rate limit or transient error.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Wall time of completed batches.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_batch_items",
			Help:      "Items per started batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		filesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_added_total",
			Help:      "Files registered by admins, by resolution.",
		}, []string{"resolution"}),
		groupsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_deleted_total",
			Help:      "Series removed from the catalog.",
		}),
		filesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_deleted_total",
			Help:      "Files removed together with their series.",
		}),
		cleanupRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_removed_total",
			Help:      "Rows removed by cleanup runs, by kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.deliveriesStarted, m.deliveries, m.itemsSent, m.itemErrors, m.retries,
		m.duration, m.batchSize, m.filesAdded, m.groupsDeleted, m.filesDeleted,
		m.cleanupRemoved,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RegisterGauge adds a gauge whose value is read from fn at scrape time.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) error {
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) DeliveryStarted(total int) {
	m.deliveriesStarted.Inc()
	m.batchSize.Observe(float64(total))
}

// DeliveryCompleted records a batch that delivered at least one item.
func (m *Metrics) DeliveryCompleted(sent, errs, retries int, took time.Duration) {
	m.deliveries.WithLabelValues(OutcomeCompleted).Inc()
	m.itemsSent.Add(float64(sent))
	m.itemErrors.Add(float64(errs))
	m.retries.Add(float64(retries))
	m.duration.Observe(took.Seconds())
}

// DeliveryFailed records a batch that delivered nothing.
func (m *Metrics) DeliveryFailed(errs int, abandoned bool) {
	outcome := OutcomeFailed
	if abandoned {
		outcome = OutcomeAbandoned
	}
	m.deliveries.WithLabelValues(outcome).Inc()
	m.itemErrors.Add(float64(errs))
}

func (m *Metrics) FileAdded(resolution string) {
	m.filesAdded.WithLabelValues(resolution).Inc()
}

func (m *Metrics) GroupDeleted(removed int64) {
	m.groupsDeleted.Inc()
	m.filesDeleted.Add(float64(removed))
}

func (m *Metrics) CleanupCompleted(duplicates, mappings int64) {
	m.cleanupRemoved.WithLabelValues("duplicates").Add(float64(duplicates))
	m.cleanupRemoved.WithLabelValues("mappings").Add(float64(mappings))
}
