// Package metrics registers the Prometheus instruments for the filing module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for filing operations.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	VersionConflicts  prometheus.Counter
	ApplicationsFiled prometheus.Counter
	EventsPublished   prometheus.Counter
}

// New creates and registers all filing metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "probata_filing_operations_total",
			Help: "Filing service operations by name and outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "probata_filing_operation_duration_seconds",
			Help:    "Filing service operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probata_filing_version_conflicts_total",
			Help: "Optimistic concurrency conflicts on application saves",
		}),
		ApplicationsFiled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probata_filing_applications_filed_total",
			Help: "Applications successfully filed with the court",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "probata_filing_events_published_total",
			Help: "Domain events handed to the publisher after saves",
		}),
	}
}

// ObserveOperation records one completed operation.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// IncrementVersionConflicts counts one lost optimistic-concurrency race.
func (m *Metrics) IncrementVersionConflicts() {
	if m == nil {
		return
	}
	m.VersionConflicts.Inc()
}

// IncrementApplicationsFiled counts one successful court filing.
func (m *Metrics) IncrementApplicationsFiled() {
	if m == nil {
		return
	}
	m.ApplicationsFiled.Inc()
}

// AddEventsPublished counts events handed to the publisher.
func (m *Metrics) AddEventsPublished(n int) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(float64(n))
}
