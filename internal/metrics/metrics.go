package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all the Prometheus metrics for the UEBA monitor.
type Metrics struct {
	EventsProcessedTotal    prometheus.Counter
	EventsInvalidTotal      prometheus.Counter
	FindingsTotal           *prometheus.CounterVec
	AlertsTotal             prometheus.Counter
	IsolationsTotal         prometheus.Counter
	ControlPublishErrors    prometheus.Counter
	EventProcessingDuration prometheus.Histogram
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a Metrics instance registered on the given registerer.
// Tests pass a fresh registry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ueba_events_processed_total",
			Help: "Total number of agent events processed",
		}),
		EventsInvalidTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ueba_events_invalid_total",
			Help: "Total number of undecodable agent events",
		}),
		FindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ueba_findings_total",
			Help: "Total number of anomaly findings by severity",
		}, []string{"severity"}),
		AlertsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ueba_alerts_total",
			Help: "Total number of alerts raised",
		}),
		IsolationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ueba_isolations_total",
			Help: "Total number of isolate commands published",
		}),
		ControlPublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ueba_control_publish_errors_total",
			Help: "Total number of control command publish failures",
		}),
		EventProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ueba_event_processing_duration_seconds",
			Help:    "Time spent processing a single agent event",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncEventsProcessed increments the processed events counter.
func (m *Metrics) IncEventsProcessed() {
	m.EventsProcessedTotal.Inc()
}

// IncEventsInvalid increments the invalid events counter.
func (m *Metrics) IncEventsInvalid() {
	m.EventsInvalidTotal.Inc()
}

// IncFindings increments the findings counter for a severity.
func (m *Metrics) IncFindings(severity string) {
	m.FindingsTotal.WithLabelValues(severity).Inc()
}

// IncAlerts increments the alerts counter.
func (m *Metrics) IncAlerts() {
	m.AlertsTotal.Inc()
}

// IncIsolations increments the isolations counter.
func (m *Metrics) IncIsolations() {
	m.IsolationsTotal.Inc()
}

// IncControlPublishErrors increments the control publish error counter.
func (m *Metrics) IncControlPublishErrors() {
	m.ControlPublishErrors.Inc()
}

// ObserveEventProcessingDuration records one event processing duration.
func (m *Metrics) ObserveEventProcessingDuration(seconds float64) {
	m.EventProcessingDuration.Observe(seconds)
}
