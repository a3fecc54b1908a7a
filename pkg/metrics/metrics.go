package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics tracks processing throughput, latency and failures.
type PipelineMetrics struct {
	RequestsTotal      prometheus.Counter
	ProcessingDuration prometheus.Histogram
	ErrorsTotal        *prometheus.CounterVec
	DegradedLookups    *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		RequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "email_processor_requests_total",
			Help: "Total emails submitted for processing",
		}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "email_processing_duration_seconds",
			Help:    "End-to-end processing duration",
			Buckets: prometheus.DefBuckets,
		}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "email_processor_errors_total",
			Help: "Processing failures by pipeline stage",
		}, []string{"stage"}),
		DegradedLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "email_processor_degraded_lookups_total",
			Help: "Context lookups that fell back to empty results",
		}, []string{"collaborator"}),
	}
}

// ObserveRequest records one processed email and its duration.
func (m *PipelineMetrics) ObserveRequest(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.Inc()
	m.ProcessingDuration.Observe(elapsed.Seconds())
}

// ObserveError records a failure at the given stage.
func (m *PipelineMetrics) ObserveError(stage string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

// ObserveDegraded records a lookup that degraded to an empty result.
func (m *PipelineMetrics) ObserveDegraded(collaborator string) {
	if m == nil {
		return
	}
	m.DegradedLookups.WithLabelValues(collaborator).Inc()
}
