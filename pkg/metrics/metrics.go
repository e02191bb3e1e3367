package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics records counters for the sale ingestion path. All methods are
// nil safe so callers can skip registration in tests.
type SaleMetrics struct {
	recorded    *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
	stockErrors *prometheus.CounterVec
	payments    *prometheus.CounterVec
}

// NewSaleMetrics registers the sale metrics on the provided registerer.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		return &SaleMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Sales accepted and persisted.",
	}, []string{"payment_method"})
	duplicates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_duplicates_suppressed_total",
		Help: "Sale submissions rejected as duplicates.",
	}, []string{"source"})
	stockErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjust_failures_total",
		Help: "Per item stock adjustments that failed during sale recording.",
	}, []string{"reason"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credit_payments_recorded_total",
		Help: "Credit payments applied to the ledger.",
	}, []string{"allocation"})
	reg.MustRegister(recorded, duplicates, stockErrors, payments)
	return &SaleMetrics{
		recorded:    recorded,
		duplicates:  duplicates,
		stockErrors: stockErrors,
		payments:    payments,
	}
}

// IncRecorded counts an accepted sale by payment method.
func (s *SaleMetrics) IncRecorded(method string) {
	if s == nil || s.recorded == nil {
		return
	}
	s.recorded.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncDuplicate counts a suppressed duplicate. The source label distinguishes
// the idempotency key middleware from the heuristic payload scan.
func (s *SaleMetrics) IncDuplicate(source string) {
	if s == nil || s.duplicates == nil {
		return
	}
	s.duplicates.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncStockFailure counts a failed per item stock adjustment.
func (s *SaleMetrics) IncStockFailure(reason string) {
	if s == nil || s.stockErrors == nil {
		return
	}
	s.stockErrors.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncPayment counts an applied credit payment. The allocation label is
// "direct" for payments pinned to a sale and "fifo" for customer level
// payments spread across open sales.
func (s *SaleMetrics) IncPayment(allocation string) {
	if s == nil || s.payments == nil {
		return
	}
	s.payments.WithLabelValues(normalizeLabel(allocation)).Inc()
}

// PublisherMetrics records metadata for the outbox publish loop.
type PublisherMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPublisherMetrics registers the publisher metrics on the provided registerer.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of outbox publish batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_success_total",
		Help: "Outbox events published successfully.",
	}, []string{"topic"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failure_total",
		Help: "Outbox events that failed to publish.",
	}, []string{"topic"})
	reg.MustRegister(duration, success, failure)
	return &PublisherMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveBatch records the duration of a publish batch for the topic.
func (p *PublisherMetrics) ObserveBatch(topic string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(topic)).Observe(duration.Seconds())
}

// IncSuccess increments the publish success counter for the topic.
func (p *PublisherMetrics) IncSuccess(topic string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncFailure increments the publish failure counter for the topic.
func (p *PublisherMetrics) IncFailure(topic string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(topic)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
