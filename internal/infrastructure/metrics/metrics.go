package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the relay
type Metrics struct {
	// Poller metrics
	PollCyclesTotal   prometheus.Counter
	PollErrors        *prometheus.CounterVec
	MessagesInspected prometheus.Counter
	LinksSaved        prometheus.Counter
	LinksDuplicate    prometheus.Counter
	PollCycleDuration prometheus.Histogram

	// Dispatcher metrics
	DispatchCyclesTotal   prometheus.Counter
	DeliveriesTotal       *prometheus.CounterVec
	SendErrors            *prometheus.CounterVec
	LinksDispatched       prometheus.Counter
	CommitFailures        prometheus.Counter
	DispatchCycleDuration prometheus.Histogram
	ImageFetches          *prometheus.CounterVec

	// Platform metrics
	RateLimitWaits *prometheus.CounterVec

	// Targets
	SourceChats      prometheus.Gauge
	DestinationChats prometheus.Gauge

	// Kafka metrics
	KafkaMessagesProduced prometheus.Counter
	KafkaProduceErrors    *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics registers every collector with the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		PollCyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_poll_cycles_total",
			Help: "Total number of source poll cycles",
		}),
		PollErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_relay_poll_errors_total",
				Help: "Total number of per-chat poll errors",
			},
			[]string{"error_type"},
		),
		MessagesInspected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_messages_inspected_total",
			Help: "Total number of source messages inspected for links",
		}),
		LinksSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_links_saved_total",
			Help: "Total number of new tracked links",
		}),
		LinksDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_links_duplicate_total",
			Help: "Total number of matched links that were already tracked",
		}),
		PollCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "affiliate_relay_poll_cycle_duration_seconds",
			Help:    "Duration of source poll cycles in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		DispatchCyclesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_dispatch_cycles_total",
			Help: "Total number of dispatch cycles",
		}),
		DeliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_relay_deliveries_total",
				Help: "Total number of per-destination delivery attempts",
			},
			[]string{"result"},
		),
		SendErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_relay_send_errors_total",
				Help: "Total number of send errors",
			},
			[]string{"reason"},
		),
		LinksDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_links_dispatched_total",
			Help: "Total number of links delivered to at least one destination",
		}),
		CommitFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_delivery_commit_failures_total",
			Help: "Total number of delivered links whose completion could not be recorded",
		}),
		DispatchCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "affiliate_relay_dispatch_cycle_duration_seconds",
			Help:    "Duration of dispatch cycles in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ImageFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_relay_image_fetches_total",
				Help: "Total number of product image fetches",
			},
			[]string{"result"},
		),

		RateLimitWaits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_relay_rate_limit_waits_total",
				Help: "Total number of rate limit waits",
			},
			[]string{"op"},
		),

		SourceChats: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "affiliate_relay_source_chats",
			Help: "Current number of source chats",
		}),
		DestinationChats: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "affiliate_relay_destination_chats",
			Help: "Current number of destination chats",
		}),

		KafkaMessagesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_relay_kafka_messages_produced_total",
			Help: "Total number of events produced to Kafka",
		}),
		KafkaProduceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_relay_kafka_produce_errors_total",
				Help: "Total number of Kafka produce errors",
			},
			[]string{"topic"},
		),
	}
}

// RecordPollCycle records a finished poll cycle
func (m *Metrics) RecordPollCycle(inspected, saved, duplicates int, duration float64) {
	m.PollCyclesTotal.Inc()
	// Only add positive values to prevent counter from going backwards
	if inspected > 0 {
		m.MessagesInspected.Add(float64(inspected))
	}
	if saved > 0 {
		m.LinksSaved.Add(float64(saved))
	}
	if duplicates > 0 {
		m.LinksDuplicate.Add(float64(duplicates))
	}
	m.PollCycleDuration.Observe(duration)
}

// RecordPollError records a per-chat poll error
func (m *Metrics) RecordPollError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.PollErrors.WithLabelValues(errorType).Inc()
}

// RecordDispatchCycle records a finished dispatch cycle
func (m *Metrics) RecordDispatchCycle(dispatched int, duration float64) {
	m.DispatchCyclesTotal.Inc()
	if dispatched > 0 {
		m.LinksDispatched.Add(float64(dispatched))
	}
	m.DispatchCycleDuration.Observe(duration)
}

// RecordDelivery records one destination attempt
func (m *Metrics) RecordDelivery(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.DeliveriesTotal.WithLabelValues(result).Inc()
}

// RecordCommitFailure records a delivered link left without its sent mark
func (m *Metrics) RecordCommitFailure() {
	m.CommitFailures.Inc()
}

// RecordSendError records a send error by reason
func (m *Metrics) RecordSendError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.SendErrors.WithLabelValues(reason).Inc()
}

// RecordImageFetch records an image fetch outcome ("ok", "error", "mirror")
func (m *Metrics) RecordImageFetch(result string) {
	m.ImageFetches.WithLabelValues(result).Inc()
}

// RecordRateLimitWait records a rate limit sleep
func (m *Metrics) RecordRateLimitWait(op string) {
	m.RateLimitWaits.WithLabelValues(op).Inc()
}

// UpdateTargets updates the target set gauges
func (m *Metrics) UpdateTargets(sources, destinations int) {
	m.SourceChats.Set(float64(sources))
	m.DestinationChats.Set(float64(destinations))
}

// RecordKafkaMessage records a produced event
func (m *Metrics) RecordKafkaMessage() {
	m.KafkaMessagesProduced.Inc()
}

// RecordKafkaError records a Kafka produce error for topic
func (m *Metrics) RecordKafkaError(topic string) {
	m.KafkaProduceErrors.WithLabelValues(topic).Inc()
}
