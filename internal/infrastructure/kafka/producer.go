package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const (
	// unhealthyAfter consecutive delivery failures marks the producer unhealthy
	unhealthyAfter = 10

	closeTimeout = 10 * time.Second
)

// EventProducer publishes pipeline events with an asynchronous producer.
// Delivery failures are logged and counted, never returned to the caller.
type EventProducer struct {
	producer        sarama.AsyncProducer
	topicTracked    string
	topicDispatched string
	logger          zerolog.Logger
	metrics         *metrics.Metrics

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
	failures  atomic.Int64
}

// ProducerConfig holds configuration for EventProducer
type ProducerConfig struct {
	Brokers         []string
	TopicTracked    string
	TopicDispatched string
	Logger          zerolog.Logger
	Metrics         *metrics.Metrics
}

// NewEventProducer connects an async producer to the brokers
func NewEventProducer(cfg ProducerConfig) (*EventProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.TopicTracked == "" || cfg.TopicDispatched == "" {
		return nil, fmt.Errorf("kafka topics are required")
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.ClientID = "affiliate-relay-producer"
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := newEventProducer(producer, cfg)

	cfg.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic_tracked", cfg.TopicTracked).
		Str("topic_dispatched", cfg.TopicDispatched).
		Msg("Kafka producer initialized successfully")

	return p, nil
}

func newEventProducer(producer sarama.AsyncProducer, cfg ProducerConfig) *EventProducer {
	m := cfg.Metrics
	if m == nil {
		m = metrics.GetDefaultMetrics()
	}

	p := &EventProducer{
		producer:        producer,
		topicTracked:    cfg.TopicTracked,
		topicDispatched: cfg.TopicDispatched,
		logger:          cfg.Logger.With().Str("component", "kafka_producer").Logger(),
		metrics:         m,
	}

	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	return p
}

// PublishLinkTracked queues a link.tracked event keyed by link ID
func (p *EventProducer) PublishLinkTracked(ctx context.Context, event domain.LinkTrackedEvent) error {
	return p.publish(ctx, p.topicTracked, event.LinkID, event.CreatedAt, event)
}

// PublishLinkDispatched queues a link.dispatched event keyed by link ID
func (p *EventProducer) PublishLinkDispatched(ctx context.Context, event domain.LinkDispatchedEvent) error {
	return p.publish(ctx, p.topicDispatched, event.LinkID, event.SentAt, event)
}

func (p *EventProducer) publish(ctx context.Context, topic string, linkID uint, ts time.Time, event any) error {
	if p.closed.Load() {
		return fmt.Errorf("kafka producer is closed")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(strconv.FormatUint(uint64(linkID), 10)),
		Value:     sarama.ByteEncoder(value),
		Timestamp: ts,
	}

	select {
	case p.producer.Input() <- msg:
		p.logger.Debug().
			Str("topic", topic).
			Uint("link_id", linkID).
			Msg("Event queued for sending to Kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while sending message: %w", ctx.Err())
	}
}

func (p *EventProducer) handleSuccesses() {
	defer p.wg.Done()

	for msg := range p.producer.Successes() {
		p.failures.Store(0)
		p.metrics.RecordKafkaMessage()
		p.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Message sent to Kafka successfully")
	}
}

func (p *EventProducer) handleErrors() {
	defer p.wg.Done()

	for producerErr := range p.producer.Errors() {
		p.failures.Add(1)
		p.metrics.RecordKafkaError(producerErr.Msg.Topic)
		p.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Interface("key", producerErr.Msg.Key).
			Msg("Failed to send message to Kafka")
	}
}

// IsHealthy reports false once closed or after a run of delivery failures
func (p *EventProducer) IsHealthy() bool {
	return !p.closed.Load() && p.failures.Load() < unhealthyAfter
}

// Close flushes pending messages and waits for the handlers. It is idempotent.
func (p *EventProducer) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.logger.Info().Msg("Closing Kafka producer")

		if err := p.producer.Close(); err != nil {
			p.closeErr = fmt.Errorf("producer close failed: %w", err)
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(closeTimeout):
			p.closeErr = fmt.Errorf("close timeout after %s: handlers did not finish in time", closeTimeout)
		}

		if p.closeErr != nil {
			p.logger.Error().Err(p.closeErr).Msg("Kafka producer closed with errors")
		} else {
			p.logger.Info().Msg("Kafka producer closed successfully")
		}
	})

	return p.closeErr
}

var _ domain.EventPublisher = (*EventProducer)(nil)
