package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func mockConfig() *sarama.Config {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	return cfg
}

func testProducer(mp sarama.AsyncProducer) *EventProducer {
	return newEventProducer(mp, ProducerConfig{
		TopicTracked:    "links.tracked",
		TopicDispatched: "links.dispatched",
		Logger:          zerolog.Nop(),
		Metrics:         metrics.GetDefaultMetrics(),
	})
}

func TestNewEventProducer_Validation(t *testing.T) {
	_, err := NewEventProducer(ProducerConfig{TopicTracked: "a", TopicDispatched: "b", Logger: zerolog.Nop()})
	require.EqualError(t, err, "no kafka brokers specified")

	_, err = NewEventProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Logger: zerolog.Nop()})
	require.EqualError(t, err, "kafka topics are required")
}

func TestEventProducer_PublishLinkTracked(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, mockConfig())

	var got domain.LinkTrackedEvent
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "links.tracked" {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			return errors.New("wrong key " + string(key))
		}
		value, _ := msg.Value.Encode()
		return json.Unmarshal(value, &got)
	})

	before := testutil.ToFloat64(metrics.GetDefaultMetrics().KafkaMessagesProduced)

	p := testProducer(mp)
	err := p.PublishLinkTracked(context.Background(), domain.LinkTrackedEvent{
		EventID:     "e1",
		LinkID:      42,
		OriginalURL: "https://shop.example.com/item",
		CreatedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.True(t, p.IsHealthy())

	require.NoError(t, p.Close())
	require.Equal(t, "https://shop.example.com/item", got.OriginalURL)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.GetDefaultMetrics().KafkaMessagesProduced))
}

func TestEventProducer_DeliveryFailureIsCounted(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, mockConfig())
	mp.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	counter := metrics.GetDefaultMetrics().KafkaProduceErrors.WithLabelValues("links.dispatched")
	before := testutil.ToFloat64(counter)

	p := testProducer(mp)
	err := p.PublishLinkDispatched(context.Background(), domain.LinkDispatchedEvent{LinkID: 7, SentAt: time.Now()})
	require.NoError(t, err, "delivery failures are asynchronous")

	_ = p.Close()
	require.Equal(t, int64(1), p.failures.Load())
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestEventProducer_ClosedRejectsAndIsUnhealthy(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, mockConfig())

	p := testProducer(mp)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "close is idempotent")

	require.False(t, p.IsHealthy())
	require.Error(t, p.PublishLinkTracked(context.Background(), domain.LinkTrackedEvent{LinkID: 1}))
}

func TestEventProducer_UnhealthyAfterFailureRun(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, mockConfig())
	p := testProducer(mp)
	defer p.Close()

	p.failures.Store(unhealthyAfter)
	require.False(t, p.IsHealthy())
}

func TestNoopPublisher(t *testing.T) {
	var p domain.EventPublisher = NoopPublisher{}
	require.NoError(t, p.PublishLinkTracked(context.Background(), domain.LinkTrackedEvent{}))
	require.NoError(t, p.PublishLinkDispatched(context.Background(), domain.LinkDispatchedEvent{}))
	require.True(t, p.IsHealthy())
	require.NoError(t, p.Close())
}
