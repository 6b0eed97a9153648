package kafka

import (
	"context"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the event publisher for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewEventPublisherFx),
)

// NewEventPublisherFx returns a Kafka producer, or a no-op publisher when
// KAFKA_BROKERS is empty
func NewEventPublisherFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (domain.EventPublisher, error) {
	if !kafkaCfg.Enabled() {
		logger.Info().Msg("Kafka brokers not configured, event publishing disabled")
		return NoopPublisher{}, nil
	}

	producer, err := NewEventProducer(ProducerConfig{
		Brokers:         kafkaCfg.Brokers,
		TopicTracked:    kafkaCfg.TopicTracked,
		TopicDispatched: kafkaCfg.TopicDispatched,
		Logger:          logger,
		Metrics:         m,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
