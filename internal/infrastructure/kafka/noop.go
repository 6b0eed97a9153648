package kafka

import (
	"context"

	"github.com/Conte777/affiliate-relay/internal/domain"
)

// NoopPublisher drops events; used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishLinkTracked(context.Context, domain.LinkTrackedEvent) error {
	return nil
}

func (NoopPublisher) PublishLinkDispatched(context.Context, domain.LinkDispatchedEvent) error {
	return nil
}

func (NoopPublisher) IsHealthy() bool { return true }
func (NoopPublisher) Close() error    { return nil }

var _ domain.EventPublisher = NoopPublisher{}
