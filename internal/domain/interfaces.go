package domain

import "context"

// ChatPlatformClient is the chat platform capability shared by the poller,
// the dispatcher and the target classifier. Connect and Disconnect are owned
// by the application lifecycle.
type ChatPlatformClient interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	ListChats(ctx context.Context, includeChannels bool, limit int) ([]Chat, error)

	// FetchMessages returns messages with ID greater than sinceID, ascending by ID
	FetchMessages(ctx context.Context, chatID, sinceID int64, limit int) ([]Message, error)

	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) error
	SendImage(ctx context.Context, chatID int64, image []byte, caption string) error
	GetPermissions(ctx context.Context, chatID int64) (Capabilities, error)
}

// EventPublisher announces pipeline transitions to external consumers
type EventPublisher interface {
	PublishLinkTracked(ctx context.Context, event LinkTrackedEvent) error
	PublishLinkDispatched(ctx context.Context, event LinkDispatchedEvent) error
	IsHealthy() bool
	Close() error
}

// ImageStore caches downloaded product images by source URL
type ImageStore interface {
	// Get returns ok=false on a miss
	Get(ctx context.Context, sourceURL string) (data []byte, ok bool, err error)
	Put(ctx context.Context, sourceURL string, data []byte, contentType string) error
}
