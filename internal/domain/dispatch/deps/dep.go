package deps

import (
	"context"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
)

// Repository defines delivery state storage
type Repository interface {
	// ReadyLinks returns ready links without a telegram_sent row, oldest first
	ReadyLinks(ctx context.Context, limit int) ([]trackingentities.TrackedLink, error)

	// MarkDelivered records the send and completes the link in one transaction
	MarkDelivered(ctx context.Context, linkID uint) error

	RecordAttempt(ctx context.Context, attempt entities.DeliveryAttempt) error
}

// Sender delivers rendered messages
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, opts domain.SendOptions) error
	SendImage(ctx context.Context, chatID int64, image []byte, caption string) error
}

// DestinationProvider returns the chats to deliver to
type DestinationProvider interface {
	Destinations(ctx context.Context) ([]domain.Chat, error)
}

// ImageFetcher downloads product images
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
