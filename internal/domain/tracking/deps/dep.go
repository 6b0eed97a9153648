package deps

import (
	"context"

	"github.com/Conte777/affiliate-relay/internal/domain"
	affiliateentities "github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
)

// Repository defines cursor, processed-marker and link storage
type Repository interface {
	GetCursor(ctx context.Context, groupID string) (int64, error)
	ListCursors(ctx context.Context) (map[string]int64, error)

	// ProcessedIDs returns which of ids are already marked for groupID
	ProcessedIDs(ctx context.Context, groupID string, ids []int64) (map[int64]struct{}, error)

	// CommitPage marks examined messages processed and advances the cursor
	// to cursor (never backwards) in one transaction
	CommitPage(ctx context.Context, groupID string, cursor int64, examined []int64) error

	// InsertLink stores a new link. A duplicate original_url yields
	// DuplicateIgnored with a nil error.
	InsertLink(ctx context.Context, link *entities.TrackedLink) (entities.InsertOutcome, error)

	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// CursorCache keeps the last committed cursor per chat in memory
type CursorCache interface {
	Get(groupID string) (int64, bool)
	SetIfGreater(groupID string, cursor int64) bool
	LoadFromDB(ctx context.Context) error
}

// MessageFetcher reads source chat history
type MessageFetcher interface {
	FetchMessages(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error)
}

// SourceProvider returns the chats to monitor
type SourceProvider interface {
	Sources(ctx context.Context) ([]domain.Chat, error)
}

// DomainCatalog loads the active affiliate allow-list
type DomainCatalog interface {
	ActiveDomains(ctx context.Context) (*affiliateentities.DomainSet, error)
}
