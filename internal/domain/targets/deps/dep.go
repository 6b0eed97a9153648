package deps

import (
	"context"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
)

// PreferenceRepository stores manual chat classifications
type PreferenceRepository interface {
	List(ctx context.Context) ([]entities.ChatPreference, error)
	Set(ctx context.Context, chatID string, purpose entities.Purpose) error
	Delete(ctx context.Context, chatID string) error
}

// ChatLister lists dialogs visible to the operating account, sorted by name
type ChatLister interface {
	ListChats(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error)
}
