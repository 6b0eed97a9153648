package cache

import (
	"context"
	"sync"

	trackingdeps "github.com/Conte777/affiliate-relay/internal/domain/tracking/deps"
	"github.com/rs/zerolog"
)

// cursorCache keeps the last committed message ID per source chat so the
// poller does not read channel_cursor before every fetch
type cursorCache struct {
	data   map[string]int64
	mu     sync.RWMutex
	repo   trackingdeps.Repository
	logger zerolog.Logger
}

// NewCursorCache creates a new CursorCache instance
func NewCursorCache(repo trackingdeps.Repository, logger zerolog.Logger) trackingdeps.CursorCache {
	return &cursorCache{
		data:   make(map[string]int64),
		repo:   repo,
		logger: logger.With().Str("component", "cursor_cache").Logger(),
	}
}

// Get returns the cached cursor for a chat
func (c *cursorCache) Get(groupID string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cursor, exists := c.data[groupID]
	return cursor, exists
}

// SetIfGreater atomically updates the cache only if cursor > current
func (c *cursorCache) SetIfGreater(groupID string, cursor int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, exists := c.data[groupID]
	if !exists || cursor > current {
		c.data[groupID] = cursor
		c.logger.Debug().
			Str("group_id", groupID).
			Int64("old_cursor", current).
			Int64("new_cursor", cursor).
			Msg("updated cached cursor")
		return true
	}

	return false
}

// LoadFromDB loads all stored cursors into the cache
func (c *cursorCache) LoadFromDB(ctx context.Context) error {
	cursors, err := c.repo.ListCursors(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for groupID, cursor := range cursors {
		if cursor > c.data[groupID] {
			c.data[groupID] = cursor
		}
	}

	c.logger.Info().
		Int("chats_loaded", len(cursors)).
		Msg("loaded cursors from database")

	return nil
}
