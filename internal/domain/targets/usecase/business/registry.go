package business

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
	targetserrors "github.com/Conte777/affiliate-relay/internal/domain/targets/errors"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
)

// Registry caches the current classification and refreshes it lazily
type Registry struct {
	lister  deps.ChatLister
	prefs   deps.PreferenceRepository
	cfg     *config.TargetsConfig
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	set         *entities.TargetSet
	refreshedAt time.Time
}

// NewRegistry creates a new target registry
func NewRegistry(
	lister deps.ChatLister,
	prefs deps.PreferenceRepository,
	cfg *config.TargetsConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Registry {
	return &Registry{
		lister:  lister,
		prefs:   prefs,
		cfg:     cfg,
		logger:  logger.With().Str("component", "targets").Logger(),
		metrics: m,
		now:     time.Now,
	}
}

// Sources returns the chats to poll for links
func (r *Registry) Sources(ctx context.Context) ([]domain.Chat, error) {
	set, err := r.Targets(ctx)
	if err != nil {
		return nil, err
	}
	return set.Sources, nil
}

// Destinations returns the chats to deliver to, in lister order
func (r *Registry) Destinations(ctx context.Context) ([]domain.Chat, error) {
	set, err := r.Targets(ctx)
	if err != nil {
		return nil, err
	}
	return set.Destinations, nil
}

// Targets returns the cached set, refreshing it when stale. A failed refresh
// keeps serving the previous set.
func (r *Registry) Targets(ctx context.Context) (entities.TargetSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.set != nil && r.now().Sub(r.refreshedAt) < r.cfg.RefreshInterval {
		return *r.set, nil
	}

	if err := r.refreshLocked(ctx); err != nil {
		if r.set != nil {
			r.logger.Warn().Err(err).
				Time("refreshed_at", r.refreshedAt).
				Msg("Target refresh failed, keeping previous set")
			return *r.set, nil
		}
		return entities.TargetSet{}, err
	}
	return *r.set, nil
}

// Invalidate forces the next lookup to refresh
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.refreshedAt = time.Time{}
	r.mu.Unlock()
}

func (r *Registry) refreshLocked(ctx context.Context) error {
	chats, err := r.lister.ListChats(ctx, true, r.cfg.ListLimit)
	if err != nil {
		return fmt.Errorf("failed to list chats: %w", err)
	}

	stored, err := r.prefs.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load chat preferences: %w", err)
	}

	prefs := make(map[string]entities.Purpose, len(stored))
	for _, p := range stored {
		prefs[p.ChatID] = p.Purpose
	}

	set := Classify(chats, prefs, entities.Policy(r.cfg.Policy))
	set.RefreshedAt = r.now()

	r.set = &set
	r.refreshedAt = set.RefreshedAt
	r.metrics.UpdateTargets(len(set.Sources), len(set.Destinations))

	r.logger.Info().
		Int("chats", len(chats)).
		Int("sources", len(set.Sources)).
		Int("destinations", len(set.Destinations)).
		Str("policy", r.cfg.Policy).
		Msg("Targets refreshed")

	return nil
}

// ListPreferences returns all manual classifications
func (r *Registry) ListPreferences(ctx context.Context) ([]entities.ChatPreference, error) {
	return r.prefs.List(ctx)
}

// SetPreference stores a manual classification and invalidates the cache
func (r *Registry) SetPreference(ctx context.Context, chatID, purpose string) error {
	if _, err := strconv.ParseInt(chatID, 10, 64); err != nil {
		return targetserrors.ErrInvalidChatID
	}
	p, ok := entities.ParsePurpose(purpose)
	if !ok {
		return targetserrors.ErrInvalidPurpose
	}

	if err := r.prefs.Set(ctx, chatID, p); err != nil {
		return err
	}
	r.Invalidate()

	r.logger.Info().Str("chat_id", chatID).Str("purpose", string(p)).Msg("Chat preference set")
	return nil
}

// ClearPreference removes a manual classification and invalidates the cache
func (r *Registry) ClearPreference(ctx context.Context, chatID string) error {
	if _, err := strconv.ParseInt(chatID, 10, 64); err != nil {
		return targetserrors.ErrInvalidChatID
	}

	if err := r.prefs.Delete(ctx, chatID); err != nil {
		return err
	}
	r.Invalidate()

	r.logger.Info().Str("chat_id", chatID).Msg("Chat preference cleared")
	return nil
}
