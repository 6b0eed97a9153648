package business

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	affiliateentities "github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/Conte777/affiliate-relay/pkg/linkurl"
	"github.com/Conte777/affiliate-relay/pkg/pacing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UseCase implements source polling and link capture
type UseCase struct {
	repo      deps.Repository
	cursors   deps.CursorCache
	fetcher   deps.MessageFetcher
	sources   deps.SourceProvider
	catalog   deps.DomainCatalog
	publisher domain.EventPublisher
	cfg       *config.PollerConfig
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewUseCase creates a new tracking use case
func NewUseCase(
	repo deps.Repository,
	cursors deps.CursorCache,
	fetcher deps.MessageFetcher,
	sources deps.SourceProvider,
	catalog deps.DomainCatalog,
	publisher domain.EventPublisher,
	cfg *config.PollerConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		repo:      repo,
		cursors:   cursors,
		fetcher:   fetcher,
		sources:   sources,
		catalog:   catalog,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "poller").Logger(),
		metrics:   m,
	}
}

// PollSources runs one poll cycle over every source chat
func (u *UseCase) PollSources(ctx context.Context) error {
	start := time.Now()
	logger := u.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	domains, err := u.catalog.ActiveDomains(ctx)
	if err != nil {
		u.metrics.RecordPollError("domains")
		return fmt.Errorf("failed to load affiliate domains: %w", err)
	}
	if domains.Len() == 0 {
		logger.Warn().Msg("No active affiliate domains, skipping poll cycle")
		return nil
	}

	chats, err := u.sources.Sources(ctx)
	if err != nil {
		u.metrics.RecordPollError("sources")
		return fmt.Errorf("failed to load source chats: %w", err)
	}
	if len(chats) == 0 {
		logger.Debug().Msg("No source chats")
		return nil
	}

	logger.Info().
		Int("chats_count", len(chats)).
		Int("domains_count", domains.Len()).
		Msg("Polling source chats")

	var total entities.PollStats
	failedChats := 0

	for i, chat := range chats {
		if i > 0 {
			if err := pacing.Sleep(ctx, u.cfg.ChatPause); err != nil {
				logger.Warn().
					Int("processed_chats", i).
					Int("total_chats", len(chats)).
					Msg("Poll cycle cancelled by context")
				return err
			}
		}

		stats, err := u.pollChat(ctx, logger, chat, domains)
		if err != nil {
			failedChats++
			u.metrics.RecordPollError(errorType(err))
			logger.Error().Err(err).
				Str("chat_id", chat.Key()).
				Str("chat_name", chat.Name).
				Msg("Failed to poll chat")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		total.Fetched += stats.Fetched
		total.Inspected += stats.Inspected
		total.Skipped += stats.Skipped
		total.Saved += stats.Saved
		total.Duplicates += stats.Duplicates
		total.Failed += stats.Failed
	}

	logger.Info().
		Int("fetched", total.Fetched).
		Int("inspected", total.Inspected).
		Int("skipped", total.Skipped).
		Int("saved", total.Saved).
		Int("duplicates", total.Duplicates).
		Int("failed_chats", failedChats).
		Msg("Poll cycle completed")

	u.metrics.RecordPollCycle(total.Inspected, total.Saved, total.Duplicates, time.Since(start).Seconds())
	return nil
}

// PollChat runs one poll of a single chat against the current allow-list
func (u *UseCase) PollChat(ctx context.Context, chat domain.Chat) (entities.PollStats, error) {
	domains, err := u.catalog.ActiveDomains(ctx)
	if err != nil {
		return entities.PollStats{ChatID: chat.Key()}, fmt.Errorf("failed to load affiliate domains: %w", err)
	}
	return u.pollChat(ctx, u.logger, chat, domains)
}

func (u *UseCase) pollChat(
	ctx context.Context,
	logger zerolog.Logger,
	chat domain.Chat,
	domains *affiliateentities.DomainSet,
) (entities.PollStats, error) {
	groupID := chat.Key()
	stats := entities.PollStats{ChatID: groupID}

	cursor, err := u.cursor(ctx, groupID)
	if err != nil {
		return stats, err
	}
	stats.Cursor = cursor

	messages, err := u.fetch(ctx, logger, chat.ID, cursor)
	if err != nil {
		return stats, err
	}
	messages = newerThan(messages, cursor)
	stats.Fetched = len(messages)
	if len(messages) == 0 {
		return stats, nil
	}

	ids := make([]int64, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID
	}

	processed, err := u.repo.ProcessedIDs(ctx, groupID, ids)
	if err != nil {
		return stats, err
	}

	pageMax := cursor
	examined := make([]int64, 0, len(messages))

	for _, msg := range messages {
		if msg.ID > pageMax {
			pageMax = msg.ID
		}
		if _, done := processed[msg.ID]; done {
			stats.Skipped++
			continue
		}

		examined = append(examined, msg.ID)
		stats.Inspected++

		if msg.Text == "" {
			continue
		}
		u.captureLinks(ctx, logger, groupID, msg, domains, &stats)
	}

	if err := u.repo.CommitPage(ctx, groupID, pageMax, examined); err != nil {
		return stats, err
	}
	u.cursors.SetIfGreater(groupID, pageMax)
	stats.Cursor = pageMax

	logger.Debug().
		Str("chat_id", groupID).
		Int("fetched", stats.Fetched).
		Int("inspected", stats.Inspected).
		Int("saved", stats.Saved).
		Int64("cursor", pageMax).
		Msg("Chat polled")

	return stats, nil
}

func (u *UseCase) captureLinks(
	ctx context.Context,
	logger zerolog.Logger,
	groupID string,
	msg domain.Message,
	domains *affiliateentities.DomainSet,
	stats *entities.PollStats,
) {
	for _, raw := range linkurl.ExtractURLs(msg.Text) {
		canonical := linkurl.Canonicalize(raw)
		match, ok := domains.Match(canonical)
		if !ok {
			continue
		}

		link := &entities.TrackedLink{
			OriginalURL: canonical,
			Domain:      match.Domain,
			GroupJID:    groupID,
			CopyText:    entities.CopyText{Text: msg.Text, MatchedText: raw}.Encode(),
			Status:      entities.StatusPending,
		}

		outcome, err := u.repo.InsertLink(ctx, link)
		switch outcome {
		case entities.Inserted:
			stats.Saved++
			logger.Info().
				Str("chat_id", groupID).
				Int64("message_id", msg.ID).
				Str("domain", match.Domain).
				Uint("link_id", link.ID).
				Msg("Affiliate link tracked")
			u.publishTracked(ctx, logger, link, raw)
		case entities.DuplicateIgnored:
			stats.Duplicates++
			logger.Debug().
				Str("chat_id", groupID).
				Str("url", canonical).
				Msg("Link already tracked")
		default:
			stats.Failed++
			logger.Error().Err(err).
				Str("chat_id", groupID).
				Int64("message_id", msg.ID).
				Str("url", canonical).
				Msg("Failed to save tracked link")
		}
	}
}

func (u *UseCase) publishTracked(ctx context.Context, logger zerolog.Logger, link *entities.TrackedLink, raw string) {
	event := domain.LinkTrackedEvent{
		EventID:     uuid.NewString(),
		LinkID:      link.ID,
		OriginalURL: link.OriginalURL,
		MatchedText: raw,
		Domain:      link.Domain,
		GroupJID:    link.GroupJID,
		CreatedAt:   link.CreatedAt,
	}
	if err := u.publisher.PublishLinkTracked(ctx, event); err != nil {
		logger.Warn().Err(err).Uint("link_id", link.ID).Msg("Failed to publish link tracked event")
	}
}

func (u *UseCase) cursor(ctx context.Context, groupID string) (int64, error) {
	if cursor, ok := u.cursors.Get(groupID); ok {
		return cursor, nil
	}

	cursor, err := u.repo.GetCursor(ctx, groupID)
	if err != nil {
		return 0, err
	}
	u.cursors.SetIfGreater(groupID, cursor)
	return cursor, nil
}

// fetch reads one page and honours a single FLOOD_WAIT retry
func (u *UseCase) fetch(ctx context.Context, logger zerolog.Logger, chatID, cursor int64) ([]domain.Message, error) {
	messages, err := u.fetcher.FetchMessages(ctx, chatID, cursor, u.cfg.PageSize)
	if err == nil {
		return messages, nil
	}

	wait, limited := domain.RetryAfter(err)
	if !limited {
		return nil, err
	}

	u.metrics.RecordRateLimitWait("fetch_messages")
	logger.Warn().
		Int64("chat_id", chatID).
		Dur("retry_after", wait).
		Msg("Rate limited while fetching, waiting")

	if err := pacing.Sleep(ctx, wait+u.cfg.RateLimitMargin); err != nil {
		return nil, err
	}

	return u.fetcher.FetchMessages(ctx, chatID, cursor, u.cfg.PageSize)
}

// newerThan keeps messages past the cursor, ascending by ID
func newerThan(messages []domain.Message, cursor int64) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.ID > cursor {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func errorType(err error) string {
	if _, ok := domain.RetryAfter(err); ok {
		return "rate_limited"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "timeout"
	}
	return "fetch_failed"
}
