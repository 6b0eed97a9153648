package business

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/Conte777/affiliate-relay/pkg/pacing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// maxCaptionLength is the platform limit for photo captions
	maxCaptionLength = 1024

	commitRetryDelay = 500 * time.Millisecond
)

// UseCase implements delivery of ready links to destination chats
type UseCase struct {
	repo         deps.Repository
	sender       deps.Sender
	destinations deps.DestinationProvider
	images       deps.ImageFetcher
	publisher    domain.EventPublisher
	cfg          *config.DispatcherConfig
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewUseCase creates a new dispatch use case
func NewUseCase(
	repo deps.Repository,
	sender deps.Sender,
	destinations deps.DestinationProvider,
	images deps.ImageFetcher,
	publisher domain.EventPublisher,
	cfg *config.DispatcherConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		repo:         repo,
		sender:       sender,
		destinations: destinations,
		images:       images,
		publisher:    publisher,
		cfg:          cfg,
		logger:       logger.With().Str("component", "dispatcher").Logger(),
		metrics:      m,
	}
}

// DispatchBatch delivers one batch of ready links
func (u *UseCase) DispatchBatch(ctx context.Context) (entities.DispatchStats, error) {
	start := time.Now()
	logger := u.logger.With().Str("cycle_id", uuid.NewString()).Logger()
	var stats entities.DispatchStats

	links, err := u.repo.ReadyLinks(ctx, u.cfg.BatchSize)
	if err != nil {
		return stats, err
	}
	stats.Selected = len(links)
	if len(links) == 0 {
		logger.Debug().Msg("No links ready for dispatch")
		return stats, nil
	}

	destinations, err := u.destinations.Destinations(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load destinations: %w", err)
	}
	if len(destinations) == 0 {
		logger.Warn().Int("ready_links", len(links)).Msg("No destination chats, skipping dispatch")
		return stats, nil
	}
	if len(destinations) > u.cfg.MaxDestinations {
		destinations = destinations[:u.cfg.MaxDestinations]
	}

	logger.Info().
		Int("links", len(links)).
		Int("destinations", len(destinations)).
		Msg("Dispatching links")

	for i, link := range links {
		if i > 0 {
			if err := pacing.Sleep(ctx, u.cfg.LinkDelay); err != nil {
				stats.Deferred += len(links) - i
				return stats, err
			}
		}

		delivered, attempted := u.dispatchLink(ctx, logger, link, destinations)
		switch {
		case attempted == 0:
			stats.Deferred++
		case delivered:
			stats.Delivered++
		default:
			stats.Failed++
		}

		if ctx.Err() != nil {
			stats.Deferred += len(links) - i - 1
			logger.Warn().
				Int("processed_links", i+1).
				Int("total_links", len(links)).
				Msg("Dispatch cancelled by context")
			return stats, ctx.Err()
		}
	}

	logger.Info().
		Int("delivered", stats.Delivered).
		Int("failed", stats.Failed).
		Msg("Dispatch batch completed")

	u.metrics.RecordDispatchCycle(stats.Delivered, time.Since(start).Seconds())
	return stats, nil
}

// dispatchLink sends one link to every destination and records the outcome.
// It reports whether any destination succeeded and how many were attempted.
func (u *UseCase) dispatchLink(
	ctx context.Context,
	logger zerolog.Logger,
	link trackingentities.TrackedLink,
	destinations []domain.Chat,
) (bool, int) {
	out := BuildMessage(link)
	image := u.fetchImage(ctx, logger, out.ImageURL)

	// outcomes are committed even when ctx is cancelled mid-loop
	commitCtx := context.WithoutCancel(ctx)

	var sent, failed []string
	attempted := 0

	for j, dest := range destinations {
		if ctx.Err() != nil {
			break
		}
		if j > 0 {
			if err := pacing.Sleep(ctx, u.cfg.DestinationDelay); err != nil {
				break
			}
		}

		attempted++
		err := u.send(ctx, logger, dest, out.Text, image)
		u.metrics.RecordDelivery(err == nil)

		attempt := entities.DeliveryAttempt{
			LinkID:   link.ID,
			ChatID:   dest.ID,
			ChatName: dest.Name,
			Success:  err == nil,
		}
		if err != nil {
			attempt.Error = err.Error()
			failed = append(failed, dest.Key())
			u.metrics.RecordSendError(sendErrorReason(err))
			logger.Error().Err(err).
				Uint("link_id", link.ID).
				Str("chat_id", dest.Key()).
				Str("chat_name", dest.Name).
				Msg("Failed to deliver link")
		} else {
			sent = append(sent, dest.Key())
			logger.Info().
				Uint("link_id", link.ID).
				Str("chat_id", dest.Key()).
				Str("chat_name", dest.Name).
				Msg("Link delivered")
		}

		if err := u.repo.RecordAttempt(commitCtx, attempt); err != nil {
			logger.Warn().Err(err).Uint("link_id", link.ID).Msg("Failed to record delivery attempt")
		}
	}

	if attempted == 0 {
		logger.Debug().Uint("link_id", link.ID).Msg("Link deferred before first destination")
		return false, 0
	}

	if len(sent) == 0 {
		logger.Warn().
			Uint("link_id", link.ID).
			Int("attempted", attempted).
			Msg("Link not delivered to any destination")
		return false, attempted
	}

	if err := u.markDelivered(commitCtx, logger, link.ID); err != nil {
		u.metrics.RecordCommitFailure()
		logger.Error().Err(err).
			Uint("link_id", link.ID).
			Strs("sent_to", sent).
			Msg("Failed to mark link delivered, it will be sent again next cycle")
		return true, attempted
	}

	event := domain.LinkDispatchedEvent{
		EventID:      uuid.NewString(),
		LinkID:       link.ID,
		OriginalURL:  link.OriginalURL,
		Destinations: sent,
		Failed:       failed,
		SentAt:       time.Now().UTC(),
	}
	if err := u.publisher.PublishLinkDispatched(commitCtx, event); err != nil {
		logger.Warn().Err(err).Uint("link_id", link.ID).Msg("Failed to publish link dispatched event")
	}

	return true, attempted
}

// markDelivered retries the commit once; MarkDelivered is idempotent
func (u *UseCase) markDelivered(ctx context.Context, logger zerolog.Logger, linkID uint) error {
	err := u.repo.MarkDelivered(ctx, linkID)
	if err == nil {
		return nil
	}

	logger.Warn().Err(err).Uint("link_id", linkID).Msg("Failed to mark link delivered, retrying")
	if err := pacing.Sleep(ctx, commitRetryDelay); err != nil {
		return err
	}
	return u.repo.MarkDelivered(ctx, linkID)
}

// send delivers to one destination, retrying once after a rate-limit wait
func (u *UseCase) send(ctx context.Context, logger zerolog.Logger, dest domain.Chat, text string, image []byte) error {
	err := u.sendOnce(ctx, dest.ID, text, image)
	wait, limited := domain.RetryAfter(err)
	if !limited {
		return err
	}

	u.metrics.RecordRateLimitWait("send")
	logger.Warn().
		Str("chat_id", dest.Key()).
		Dur("retry_after", wait).
		Msg("Rate limited while sending, waiting")

	if err := pacing.Sleep(ctx, wait+u.cfg.RateLimitMargin); err != nil {
		return err
	}
	return u.sendOnce(ctx, dest.ID, text, image)
}

func (u *UseCase) sendOnce(ctx context.Context, chatID int64, text string, image []byte) error {
	if len(image) > 0 && captionLength(text) <= maxCaptionLength {
		return u.sender.SendImage(ctx, chatID, image, text)
	}
	return u.sender.SendText(ctx, chatID, text, domain.SendOptions{LinkPreview: true})
}

// fetchImage downloads the product image, degrading to text-only on failure
func (u *UseCase) fetchImage(ctx context.Context, logger zerolog.Logger, url string) []byte {
	if url == "" {
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, u.cfg.ImageTimeout)
	defer cancel()

	data, err := u.images.Fetch(fetchCtx, url)
	if err != nil {
		u.metrics.RecordImageFetch("error")
		logger.Warn().Err(err).Str("image_url", url).Msg("Failed to fetch product image, sending text only")
		return nil
	}

	u.metrics.RecordImageFetch("ok")
	return data
}

// captionLength counts UTF-16 code units, which is how the platform measures captions
func captionLength(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func sendErrorReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, domain.ErrNoAccess):
		return "no_access"
	case errors.Is(err, domain.ErrChatNotFound):
		return "chat_not_found"
	}
	if _, ok := domain.RetryAfter(err); ok {
		return "rate_limited"
	}
	return "send_failed"
}
