package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// botSendRate stays under the Bot API global limit of 30 messages per second
const botSendRate = 20

// BotSender delivers messages through the Bot API
type BotSender struct {
	token   string
	botID   int64
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu  sync.RWMutex
	bot *tgbot.Bot
}

// NewBotSender validates the token; the Bot API is contacted on Connect
func NewBotSender(token string, logger zerolog.Logger) (*BotSender, error) {
	botID, err := botIDFromToken(token)
	if err != nil {
		return nil, err
	}

	return &BotSender{
		token:   token,
		botID:   botID,
		limiter: rate.NewLimiter(botSendRate, botSendRate),
		logger:  logger.With().Str("component", "bot_sender").Int64("bot_id", botID).Logger(),
	}, nil
}

// botIDFromToken reads the numeric prefix of "<id>:<secret>"
func botIDFromToken(token string) (int64, error) {
	idPart, secret, ok := strings.Cut(token, ":")
	if !ok || secret == "" {
		return 0, fmt.Errorf("telegram bot token is malformed")
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("telegram bot token is malformed")
	}
	return id, nil
}

// Connect creates the Bot API client, which verifies the token with getMe
func (s *BotSender) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bot != nil {
		return nil
	}

	b, err := tgbot.New(s.token)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	s.bot = b

	s.logger.Info().Msg("bot sender ready")
	return nil
}

// IsReady reports whether Connect succeeded
func (s *BotSender) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bot != nil
}

func (s *BotSender) client(ctx context.Context) (*tgbot.Bot, error) {
	s.mu.RLock()
	b := s.bot
	s.mu.RUnlock()

	if b == nil {
		return nil, domain.ErrNotConnected
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return b, nil
}

// SendText sends a text message
func (s *BotSender) SendText(ctx context.Context, chatID int64, text string, opts domain.SendOptions) error {
	b, err := s.client(ctx)
	if err != nil {
		return err
	}

	disabled := !opts.LinkPreview
	params := &tgbot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	}
	if opts.ParseMode != "" {
		params.ParseMode = models.ParseMode(opts.ParseMode)
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		return translateBotError("send_text", err)
	}
	return nil
}

// SendImage uploads a photo with a caption
func (s *BotSender) SendImage(ctx context.Context, chatID int64, image []byte, caption string) error {
	b, err := s.client(ctx)
	if err != nil {
		return err
	}

	_, err = b.SendPhoto(ctx, &tgbot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "product.jpg", Data: bytes.NewReader(image)},
		Caption: caption,
	})
	if err != nil {
		return translateBotError("send_image", err)
	}
	return nil
}

// Permissions probes the bot's membership in a chat. broadcast marks
// channels, where only administrators with post rights may send.
// A chat the bot cannot see yields zero capabilities, not an error.
func (s *BotSender) Permissions(ctx context.Context, chatID int64, broadcast bool) (domain.Capabilities, error) {
	b, err := s.client(ctx)
	if err != nil {
		return domain.Capabilities{}, err
	}

	member, err := b.GetChatMember(ctx, &tgbot.GetChatMemberParams{
		ChatID: chatID,
		UserID: s.botID,
	})
	if err != nil {
		if errors.Is(err, tgbot.ErrorForbidden) || errors.Is(err, tgbot.ErrorBadRequest) {
			return domain.Capabilities{MemberState: "unreachable"}, nil
		}
		return domain.Capabilities{}, translateBotError("get_chat_member", err)
	}

	return memberCapabilities(member, broadcast), nil
}

func memberCapabilities(member *models.ChatMember, broadcast bool) domain.Capabilities {
	if member == nil {
		return domain.Capabilities{}
	}

	caps := domain.Capabilities{MemberState: string(member.Type)}

	switch member.Type {
	case models.ChatMemberTypeOwner:
		caps.HasAccess, caps.IsAdmin, caps.CanPost = true, true, true
	case models.ChatMemberTypeAdministrator:
		caps.HasAccess, caps.IsAdmin = true, true
		caps.CanPost = !broadcast || (member.Administrator != nil && member.Administrator.CanPostMessages)
	case models.ChatMemberTypeMember:
		caps.HasAccess = true
		caps.CanPost = !broadcast
	case models.ChatMemberTypeRestricted:
		caps.HasAccess = true
		caps.CanPost = !broadcast && member.Restricted != nil && member.Restricted.CanSendMessages
	}

	return caps
}

// translateBotError maps 429 to *domain.RateLimitError and 403 to domain.ErrNoAccess
func translateBotError(op string, err error) error {
	var tooMany *tgbot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return &domain.RateLimitError{RetryAfter: time.Duration(tooMany.RetryAfter) * time.Second, Op: op}
	}
	if errors.Is(err, tgbot.ErrorForbidden) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrNoAccess, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
