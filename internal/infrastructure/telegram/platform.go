package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// probeConcurrency bounds parallel getChatMember calls while listing chats
const probeConcurrency = 4

// dialogSource is the reading half of the platform
type dialogSource interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	Dialogs(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error)
	Known(chatID int64) (domain.Chat, bool)
	History(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error)
}

// messageSink is the sending half of the platform
type messageSink interface {
	Connect(ctx context.Context) error
	IsReady() bool
	SendText(ctx context.Context, chatID int64, text string, opts domain.SendOptions) error
	SendImage(ctx context.Context, chatID int64, image []byte, caption string) error
	Permissions(ctx context.Context, chatID int64, broadcast bool) (domain.Capabilities, error)
}

// Platform implements domain.ChatPlatformClient: a user account reads
// dialogs and history, a bot sends and reports its own permissions
type Platform struct {
	reader dialogSource
	sender messageSink
	logger zerolog.Logger
}

// NewPlatform combines the user client and the bot sender
func NewPlatform(reader dialogSource, sender messageSink, logger zerolog.Logger) *Platform {
	return &Platform{
		reader: reader,
		sender: sender,
		logger: logger.With().Str("component", "platform").Logger(),
	}
}

// Connect connects the user session and the bot
func (p *Platform) Connect(ctx context.Context) error {
	if err := p.reader.Connect(ctx); err != nil {
		return err
	}
	if err := p.sender.Connect(ctx); err != nil {
		return err
	}
	return nil
}

// Disconnect stops the user session; the bot client holds no connection
func (p *Platform) Disconnect(ctx context.Context) error {
	return p.reader.Disconnect(ctx)
}

// IsConnected reports whether both halves are usable
func (p *Platform) IsConnected() bool {
	return p.reader.IsConnected() && p.sender.IsReady()
}

// ListChats lists dialogs and fills HasAccess and IsAdmin from the bot's
// membership. A failed probe leaves the chat without access.
func (p *Platform) ListChats(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error) {
	chats, err := p.reader.Dialogs(ctx, includeChannels, limit)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for i := range chats {
		if chats[i].Type == domain.ChatTypeUser {
			continue
		}

		g.Go(func() error {
			caps, err := p.sender.Permissions(gctx, chats[i].ID, chats[i].Type == domain.ChatTypeChannel)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				p.logger.Warn().
					Err(err).
					Int64("chat_id", chats[i].ID).
					Str("chat_name", chats[i].Name).
					Msg("permission probe failed")
				return nil
			}
			chats[i].HasAccess = caps.HasAccess
			chats[i].IsAdmin = caps.IsAdmin
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("permission probes: %w", err)
	}

	return chats, nil
}

// FetchMessages returns messages with ID greater than sinceID, ascending by ID
func (p *Platform) FetchMessages(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error) {
	return p.reader.History(ctx, chatID, sinceID, limit)
}

// SendText sends a text message through the bot
func (p *Platform) SendText(ctx context.Context, chatID int64, text string, opts domain.SendOptions) error {
	return p.sender.SendText(ctx, chatID, text, opts)
}

// SendImage sends a photo with caption through the bot
func (p *Platform) SendImage(ctx context.Context, chatID int64, image []byte, caption string) error {
	return p.sender.SendImage(ctx, chatID, image, caption)
}

// GetPermissions reports what the bot may do in a chat
func (p *Platform) GetPermissions(ctx context.Context, chatID int64) (domain.Capabilities, error) {
	chat, _ := p.reader.Known(chatID)
	return p.sender.Permissions(ctx, chatID, chat.Type == domain.ChatTypeChannel)
}

var _ domain.ChatPlatformClient = (*Platform)(nil)
