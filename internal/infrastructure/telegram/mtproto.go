package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// dialogsPageSize is the server-side maximum for messages.getDialogs
const dialogsPageSize = 100

type sessionStore interface {
	session.Storage
	DeleteSession(ctx context.Context) error
}

// knownPeer is what the user client remembers about a listed dialog
type knownPeer struct {
	input tg.InputPeerClass
	chat  domain.Chat
}

// MTProtoClient reads dialogs and history as the operating user account
type MTProtoClient struct {
	apiID         int
	apiHash       string
	storage       sessionStore
	authenticator auth.UserAuthenticator

	// Connection state
	client        *telegram.Client
	api           *tg.Client
	connected     bool
	disconnecting bool
	mu            sync.RWMutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{}

	peersMu sync.RWMutex
	peers   map[int64]knownPeer

	logger      zerolog.Logger
	rateLimiter *rate.Limiter
}

// MTProtoClientConfig holds configuration for MTProtoClient
type MTProtoClientConfig struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	Password    string
	RateLimit   float64
	Storage     sessionStore
	Logger      zerolog.Logger
}

// maskPhoneNumber masks phone number for logging (keeps first 2 and last 2 digits)
func maskPhoneNumber(phone string) string {
	if len(phone) < 4 {
		return "***"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}

// NewMTProtoClient creates a new MTProto client instance
func NewMTProtoClient(cfg MTProtoClientConfig) (*MTProtoClient, error) {
	if cfg.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if cfg.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if cfg.PhoneNumber == "" {
		return nil, fmt.Errorf("PhoneNumber is required")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("session storage is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}

	logger := cfg.Logger.With().
		Str("component", "mtproto_client").
		Str("phone", maskPhoneNumber(cfg.PhoneNumber)).
		Logger()

	return &MTProtoClient{
		apiID:         cfg.APIID,
		apiHash:       cfg.APIHash,
		storage:       cfg.Storage,
		authenticator: newConsoleAuthenticator(cfg.PhoneNumber, cfg.Password, os.Stdin, os.Stdout, logger),
		peers:         make(map[int64]knownPeer),
		logger:        logger,
		rateLimiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1),
	}, nil
}

// Connect starts the MTProto session and blocks until it is authorized.
// ctx bounds only the wait; the session itself lives until Disconnect.
func (c *MTProtoClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.logger.Debug().Msg("already connected")
		return nil
	}
	if c.disconnecting {
		return fmt.Errorf("disconnect in progress, cannot connect")
	}

	c.logger.Info().Msg("connecting to Telegram")

	client := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.storage,
	})

	clientCtx, cancel := context.WithCancel(context.Background())
	readyChan := make(chan *tg.Client, 1)
	errChan := make(chan error, 1)
	runDone := make(chan struct{})

	go func() {
		err := client.Run(clientCtx, func(ctx context.Context) error {
			status, err := client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to check auth status: %w", err)
			}

			if !status.Authorized {
				c.logger.Info().Msg("not authorized, starting authentication")
				if err := c.authenticateWithRetry(ctx, client.Auth(), 3); err != nil {
					c.logger.Error().Err(err).Msg("authentication failed")
					return fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
				}
			} else {
				c.logger.Info().Msg("session restored from storage")
			}

			readyChan <- client.API()

			<-ctx.Done()
			return ctx.Err()
		})

		errChan <- err
		close(runDone)

		c.mu.Lock()
		if c.runDone == runDone && !c.disconnecting {
			c.connected = false
			c.api = nil
		}
		c.mu.Unlock()

		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Error().Err(err).Msg("MTProto client stopped")
		}
	}()

	select {
	case api := <-readyChan:
		c.client = client
		c.api = api
		c.cancelFunc = cancel
		c.runDone = runDone
		c.connected = true
		c.logger.Info().Msg("successfully connected to Telegram")
		return nil
	case err := <-errChan:
		cancel()
		if err == nil {
			err = errors.New("client stopped before becoming ready")
		}
		return fmt.Errorf("failed to connect: %w", err)
	case <-ctx.Done():
		cancel()
		<-runDone
		return ctx.Err()
	}
}

// Disconnect stops the session and waits for the client goroutine.
// The session is saved by gotd before Run returns.
func (c *MTProtoClient) Disconnect(ctx context.Context) error {
	c.mu.Lock()

	if c.disconnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("disconnect already in progress")
		return nil
	}
	if !c.connected && c.cancelFunc == nil {
		c.mu.Unlock()
		c.logger.Debug().Msg("already disconnected")
		return nil
	}

	c.logger.Info().Msg("disconnecting from Telegram")

	c.disconnecting = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	if cancelFunc != nil {
		cancelFunc()
		if runDone != nil {
			select {
			case <-runDone:
				c.logger.Debug().Msg("client stopped gracefully")
			case <-ctx.Done():
				c.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
			}
		}
	}

	c.mu.Lock()
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	c.disconnecting = false
	c.mu.Unlock()

	c.logger.Info().Msg("successfully disconnected from Telegram")
	return nil
}

// IsConnected checks if client is connected to Telegram
func (c *MTProtoClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *MTProtoClient) apiClient(ctx context.Context) (*tg.Client, error) {
	c.mu.RLock()
	api := c.api
	connected := c.connected
	c.mu.RUnlock()

	if !connected || api == nil {
		return nil, domain.ErrNotConnected
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	return api, nil
}

// Dialogs lists up to limit dialogs sorted by name and remembers their
// access hashes for later history calls. Broadcast channels are skipped
// unless includeChannels is set.
func (c *MTProtoClient) Dialogs(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error) {
	if limit <= 0 {
		limit = dialogsPageSize
	}

	var (
		found      []knownPeer
		offsetID   int
		offsetDate int
		offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}
	)

	for len(found) < limit {
		api, err := c.apiClient(ctx)
		if err != nil {
			return nil, err
		}

		pageSize := dialogsPageSize
		if remaining := limit - len(found); remaining < pageSize {
			pageSize = remaining
		}

		resp, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      pageSize,
		})
		if err != nil {
			return nil, translateMTProtoError("dialogs", err)
		}

		page, complete := unpackDialogs(resp)
		if len(page.dialogs) == 0 {
			break
		}

		idx := newEntityIndex(page)
		for _, dlg := range page.dialogs {
			peer, ok := idx.resolve(dlg.Peer)
			if !ok {
				continue
			}
			found = append(found, peer)
		}

		last := page.dialogs[len(page.dialogs)-1]
		nextPeer, ok := idx.inputPeer(last.Peer)
		if complete || len(page.dialogs) < pageSize || !ok {
			break
		}
		offsetID = last.TopMessage
		offsetDate = idx.messageDate(last.Peer, last.TopMessage)
		offsetPeer = nextPeer
	}

	c.peersMu.Lock()
	for _, p := range found {
		c.peers[p.chat.ID] = p
	}
	c.peersMu.Unlock()

	chats := make([]domain.Chat, 0, len(found))
	for _, p := range found {
		if p.chat.Type == domain.ChatTypeChannel && !includeChannels {
			continue
		}
		chats = append(chats, p.chat)
	}
	if len(chats) > limit {
		chats = chats[:limit]
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return strings.ToLower(chats[i].Name) < strings.ToLower(chats[j].Name)
	})

	c.logger.Debug().Int("dialogs", len(found)).Int("chats", len(chats)).Msg("listed dialogs")
	return chats, nil
}

// Known returns the cached dialog for a Bot-API chat ID
func (c *MTProtoClient) Known(chatID int64) (domain.Chat, bool) {
	c.peersMu.RLock()
	defer c.peersMu.RUnlock()
	p, ok := c.peers[chatID]
	return p.chat, ok
}

// History returns text messages with ID greater than sinceID, ascending.
// The oldest page above sinceID is returned so nothing is skipped.
func (c *MTProtoClient) History(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error) {
	c.peersMu.RLock()
	peer, ok := c.peers[chatID]
	c.peersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrChatNotFound, chatID)
	}

	api, err := c.apiClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:      peer.input,
		OffsetID:  int(sinceID) + 1,
		AddOffset: -limit,
		Limit:     limit,
		MinID:     int(sinceID),
	})
	if err != nil {
		return nil, translateMTProtoError("history", err)
	}

	messages := convertMessages(historyMessages(resp), sinceID)

	c.logger.Debug().
		Int64("chat_id", chatID).
		Int64("since_id", sinceID).
		Int("messages_count", len(messages)).
		Msg("fetched messages")

	return messages, nil
}

func historyMessages(resp tg.MessagesMessagesClass) []tg.MessageClass {
	switch m := resp.(type) {
	case *tg.MessagesMessages:
		return m.Messages
	case *tg.MessagesMessagesSlice:
		return m.Messages
	case *tg.MessagesChannelMessages:
		return m.Messages
	default:
		return nil
	}
}

// convertMessages keeps every message above sinceID, sorted ascending by ID.
// Service and deleted messages come back without text so the cursor can
// move past them.
func convertMessages(raw []tg.MessageClass, sinceID int64) []domain.Message {
	messages := make([]domain.Message, 0, len(raw))
	for _, item := range raw {
		if int64(item.GetID()) <= sinceID {
			continue
		}

		switch msg := item.(type) {
		case *tg.Message:
			var sender int64
			if from, ok := msg.FromID.(*tg.PeerUser); ok {
				sender = from.UserID
			}
			messages = append(messages, domain.Message{
				ID:        int64(msg.ID),
				Text:      msg.Message,
				SenderID:  sender,
				Timestamp: time.Unix(int64(msg.Date), 0),
			})
		case *tg.MessageService:
			messages = append(messages, domain.Message{
				ID:        int64(msg.ID),
				Timestamp: time.Unix(int64(msg.Date), 0),
			})
		default:
			messages = append(messages, domain.Message{ID: int64(item.GetID())})
		}
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages
}
