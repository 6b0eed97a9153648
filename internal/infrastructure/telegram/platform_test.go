package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type mockReader struct {
	connectFunc func(ctx context.Context) error
	dialogsFunc func(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error)
	known       map[int64]domain.Chat
	connected   bool
}

func (m *mockReader) Connect(ctx context.Context) error {
	if m.connectFunc != nil {
		return m.connectFunc(ctx)
	}
	m.connected = true
	return nil
}

func (m *mockReader) Disconnect(context.Context) error { m.connected = false; return nil }
func (m *mockReader) IsConnected() bool                { return m.connected }

func (m *mockReader) Dialogs(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error) {
	return m.dialogsFunc(ctx, includeChannels, limit)
}

func (m *mockReader) Known(chatID int64) (domain.Chat, bool) {
	c, ok := m.known[chatID]
	return c, ok
}

func (m *mockReader) History(context.Context, int64, int64, int) ([]domain.Message, error) {
	return nil, nil
}

type mockSender struct {
	mu              sync.Mutex
	ready           bool
	connectCalled   bool
	permissionsFunc func(ctx context.Context, chatID int64, broadcast bool) (domain.Capabilities, error)
	probed          map[int64]bool
}

func (m *mockSender) Connect(context.Context) error { m.connectCalled = true; m.ready = true; return nil }
func (m *mockSender) IsReady() bool                 { return m.ready }

func (m *mockSender) SendText(context.Context, int64, string, domain.SendOptions) error { return nil }
func (m *mockSender) SendImage(context.Context, int64, []byte, string) error          { return nil }

func (m *mockSender) Permissions(ctx context.Context, chatID int64, broadcast bool) (domain.Capabilities, error) {
	m.mu.Lock()
	if m.probed == nil {
		m.probed = make(map[int64]bool)
	}
	m.probed[chatID] = broadcast
	m.mu.Unlock()
	return m.permissionsFunc(ctx, chatID, broadcast)
}

func TestPlatform_ListChatsFillsAccess(t *testing.T) {
	reader := &mockReader{
		dialogsFunc: func(context.Context, bool, int) ([]domain.Chat, error) {
			return []domain.Chat{
				{ID: 1, Name: "Ana", Type: domain.ChatTypeUser},
				{ID: -1001, Name: "Canal", Type: domain.ChatTypeChannel},
				{ID: -1002, Name: "Grupo", Type: domain.ChatTypeSupergroup},
				{ID: -3, Name: "Fora", Type: domain.ChatTypeGroup},
			}, nil
		},
	}
	sender := &mockSender{
		permissionsFunc: func(_ context.Context, chatID int64, _ bool) (domain.Capabilities, error) {
			switch chatID {
			case -1001:
				return domain.Capabilities{HasAccess: true, IsAdmin: true}, nil
			case -1002:
				return domain.Capabilities{HasAccess: true}, nil
			default:
				return domain.Capabilities{}, errors.New("probe failed")
			}
		},
	}

	p := NewPlatform(reader, sender, zerolog.Nop())
	chats, err := p.ListChats(context.Background(), true, 100)
	require.NoError(t, err)
	require.Len(t, chats, 4)

	require.False(t, chats[0].HasAccess)
	require.True(t, chats[1].HasAccess)
	require.True(t, chats[1].IsAdmin)
	require.True(t, chats[2].HasAccess)
	require.False(t, chats[2].IsAdmin)
	require.False(t, chats[3].HasAccess, "failed probe leaves the chat without access")

	require.NotContains(t, sender.probed, int64(1), "users are not probed")
	require.True(t, sender.probed[-1001], "channel probed as broadcast")
	require.False(t, sender.probed[-1002])
}

func TestPlatform_ListChatsCancelled(t *testing.T) {
	reader := &mockReader{
		dialogsFunc: func(context.Context, bool, int) ([]domain.Chat, error) {
			return []domain.Chat{{ID: -1, Type: domain.ChatTypeGroup}}, nil
		},
	}
	sender := &mockSender{
		permissionsFunc: func(ctx context.Context, _ int64, _ bool) (domain.Capabilities, error) {
			return domain.Capabilities{}, context.Canceled
		},
	}

	_, err := NewPlatform(reader, sender, zerolog.Nop()).ListChats(context.Background(), true, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlatform_ConnectStopsOnReaderFailure(t *testing.T) {
	reader := &mockReader{connectFunc: func(context.Context) error { return domain.ErrAuthenticationFailed }}
	sender := &mockSender{}

	p := NewPlatform(reader, sender, zerolog.Nop())
	require.ErrorIs(t, p.Connect(context.Background()), domain.ErrAuthenticationFailed)
	require.False(t, sender.connectCalled)
	require.False(t, p.IsConnected())
}

func TestPlatform_GetPermissionsUsesKnownType(t *testing.T) {
	reader := &mockReader{known: map[int64]domain.Chat{-1001: {ID: -1001, Type: domain.ChatTypeChannel}}}
	sender := &mockSender{
		permissionsFunc: func(_ context.Context, _ int64, broadcast bool) (domain.Capabilities, error) {
			return domain.Capabilities{HasAccess: true, CanPost: !broadcast}, nil
		},
	}

	p := NewPlatform(reader, sender, zerolog.Nop())

	caps, err := p.GetPermissions(context.Background(), -1001)
	require.NoError(t, err)
	require.False(t, caps.CanPost)

	caps, err = p.GetPermissions(context.Background(), -5)
	require.NoError(t, err)
	require.True(t, caps.CanPost)
}
