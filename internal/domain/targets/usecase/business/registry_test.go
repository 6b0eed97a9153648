package business

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
	targetserrors "github.com/Conte777/affiliate-relay/internal/domain/targets/errors"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type mockLister struct {
	listFunc func(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error)
	calls    int
}

func (m *mockLister) ListChats(ctx context.Context, includeChannels bool, limit int) ([]domain.Chat, error) {
	m.calls++
	return m.listFunc(ctx, includeChannels, limit)
}

type memPrefs struct {
	data map[string]entities.Purpose
}

func (m *memPrefs) List(context.Context) ([]entities.ChatPreference, error) {
	out := make([]entities.ChatPreference, 0, len(m.data))
	for id, p := range m.data {
		out = append(out, entities.ChatPreference{ChatID: id, Purpose: p})
	}
	return out, nil
}

func (m *memPrefs) Set(_ context.Context, id string, p entities.Purpose) error {
	m.data[id] = p
	return nil
}

func (m *memPrefs) Delete(_ context.Context, id string) error {
	if _, ok := m.data[id]; !ok {
		return targetserrors.ErrPreferenceNotFound
	}
	delete(m.data, id)
	return nil
}

func newRegistry(lister *mockLister, policy string) (*Registry, *time.Time) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(
		lister,
		&memPrefs{data: map[string]entities.Purpose{}},
		&config.TargetsConfig{Policy: policy, RefreshInterval: 10 * time.Minute, ListLimit: 200},
		zerolog.Nop(),
		metrics.GetDefaultMetrics(),
	)
	r.now = func() time.Time { return now }
	return r, &now
}

func TestRegistry_CachesUntilInterval(t *testing.T) {
	lister := &mockLister{listFunc: func(_ context.Context, include bool, limit int) ([]domain.Chat, error) {
		require.True(t, include)
		require.Equal(t, 200, limit)
		return []domain.Chat{reachableChannel, hiddenGroup}, nil
	}}
	r, now := newRegistry(lister, "permissive")
	ctx := context.Background()

	dest, err := r.Destinations(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-1001}, ids(dest))

	src, err := r.Sources(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-1003}, ids(src))
	require.Equal(t, 1, lister.calls)

	*now = now.Add(11 * time.Minute)
	_, err = r.Sources(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, lister.calls)
}

func TestRegistry_KeepsPreviousSetOnFailure(t *testing.T) {
	fail := false
	lister := &mockLister{listFunc: func(context.Context, bool, int) ([]domain.Chat, error) {
		if fail {
			return nil, errors.New("dialogs unavailable")
		}
		return []domain.Chat{reachableChannel}, nil
	}}
	r, now := newRegistry(lister, "permissive")
	ctx := context.Background()

	_, err := r.Destinations(ctx)
	require.NoError(t, err)

	fail = true
	*now = now.Add(time.Hour)

	dest, err := r.Destinations(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-1001}, ids(dest))
}

func TestRegistry_FirstRefreshFailure(t *testing.T) {
	lister := &mockLister{listFunc: func(context.Context, bool, int) ([]domain.Chat, error) {
		return nil, errors.New("not connected")
	}}
	r, _ := newRegistry(lister, "permissive")

	_, err := r.Sources(context.Background())
	require.Error(t, err)
}

func TestRegistry_SetPreferenceInvalidates(t *testing.T) {
	lister := &mockLister{listFunc: func(context.Context, bool, int) ([]domain.Chat, error) {
		return []domain.Chat{reachableChannel, hiddenGroup}, nil
	}}
	r, _ := newRegistry(lister, "admin")
	ctx := context.Background()

	dest, err := r.Destinations(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-1001}, ids(dest))

	require.NoError(t, r.SetPreference(ctx, hiddenGroup.Key(), "DESTINO"))

	dest, err = r.Destinations(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-1001, -1003}, ids(dest))
	require.Equal(t, 2, lister.calls)

	require.NoError(t, r.ClearPreference(ctx, hiddenGroup.Key()))
	dest, err = r.Destinations(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{-1001}, ids(dest))
}

func TestRegistry_PreferenceValidation(t *testing.T) {
	r, _ := newRegistry(&mockLister{}, "permissive")
	ctx := context.Background()

	require.ErrorIs(t, r.SetPreference(ctx, "-1001", "both"), targetserrors.ErrInvalidPurpose)
	require.ErrorIs(t, r.SetPreference(ctx, "abc", "destino"), targetserrors.ErrInvalidChatID)
	require.ErrorIs(t, r.ClearPreference(ctx, "-1001"), targetserrors.ErrPreferenceNotFound)
}
