package business

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	affiliateentities "github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/repository/postgres"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/database/dbtest"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockFetcher struct {
	fetchFunc func(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error)
	calls     int
}

func (m *mockFetcher) FetchMessages(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error) {
	m.calls++
	return m.fetchFunc(ctx, chatID, sinceID, limit)
}

type mockSources struct {
	chats []domain.Chat
	err   error
}

func (m *mockSources) Sources(context.Context) ([]domain.Chat, error) {
	return m.chats, m.err
}

type mockCatalog struct {
	domains []affiliateentities.AffiliateDomain
}

func (m *mockCatalog) ActiveDomains(context.Context) (*affiliateentities.DomainSet, error) {
	return affiliateentities.NewDomainSet(m.domains), nil
}

type mockPublisher struct {
	tracked []domain.LinkTrackedEvent
}

func (m *mockPublisher) PublishLinkTracked(_ context.Context, e domain.LinkTrackedEvent) error {
	m.tracked = append(m.tracked, e)
	return nil
}

func (m *mockPublisher) PublishLinkDispatched(context.Context, domain.LinkDispatchedEvent) error {
	return nil
}

func (m *mockPublisher) IsHealthy() bool { return true }
func (m *mockPublisher) Close() error    { return nil }

type mapCache map[string]int64

func (c mapCache) Get(id string) (int64, bool) {
	v, ok := c[id]
	return v, ok
}

func (c mapCache) SetIfGreater(id string, v int64) bool {
	if cur, ok := c[id]; ok && v <= cur {
		return false
	}
	c[id] = v
	return true
}

func (c mapCache) LoadFromDB(context.Context) error { return nil }

type fixture struct {
	uc        *UseCase
	db        *gorm.DB
	fetcher   *mockFetcher
	publisher *mockPublisher
	cache     mapCache
}

var source = domain.Chat{ID: -1001234, Name: "Promo Source", Type: domain.ChatTypeSupergroup}

func newFixture(t *testing.T, fetch func(ctx context.Context, chatID, sinceID int64, limit int) ([]domain.Message, error)) *fixture {
	t.Helper()

	db := dbtest.New(t,
		&entities.ChannelCursorModel{},
		&entities.ProcessedMessageModel{},
		&entities.TrackedLinkModel{},
	)

	f := &fixture{
		db:        db,
		fetcher:   &mockFetcher{fetchFunc: fetch},
		publisher: &mockPublisher{},
		cache:     mapCache{},
	}

	f.uc = NewUseCase(
		postgres.NewRepository(db),
		f.cache,
		f.fetcher,
		&mockSources{chats: []domain.Chat{source}},
		&mockCatalog{domains: []affiliateentities.AffiliateDomain{
			{Domain: "shop.com", AffiliateCode: "aff1", IsActive: true},
			{Domain: "paused.com", AffiliateCode: "aff2", IsActive: false},
		}},
		f.publisher,
		&config.PollerConfig{PageSize: 30, ChatPause: 0, RateLimitMargin: 0},
		zerolog.Nop(),
		metrics.GetDefaultMetrics(),
	)
	return f
}

func (f *fixture) links(t *testing.T) []entities.TrackedLinkModel {
	var models []entities.TrackedLinkModel
	require.NoError(t, f.db.Order("id").Find(&models).Error)
	return models
}

func TestPollChat_AdvancesFromStoredCursor(t *testing.T) {
	var gotSince int64
	f := newFixture(t, func(_ context.Context, _ int64, sinceID int64, limit int) ([]domain.Message, error) {
		gotSince = sinceID
		require.Equal(t, 30, limit)
		// unordered and including an already-seen ID
		return []domain.Message{
			{ID: 103, Text: "no link here"},
			{ID: 100, Text: "https://shop.com/old"},
			{ID: 101, Text: "Corre! https://Shop.com/Item/42/?utm=tg"},
			{ID: 102, Text: "pausado https://paused.com/x"},
		}, nil
	})
	require.NoError(t, f.uc.repo.CommitPage(context.Background(), source.Key(), 100, nil))

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)

	require.Equal(t, int64(100), gotSince)
	require.Equal(t, 3, stats.Fetched)
	require.Equal(t, 3, stats.Inspected)
	require.Equal(t, 1, stats.Saved)
	require.Equal(t, int64(103), stats.Cursor)

	cursor, err := f.uc.repo.GetCursor(context.Background(), source.Key())
	require.NoError(t, err)
	require.Equal(t, int64(103), cursor)

	processed, err := f.uc.repo.ProcessedIDs(context.Background(), source.Key(), []int64{100, 101, 102, 103})
	require.NoError(t, err)
	require.Len(t, processed, 3)
	require.NotContains(t, processed, int64(100))

	links := f.links(t)
	require.Len(t, links, 1)
	require.Equal(t, "https://shop.com/item/42", links[0].OriginalURL)
	require.Equal(t, "shop.com", links[0].Domain)
	require.Equal(t, string(entities.StatusPending), links[0].Status)
	require.Equal(t, source.Key(), links[0].GroupJID)

	var copyText entities.CopyText
	require.NoError(t, json.Unmarshal([]byte(links[0].CopyText), &copyText))
	require.Equal(t, "https://Shop.com/Item/42/?utm=tg", copyText.MatchedText)
	require.Contains(t, copyText.Text, "Corre!")

	require.Len(t, f.publisher.tracked, 1)
	require.Equal(t, links[0].ID, f.publisher.tracked[0].LinkID)

	cached, ok := f.cache.Get(source.Key())
	require.True(t, ok)
	require.Equal(t, int64(103), cached)
}

func TestPollChat_EmptyPageKeepsCursor(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		return nil, nil
	})
	f.cache[source.Key()] = 50

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, int64(50), stats.Cursor)
	require.Zero(t, stats.Fetched)
}

func TestPollChat_NoLinksStillAdvances(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		return []domain.Message{{ID: 1, Text: "bom dia"}, {ID: 2}}, nil
	})

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Cursor)
	require.Zero(t, stats.Saved)

	cursor, err := f.uc.repo.GetCursor(context.Background(), source.Key())
	require.NoError(t, err)
	require.Equal(t, int64(2), cursor)
}

func TestPollChat_TextlessPageAdvancesPastRun(t *testing.T) {
	var sinces []int64
	f := newFixture(t, func(_ context.Context, _ int64, sinceID int64, limit int) ([]domain.Message, error) {
		sinces = append(sinces, sinceID)
		if sinceID == 100 {
			page := make([]domain.Message, 0, limit)
			for id := int64(101); id <= 130; id++ {
				page = append(page, domain.Message{ID: id})
			}
			return page, nil
		}
		return []domain.Message{{ID: 131, Text: "https://shop.com/item/7"}}, nil
	})
	f.cache[source.Key()] = 100

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, int64(130), stats.Cursor)
	require.Equal(t, 30, stats.Inspected)

	stats, err = f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, int64(131), stats.Cursor)
	require.Equal(t, 1, stats.Saved)
	require.Equal(t, []int64{100, 130}, sinces)
}

func TestPollChat_SkipsProcessedMessages(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		return []domain.Message{
			{ID: 7, Text: "https://shop.com/a"},
			{ID: 8, Text: "https://shop.com/b"},
		}, nil
	})
	// processed mark written by an earlier run whose cursor was lost
	require.NoError(t, f.db.Create(&entities.ProcessedMessageModel{MessageID: 7, GroupJID: source.Key()}).Error)

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 1, stats.Saved)
	require.Equal(t, int64(8), stats.Cursor)

	links := f.links(t)
	require.Len(t, links, 1)
	require.Equal(t, "https://shop.com/b", links[0].OriginalURL)
}

func TestPollChat_DuplicateAcrossMessages(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		return []domain.Message{
			{ID: 1, Text: "https://shop.com/p"},
			{ID: 2, Text: "de novo HTTPS://SHOP.COM/P/"},
		}, nil
	})

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Saved)
	require.Equal(t, 1, stats.Duplicates)
	require.Len(t, f.links(t), 1)
	require.Len(t, f.publisher.tracked, 1)
}

func TestPollChat_InactiveDomainNotTracked(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		return []domain.Message{{ID: 1, Text: "https://paused.com/deal https://unknown.com/x"}}, nil
	})

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Zero(t, stats.Saved)
	require.Empty(t, f.links(t))
	require.Equal(t, int64(1), stats.Cursor)
}

func TestPollChat_RateLimitRetriesOnce(t *testing.T) {
	calls := 0
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		calls++
		if calls == 1 {
			return nil, &domain.RateLimitError{RetryAfter: time.Millisecond, Op: "history"}
		}
		return []domain.Message{{ID: 5, Text: "https://shop.com/z"}}, nil
	})

	stats, err := f.uc.PollChat(context.Background(), source)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, 1, stats.Saved)
}

func TestPollChat_RateLimitTwiceSkipsChat(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		return nil, &domain.RateLimitError{RetryAfter: time.Millisecond, Op: "history"}
	})

	_, err := f.uc.PollChat(context.Background(), source)
	require.Error(t, err)
	require.Equal(t, 2, f.fetcher.calls)

	cursor, err := f.uc.repo.GetCursor(context.Background(), source.Key())
	require.NoError(t, err)
	require.Zero(t, cursor)
}

func TestPollSources_ContinuesAfterChatFailure(t *testing.T) {
	failing := domain.Chat{ID: -1009, Name: "Broken", Type: domain.ChatTypeChannel}
	f := newFixture(t, func(_ context.Context, chatID, _ int64, _ int) ([]domain.Message, error) {
		if chatID == failing.ID {
			return nil, errors.New("CHANNEL_PRIVATE")
		}
		return []domain.Message{{ID: 11, Text: "https://shop.com/ok"}}, nil
	})
	f.uc.sources = &mockSources{chats: []domain.Chat{failing, source}}

	require.NoError(t, f.uc.PollSources(context.Background()))
	require.Len(t, f.links(t), 1)
}

func TestPollSources_NoActiveDomainsSkipsCycle(t *testing.T) {
	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		t.Fatal("fetch must not be called")
		return nil, nil
	})
	f.uc.catalog = &mockCatalog{}

	require.NoError(t, f.uc.PollSources(context.Background()))
}

func TestPollSources_SourcesError(t *testing.T) {
	f := newFixture(t, nil)
	f.uc.sources = &mockSources{err: errors.New("dialogs unavailable")}

	require.Error(t, f.uc.PollSources(context.Background()))
}

func TestPollSources_CancelledBetweenChats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	other := domain.Chat{ID: -1005, Name: "Other", Type: domain.ChatTypeChannel}

	f := newFixture(t, func(context.Context, int64, int64, int) ([]domain.Message, error) {
		cancel()
		return nil, nil
	})
	f.uc.sources = &mockSources{chats: []domain.Chat{source, other}}
	f.uc.cfg.ChatPause = time.Hour

	err := f.uc.PollSources(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, f.fetcher.calls)
}
