package business

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/repository/postgres"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/database/dbtest"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sendCall struct {
	chatID int64
	image  bool
	text   string
}

type mockSender struct {
	sendFunc func(ctx context.Context, chatID int64) error
	calls    []sendCall
}

func (m *mockSender) SendText(ctx context.Context, chatID int64, text string, opts domain.SendOptions) error {
	m.calls = append(m.calls, sendCall{chatID: chatID, text: text})
	return m.sendFunc(ctx, chatID)
}

func (m *mockSender) SendImage(ctx context.Context, chatID int64, image []byte, caption string) error {
	m.calls = append(m.calls, sendCall{chatID: chatID, image: true, text: caption})
	return m.sendFunc(ctx, chatID)
}

type mockDestinations struct {
	chats []domain.Chat
}

func (m *mockDestinations) Destinations(context.Context) ([]domain.Chat, error) {
	return m.chats, nil
}

type mockImages struct {
	data []byte
	err  error
}

func (m *mockImages) Fetch(context.Context, string) ([]byte, error) {
	return m.data, m.err
}

type mockPublisher struct {
	dispatched []domain.LinkDispatchedEvent
}

func (m *mockPublisher) PublishLinkTracked(context.Context, domain.LinkTrackedEvent) error {
	return nil
}

func (m *mockPublisher) PublishLinkDispatched(_ context.Context, e domain.LinkDispatchedEvent) error {
	m.dispatched = append(m.dispatched, e)
	return nil
}

func (m *mockPublisher) IsHealthy() bool { return true }
func (m *mockPublisher) Close() error    { return nil }

var dests = []domain.Chat{
	{ID: -1001, Name: "Ofertas 1", Type: domain.ChatTypeChannel, HasAccess: true},
	{ID: -1002, Name: "Ofertas 2", Type: domain.ChatTypeChannel, HasAccess: true},
	{ID: -1003, Name: "Ofertas 3", Type: domain.ChatTypeSupergroup, HasAccess: true},
	{ID: -1004, Name: "Ofertas 4", Type: domain.ChatTypeSupergroup, HasAccess: true},
}

type fixture struct {
	uc        *UseCase
	db        *gorm.DB
	sender    *mockSender
	images    *mockImages
	publisher *mockPublisher
}

func newFixture(t *testing.T, send func(ctx context.Context, chatID int64) error) *fixture {
	t.Helper()

	db := dbtest.New(t,
		&trackingentities.TrackedLinkModel{},
		&entities.TelegramSentModel{},
		&entities.DeliveryAttemptModel{},
	)

	f := &fixture{
		db:        db,
		sender:    &mockSender{sendFunc: send},
		images:    &mockImages{},
		publisher: &mockPublisher{},
	}
	f.uc = NewUseCase(
		postgres.NewRepository(db),
		f.sender,
		&mockDestinations{chats: dests},
		f.images,
		f.publisher,
		&config.DispatcherConfig{BatchSize: 5, MaxDestinations: 3, ImageTimeout: time.Second},
		zerolog.Nop(),
		metrics.GetDefaultMetrics(),
	)
	return f
}

func (f *fixture) seed(t *testing.T, url, metadata string) uint {
	t.Helper()
	m := &trackingentities.TrackedLinkModel{
		OriginalURL: url,
		Domain:      "shop.com",
		GroupJID:    "-1009",
		CopyText:    "{}",
		Status:      string(trackingentities.StatusReady),
	}
	if metadata != "" {
		m.Metadata = &metadata
	}
	require.NoError(t, f.db.Create(m).Error)
	return m.ID
}

func (f *fixture) link(t *testing.T, id uint) trackingentities.TrackedLinkModel {
	var m trackingentities.TrackedLinkModel
	require.NoError(t, f.db.First(&m, id).Error)
	return m
}

func (f *fixture) attempts(t *testing.T) []entities.DeliveryAttemptModel {
	var rows []entities.DeliveryAttemptModel
	require.NoError(t, f.db.Order("id").Find(&rows).Error)
	return rows
}

func (f *fixture) sentCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&entities.TelegramSentModel{}).Count(&n).Error)
	return n
}

func TestDispatchBatch_SecondDestinationFails(t *testing.T) {
	f := newFixture(t, func(_ context.Context, chatID int64) error {
		if chatID == -1002 {
			return errors.New("Forbidden: bot was kicked")
		}
		return nil
	})
	id := f.seed(t, "https://shop.com/1", `{"product_title":"Fone","product_price":"99.9"}`)

	stats, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Delivered)

	// only the first MaxDestinations chats are used
	require.Len(t, f.sender.calls, 3)
	require.Equal(t, int64(-1003), f.sender.calls[2].chatID)

	link := f.link(t, id)
	require.Equal(t, string(trackingentities.StatusComplete), link.Status)
	require.NotNil(t, link.ProcessedAt)
	require.Equal(t, int64(1), f.sentCount(t))

	attempts := f.attempts(t)
	require.Len(t, attempts, 3)
	require.True(t, attempts[0].Success)
	require.False(t, attempts[1].Success)
	require.Contains(t, attempts[1].Error, "kicked")
	require.True(t, attempts[2].Success)

	require.Len(t, f.publisher.dispatched, 1)
	require.Equal(t, []string{"-1001", "-1003"}, f.publisher.dispatched[0].Destinations)
	require.Equal(t, []string{"-1002"}, f.publisher.dispatched[0].Failed)
}

func TestDispatchBatch_AllDestinationsFail(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error {
		return errors.New("network down")
	})
	id := f.seed(t, "https://shop.com/1", "")

	stats, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)

	require.Equal(t, string(trackingentities.StatusReady), f.link(t, id).Status)
	require.Zero(t, f.sentCount(t))
	require.Len(t, f.attempts(t), 3)
	require.Empty(t, f.publisher.dispatched)
}

func TestDispatchBatch_RateLimitRetriesDestination(t *testing.T) {
	limited := false
	f := newFixture(t, func(_ context.Context, chatID int64) error {
		if chatID == -1001 && !limited {
			limited = true
			return &domain.RateLimitError{RetryAfter: time.Millisecond, Op: "sendMessage"}
		}
		return nil
	})
	f.seed(t, "https://shop.com/1", "")

	stats, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Delivered)
	require.Len(t, f.sender.calls, 4)

	for _, a := range f.attempts(t) {
		require.True(t, a.Success)
	}
}

func TestDispatchBatch_SendsImageWithCaption(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })
	f.images.data = []byte{0xff, 0xd8}
	f.seed(t, "https://shop.com/1", `{"product_title":"TV","product_image":"https://img/tv.jpg"}`)

	_, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.True(t, f.sender.calls[0].image)
	require.True(t, strings.HasPrefix(f.sender.calls[0].text, "📦 TV"))
}

func TestDispatchBatch_LongCaptionFallsBackToText(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })
	f.images.data = []byte{0xff, 0xd8}
	long := strings.Repeat("a", 1100)
	f.seed(t, "https://shop.com/1", `{"product_title":"TV","ai_description":"`+long+`","product_image":"https://img/tv.jpg"}`)

	_, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.False(t, f.sender.calls[0].image)
}

func TestDispatchBatch_ImageFailureDegradesToText(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })
	f.images.err = errors.New("HTTP 404")
	f.seed(t, "https://shop.com/1", `{"product_image":"https://img/missing.jpg"}`)

	stats, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Delivered)
	require.False(t, f.sender.calls[0].image)
}

func TestDispatchBatch_CancelledAfterFirstSendCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, func(context.Context, int64) error {
		cancel()
		return nil
	})
	id := f.seed(t, "https://shop.com/1", "")
	second := f.seed(t, "https://shop.com/2", "")

	stats, err := f.uc.DispatchBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, stats.Delivered)
	require.Equal(t, 1, stats.Deferred)

	require.Len(t, f.sender.calls, 1)
	require.Equal(t, string(trackingentities.StatusComplete), f.link(t, id).Status)
	require.Len(t, f.attempts(t), 1)
	require.Equal(t, string(trackingentities.StatusReady), f.link(t, second).Status)
}

func TestDispatchBatch_CancelledBeforeFirstSendDefers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, func(context.Context, int64) error { return nil })
	id := f.seed(t, "https://shop.com/1", "")

	// destinations are loaded, then the context is cancelled
	f.uc.destinations = destinationsFunc(func() []domain.Chat {
		cancel()
		return dests
	})

	stats, err := f.uc.DispatchBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, stats.Deferred)
	require.Empty(t, f.sender.calls)
	require.Empty(t, f.attempts(t))
	require.Equal(t, string(trackingentities.StatusReady), f.link(t, id).Status)
}

func TestDispatchBatch_NoDestinations(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })
	f.uc.destinations = &mockDestinations{}
	id := f.seed(t, "https://shop.com/1", "")

	_, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Empty(t, f.sender.calls)
	require.Equal(t, string(trackingentities.StatusReady), f.link(t, id).Status)
}

func TestDispatchBatch_NothingReady(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })

	stats, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Selected)
}

type destinationsFunc func() []domain.Chat

func (f destinationsFunc) Destinations(context.Context) ([]domain.Chat, error) {
	return f(), nil
}

type flakyRepo struct {
	deps.Repository
	failures int
	calls    int
}

func (r *flakyRepo) MarkDelivered(ctx context.Context, linkID uint) error {
	r.calls++
	if r.calls <= r.failures {
		return errors.New("database is locked")
	}
	return r.Repository.MarkDelivered(ctx, linkID)
}

func TestDispatchBatch_MarkDeliveredRetriedOnce(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })
	repo := &flakyRepo{Repository: f.uc.repo, failures: 1}
	f.uc.repo = repo
	id := f.seed(t, "https://shop.com/flaky", "")

	stats, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Delivered)
	require.Equal(t, 2, repo.calls)
	require.Equal(t, string(trackingentities.StatusComplete), f.link(t, id).Status)
	require.Equal(t, int64(1), f.sentCount(t))
	require.Len(t, f.publisher.dispatched, 1)
}

func TestDispatchBatch_MarkDeliveredFailureCounted(t *testing.T) {
	f := newFixture(t, func(context.Context, int64) error { return nil })
	repo := &flakyRepo{Repository: f.uc.repo, failures: 2}
	f.uc.repo = repo
	id := f.seed(t, "https://shop.com/stuck", "")
	before := testutil.ToFloat64(f.uc.metrics.CommitFailures)

	_, err := f.uc.DispatchBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
	require.Equal(t, before+1, testutil.ToFloat64(f.uc.metrics.CommitFailures))
	require.Equal(t, string(trackingentities.StatusReady), f.link(t, id).Status)
	require.Zero(t, f.sentCount(t))
	require.Empty(t, f.publisher.dispatched)
}
