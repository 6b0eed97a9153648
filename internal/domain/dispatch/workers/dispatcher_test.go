package workers

import (
	"context"
	"testing"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/usecase/business"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls chan struct{}
}

func (r *countingRepo) ReadyLinks(context.Context, int) ([]trackingentities.TrackedLink, error) {
	r.calls <- struct{}{}
	return nil, nil
}

func (r *countingRepo) MarkDelivered(context.Context, uint) error { return nil }

func (r *countingRepo) RecordAttempt(context.Context, entities.DeliveryAttempt) error { return nil }

func TestDispatchWorker_RunsImmediatelyAndStops(t *testing.T) {
	repo := &countingRepo{calls: make(chan struct{}, 10)}
	cfg := &config.DispatcherConfig{Interval: time.Hour, Timeout: time.Second, BatchSize: 5, MaxDestinations: 3}
	uc := business.NewUseCase(repo, nil, nil, nil, nil, cfg, zerolog.Nop(), metrics.GetDefaultMetrics())

	w := NewDispatchWorker(uc, cfg, zerolog.Nop())
	w.Start()

	select {
	case <-repo.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run")
	}

	w.Stop()
	require.Error(t, w.ctx.Err())
}
