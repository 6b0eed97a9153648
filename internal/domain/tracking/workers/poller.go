package workers

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/usecase/business"
	"github.com/rs/zerolog"
)

// PollerWorker periodically polls source chats for affiliate links
type PollerWorker struct {
	useCase  *business.UseCase
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPollerWorker creates a new poller worker
func NewPollerWorker(
	useCase *business.UseCase,
	cfg *config.PollerConfig,
	logger zerolog.Logger,
) *PollerWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &PollerWorker{
		useCase:  useCase,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger.With().Str("component", "poller_worker").Logger(),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the poller worker
func (w *PollerWorker) Start() {
	w.logger.Info().
		Dur("interval", w.interval).
		Dur("timeout", w.timeout).
		Msg("Starting poller worker")

	w.wg.Add(1)
	go w.run()
}

// Stop gracefully stops the poller worker
func (w *PollerWorker) Stop() {
	w.logger.Info().Msg("Stopping poller worker")

	w.cancel()
	close(w.done)
	w.wg.Wait()

	w.logger.Info().Msg("Poller worker stopped")
}

// run polls once immediately, then on every tick. Ticks that arrive while a
// cycle is running are dropped by the ticker.
func (w *PollerWorker) run() {
	defer w.wg.Done()

	w.poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll performs a single poll cycle
func (w *PollerWorker) poll() {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Poll cycle panicked")
		}
	}()

	if err := w.useCase.PollSources(ctx); err != nil {
		if ctx.Err() != nil {
			w.logger.Warn().Err(err).Msg("Poll cycle cancelled or timed out")
		} else {
			w.logger.Error().Err(err).Msg("Poll cycle failed")
		}
	}
}
