package workers

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/usecase/business"
	"github.com/rs/zerolog"
)

// DispatchWorker periodically delivers ready links to destination chats
type DispatchWorker struct {
	useCase  *business.UseCase
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatchWorker creates a new dispatch worker
func NewDispatchWorker(
	useCase *business.UseCase,
	cfg *config.DispatcherConfig,
	logger zerolog.Logger,
) *DispatchWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &DispatchWorker{
		useCase:  useCase,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   logger.With().Str("component", "dispatch_worker").Logger(),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the dispatch worker
func (w *DispatchWorker) Start() {
	w.logger.Info().
		Dur("interval", w.interval).
		Dur("timeout", w.timeout).
		Msg("Starting dispatch worker")

	w.wg.Add(1)
	go w.run()
}

// Stop cancels an in-flight batch and waits for it to commit
func (w *DispatchWorker) Stop() {
	w.logger.Info().Msg("Stopping dispatch worker")

	w.cancel()
	close(w.done)
	w.wg.Wait()

	w.logger.Info().Msg("Dispatch worker stopped")
}

func (w *DispatchWorker) run() {
	defer w.wg.Done()

	w.dispatch()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.dispatch()
		}
	}
}

// dispatch performs a single dispatch cycle
func (w *DispatchWorker) dispatch() {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Dispatch cycle panicked")
		}
	}()

	stats, err := w.useCase.DispatchBatch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			w.logger.Warn().Err(err).
				Int("delivered", stats.Delivered).
				Int("deferred", stats.Deferred).
				Msg("Dispatch cycle cancelled or timed out")
		} else {
			w.logger.Error().Err(err).Msg("Dispatch cycle failed")
		}
	}
}
