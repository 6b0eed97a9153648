package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides tracking workers for fx DI
var Module = fx.Module("tracking-workers",
	fx.Provide(NewPollerWorker),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle registers poller worker with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, w *PollerWorker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.Stop()
			return nil
		},
	})
}
