package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides dispatch workers for fx DI
var Module = fx.Module("dispatch-workers",
	fx.Provide(NewDispatchWorker),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle registers dispatch worker with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, w *DispatchWorker) {
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
