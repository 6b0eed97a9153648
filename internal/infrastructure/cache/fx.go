package cache

import (
	"context"

	trackingdeps "github.com/Conte777/affiliate-relay/internal/domain/tracking/deps"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides cache components for fx DI
var Module = fx.Module("cache",
	fx.Provide(NewCursorCache),
	fx.Invoke(registerCacheLifecycle),
)

func registerCacheLifecycle(
	lc fx.Lifecycle,
	cache trackingdeps.CursorCache,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("loading cursor cache from database")
			if err := cache.LoadFromDB(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to load cursor cache from database")
				return err
			}
			return nil
		},
	})
}
