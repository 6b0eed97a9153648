package app

import (
	"context"
	"time"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain/admin"
	"github.com/Conte777/affiliate-relay/internal/domain/affiliate"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch"
	"github.com/Conte777/affiliate-relay/internal/domain/targets"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking"
	"github.com/Conte777/affiliate-relay/internal/infrastructure"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/cache"
	"go.uber.org/fx"
)

// startTimeout leaves room for the interactive Telegram login on first start
const startTimeout = 5 * time.Minute

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.StartTimeout(startTimeout),
		fx.Provide(
			config.Out,
			context.Background,
		),
		infrastructure.Module,
		// Domain modules
		affiliate.Module,
		targets.Module,
		tracking.Module,
		cache.Module, // Must be after tracking.Module (depends on tracking Repository)
		dispatch.Module,
		admin.Module,
	)
}
