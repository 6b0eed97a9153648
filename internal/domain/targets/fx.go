package targets

import (
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/repository/postgres"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/usecase/business"
	"go.uber.org/fx"
)

// Module provides target classification components for fx DI
var Module = fx.Module("targets",
	fx.Provide(
		postgres.NewRepository,
		business.NewRegistry,
		func(c domain.ChatPlatformClient) deps.ChatLister { return c },
	),
)
