package dispatch

import (
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/repository/postgres"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/usecase/business"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/workers"
	targetsbusiness "github.com/Conte777/affiliate-relay/internal/domain/targets/usecase/business"
	"go.uber.org/fx"
)

// Module provides dispatch domain components for fx DI
var Module = fx.Module("dispatch",
	fx.Provide(
		postgres.NewRepository,
		business.NewUseCase,
		func(c domain.ChatPlatformClient) deps.Sender { return c },
		func(r *targetsbusiness.Registry) deps.DestinationProvider { return r },
	),
	workers.Module,
)
