package tracking

import (
	"github.com/Conte777/affiliate-relay/internal/domain"
	affiliatebusiness "github.com/Conte777/affiliate-relay/internal/domain/affiliate/usecase/business"
	targetsbusiness "github.com/Conte777/affiliate-relay/internal/domain/targets/usecase/business"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/repository/postgres"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/usecase/business"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/workers"
	"go.uber.org/fx"
)

// Module provides tracking domain components for fx DI
var Module = fx.Module("tracking",
	fx.Provide(
		postgres.NewRepository,
		business.NewUseCase,
		func(c domain.ChatPlatformClient) deps.MessageFetcher { return c },
		func(r *targetsbusiness.Registry) deps.SourceProvider { return r },
		func(uc *affiliatebusiness.UseCase) deps.DomainCatalog { return uc },
	),
	workers.Module,
)
