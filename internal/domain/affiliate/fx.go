package affiliate

import (
	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/repository/postgres"
	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/usecase/business"
	"go.uber.org/fx"
)

// Module provides affiliate domain components for fx DI
var Module = fx.Module("affiliate",
	fx.Provide(
		postgres.NewRepository,
		business.NewUseCase,
	),
)
