package admin

import (
	"github.com/Conte777/affiliate-relay/internal/domain/admin/delivery/http"
	"github.com/Conte777/affiliate-relay/internal/domain/admin/deps"
	affiliatebusiness "github.com/Conte777/affiliate-relay/internal/domain/affiliate/usecase/business"
	targetsbusiness "github.com/Conte777/affiliate-relay/internal/domain/targets/usecase/business"
	trackingdeps "github.com/Conte777/affiliate-relay/internal/domain/tracking/deps"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/http/server"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides the operator API for fx DI
var Module = fx.Module("admin",
	fx.Provide(
		http.NewAdminHandler,
		http.NewHealthHandler,
		http.NewRouter,
		func(uc *affiliatebusiness.UseCase) deps.DomainService { return uc },
		func(r *targetsbusiness.Registry) deps.TargetService { return r },
		func(repo trackingdeps.Repository) deps.LinkStats { return repo },
		func(db *gorm.DB) (deps.DatabasePinger, error) { return db.DB() },
	),
	fx.Invoke(registerRoutes),
)

// registerRoutes registers admin HTTP routes on the server
func registerRoutes(srv *server.Server, router *http.Router) {
	router.RegisterRoutes(srv.Router)
}
