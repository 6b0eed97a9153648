package http

import (
	"github.com/Conte777/affiliate-relay/pkg/httputil"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers admin HTTP routes
type Router struct {
	handler *AdminHandler
	health  *HealthHandler
	logger  zerolog.Logger
}

// NewRouter creates a new admin router
func NewRouter(handler *AdminHandler, health *HealthHandler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		health:  health,
		logger:  logger,
	}
}

// RegisterRoutes registers admin routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/health", r.health.Handle)

	api := httputil.NewMiddlewareGroup(rt.Group("/api/v1")).
		Use(httputil.Recover(r.logger), httputil.RequestLogger(r.logger))

	api.GET("/domains", r.handler.ListDomains)
	api.POST("/domains", r.handler.CreateDomain)
	api.PATCH("/domains/{domain}", r.handler.UpdateDomain)

	api.GET("/targets", r.handler.GetTargets)
	api.PUT("/chats/{chat_id}/purpose", r.handler.SetPurpose)
	api.DELETE("/chats/{chat_id}/purpose", r.handler.ClearPurpose)

	api.GET("/links/stats", r.handler.LinkStats)
}
