package http

import (
	"context"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/Conte777/affiliate-relay/internal/domain/admin/deps"
	"github.com/Conte777/affiliate-relay/pkg/httputil"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
)

const pingTimeout = 2 * time.Second

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the JSON response for health check
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components []ComponentHealth `json:"components"`
}

// HealthHandler handles HTTP health check requests
type HealthHandler struct {
	database  deps.DatabasePinger
	platform  domain.ChatPlatformClient
	publisher domain.EventPublisher
	logger    zerolog.Logger
}

// HealthHandlerParams defines parameters for HealthHandler with optional dependencies
type HealthHandlerParams struct {
	fx.In

	Database  deps.DatabasePinger
	Platform  domain.ChatPlatformClient
	Publisher domain.EventPublisher `optional:"true"`
	Logger    zerolog.Logger
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		database:  params.Database,
		platform:  params.Platform,
		publisher: params.Publisher,
		logger:    params.Logger,
	}
}

// Handle handles the health check request for fasthttp
func (h *HealthHandler) Handle(ctx *fasthttp.RequestCtx) {
	components := h.checkComponents(ctx)
	status := determineOverallStatus(components)

	logEvent := h.logger.Debug()
	if status == HealthStatusUnhealthy {
		logEvent = h.logger.Warn()
	} else if status == HealthStatusDegraded {
		logEvent = h.logger.Info()
	}
	logEvent.
		Str("status", string(status)).
		Interface("components", components).
		Msg("Health check completed")

	httputil.WriteHealthResponse(ctx, HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	}, status != HealthStatusUnhealthy)
}

func (h *HealthHandler) checkComponents(ctx context.Context) []ComponentHealth {
	components := make([]ComponentHealth, 0, 3)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	dbMsg := ""
	if err := h.database.PingContext(pingCtx); err != nil {
		dbMsg = "database ping failed: " + err.Error()
	}
	components = append(components, ComponentHealth{
		Name:    "database",
		Healthy: dbMsg == "",
		Message: dbMsg,
	})

	platformHealthy := h.platform.IsConnected()
	platformMsg := ""
	if !platformHealthy {
		platformMsg = "Telegram session or bot is not connected"
	}
	components = append(components, ComponentHealth{
		Name:    "telegram",
		Healthy: platformHealthy,
		Message: platformMsg,
	})

	if h.publisher != nil {
		producerHealthy := h.publisher.IsHealthy()
		producerMsg := ""
		if !producerHealthy {
			producerMsg = "Kafka producer is not healthy"
		}
		components = append(components, ComponentHealth{
			Name:    "kafka_producer",
			Healthy: producerHealthy,
			Message: producerMsg,
		})
	}

	return components
}

// determineOverallStatus is healthy when every component is, unhealthy when none is
func determineOverallStatus(components []ComponentHealth) HealthStatus {
	allHealthy := true
	anyHealthy := false

	for _, component := range components {
		if !component.Healthy {
			allHealthy = false
		} else {
			anyHealthy = true
		}
	}

	if allHealthy {
		return HealthStatusHealthy
	} else if anyHealthy {
		return HealthStatusDegraded
	}

	return HealthStatusUnhealthy
}
