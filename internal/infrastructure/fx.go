package infrastructure

import (
	"github.com/Conte777/affiliate-relay/internal/infrastructure/database"
	httpfx "github.com/Conte777/affiliate-relay/internal/infrastructure/http"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/imagefetch"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/kafka"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/logger"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/metrics"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/s3"
	"github.com/Conte777/affiliate-relay/internal/infrastructure/telegram"
	"go.uber.org/fx"
)

// Module aggregates all infrastructure modules
var Module = fx.Module("infrastructure",
	logger.Module,
	database.Module, // Must be before telegram (session storage depends on *gorm.DB)
	metrics.Module,
	telegram.Module,
	kafka.Module,
	s3.Module,
	imagefetch.Module, // Depends on the s3 image store
	httpfx.Module,
)
