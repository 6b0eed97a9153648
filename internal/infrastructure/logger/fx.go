package logger

import (
	"github.com/Conte777/affiliate-relay/config"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides logger for fx DI
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// NewLogger creates a new logger from config
func NewLogger(cfg *config.LoggingConfig, svc *config.ServiceConfig) zerolog.Logger {
	return New(cfg.Level, svc.Name)
}
