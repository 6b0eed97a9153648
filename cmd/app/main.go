package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/app"
)

func main() {
	fx.New(
		app.CreateApp(),
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().
				Str("service", cfg.Service.Name).
				Str("port", cfg.Service.Port).
				Str("target_policy", cfg.Targets.Policy).
				Bool("kafka_enabled", cfg.Kafka.Enabled()).
				Bool("image_mirror_enabled", cfg.S3.Enabled()).
				Msg("Affiliate relay initialized successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Affiliate relay stopped")
			return nil
		},
	})
}
