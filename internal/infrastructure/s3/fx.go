package s3

import (
	"context"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the product image store for fx DI
var Module = fx.Module("s3",
	fx.Provide(NewImageStoreFx),
)

// NewImageStoreFx returns the MinIO mirror, or DisabledStore when S3 is not configured
func NewImageStoreFx(
	lc fx.Lifecycle,
	cfg *config.S3Config,
	logger zerolog.Logger,
) (domain.ImageStore, error) {
	if !cfg.Enabled() {
		logger.Info().Msg("S3 endpoint not configured, image mirror disabled")
		return DisabledStore{}, nil
	}

	mirror, err := NewImageMirror(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info().Msg("initializing S3/MinIO client...")
			if err := mirror.EnsureBucket(ctx); err != nil {
				return err
			}
			logger.Info().Msg("S3/MinIO client initialized successfully")
			return nil
		},
	})

	return mirror, nil
}
