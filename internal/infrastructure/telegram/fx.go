package telegram

import (
	"context"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module provides the chat platform client for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewPlatformFx),
)

// NewPlatformFx builds the platform client and ties its connection to the app lifecycle
func NewPlatformFx(
	lc fx.Lifecycle,
	cfg *config.TelegramConfig,
	db *gorm.DB,
	logger zerolog.Logger,
) (domain.ChatPlatformClient, error) {
	storage, err := NewGormSessionStorage(db, cfg.Phone)
	if err != nil {
		return nil, err
	}

	reader, err := NewMTProtoClient(MTProtoClientConfig{
		APIID:       cfg.APIID,
		APIHash:     cfg.APIHash,
		PhoneNumber: cfg.Phone,
		Password:    cfg.Password,
		RateLimit:   cfg.RateLimit,
		Storage:     storage,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	sender, err := NewBotSender(cfg.BotToken, logger)
	if err != nil {
		return nil, err
	}

	platform := NewPlatform(reader, sender, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := platform.Connect(ctx); err != nil {
				logger.Error().Err(err).Msg("Failed to connect to Telegram")
				return err
			}
			logger.Info().Msg("Telegram platform connected")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := platform.Disconnect(ctx); err != nil {
				logger.Error().Err(err).Msg("Failed to disconnect from Telegram")
				return err
			}
			logger.Info().Msg("Telegram platform disconnected")
			return nil
		},
	})

	return platform, nil
}
