package postgres

import (
	"context"
	"fmt"

	"github.com/Conte777/affiliate-relay/internal/domain/targets/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
	targetserrors "github.com/Conte777/affiliate-relay/internal/domain/targets/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements deps.PreferenceRepository using gorm
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new chat preference repository
func NewRepository(db *gorm.DB) deps.PreferenceRepository {
	return &Repository{db: db}
}

// List returns all manual classifications
func (r *Repository) List(ctx context.Context) ([]entities.ChatPreference, error) {
	var models []entities.ChatPreferenceModel
	if err := r.db.WithContext(ctx).Order("chat_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat preferences: %w", err)
	}

	prefs := make([]entities.ChatPreference, len(models))
	for i := range models {
		prefs[i] = models[i].ToEntity()
	}
	return prefs, nil
}

// Set creates or replaces the preference for a chat
func (r *Repository) Set(ctx context.Context, chatID string, purpose entities.Purpose) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"purpose", "updated_at"}),
		}).
		Create(&entities.ChatPreferenceModel{ChatID: chatID, Purpose: string(purpose)}).Error
	if err != nil {
		return fmt.Errorf("failed to set chat preference: %w", err)
	}
	return nil
}

// Delete removes the preference for a chat
func (r *Repository) Delete(ctx context.Context, chatID string) error {
	result := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&entities.ChatPreferenceModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chat preference: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return targetserrors.ErrPreferenceNotFound
	}
	return nil
}
