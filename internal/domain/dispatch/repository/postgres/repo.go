package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/dispatch/entities"
	trackingentities "github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements deps.Repository using gorm
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new dispatch repository
func NewRepository(db *gorm.DB) deps.Repository {
	return &Repository{db: db, now: time.Now}
}

// ReadyLinks returns up to limit dispatchable links ordered by created_at, id
func (r *Repository) ReadyLinks(ctx context.Context, limit int) ([]trackingentities.TrackedLink, error) {
	statuses := make([]string, len(trackingentities.ReadyStatuses))
	for i, s := range trackingentities.ReadyStatuses {
		statuses[i] = string(s)
	}

	var models []trackingentities.TrackedLinkModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("NOT EXISTS (SELECT 1 FROM telegram_sent ts WHERE ts.tracked_link_id = tracked_links.id)").
		Order("created_at, id").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select ready links: %w", err)
	}

	links := make([]trackingentities.TrackedLink, len(models))
	for i := range models {
		links[i] = models[i].ToEntity()
	}
	return links, nil
}

// MarkDelivered inserts telegram_sent and flips the link to complete
func (r *Repository) MarkDelivered(ctx context.Context, linkID uint) error {
	now := r.now()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tracked_link_id"}},
			DoNothing: true,
		}).Create(&entities.TelegramSentModel{TrackedLinkID: linkID, SentAt: now}).Error
		if err != nil {
			return fmt.Errorf("failed to record sent link: %w", err)
		}

		err = tx.Model(&trackingentities.TrackedLinkModel{}).
			Where("id = ?", linkID).
			Updates(map[string]interface{}{
				"status":       string(trackingentities.StatusComplete),
				"processed_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to complete link: %w", err)
		}
		return nil
	})
}

// RecordAttempt appends one row to the delivery audit trail
func (r *Repository) RecordAttempt(ctx context.Context, attempt entities.DeliveryAttempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = r.now()
	}

	model := &entities.DeliveryAttemptModel{
		TrackedLinkID: attempt.LinkID,
		ChatID:        attempt.ChatID,
		ChatName:      attempt.ChatName,
		Success:       attempt.Success,
		Error:         attempt.Error,
		AttemptedAt:   attempt.AttemptedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}
