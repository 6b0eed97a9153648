package postgres

import (
	"context"
	"fmt"

	"github.com/Conte777/affiliate-relay/internal/domain/tracking/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/tracking/entities"
	trackingerrors "github.com/Conte777/affiliate-relay/internal/domain/tracking/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cursorMax keeps last_message_id monotonic under concurrent or stale writers
const cursorMax = "CASE WHEN channel_cursor.last_message_id < excluded.last_message_id " +
	"THEN excluded.last_message_id ELSE channel_cursor.last_message_id END"

// Repository implements deps.Repository using gorm
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tracking repository
func NewRepository(db *gorm.DB) deps.Repository {
	return &Repository{db: db}
}

// GetCursor returns the stored cursor or 0 when the chat has none
func (r *Repository) GetCursor(ctx context.Context, groupID string) (int64, error) {
	var model entities.ChannelCursorModel
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Limit(1).
		Find(&model).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get cursor: %w", err)
	}
	return model.LastMessageID, nil
}

// ListCursors returns every stored cursor keyed by group ID
func (r *Repository) ListCursors(ctx context.Context) (map[string]int64, error) {
	var models []entities.ChannelCursorModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}

	out := make(map[string]int64, len(models))
	for _, m := range models {
		out[m.GroupID] = m.LastMessageID
	}
	return out, nil
}

// ProcessedIDs returns the subset of ids already marked for groupID
func (r *Repository) ProcessedIDs(ctx context.Context, groupID string, ids []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	if len(ids) == 0 {
		return out, nil
	}

	var found []int64
	err := r.db.WithContext(ctx).
		Model(&entities.ProcessedMessageModel{}).
		Where("group_jid = ? AND message_id IN ?", groupID, ids).
		Pluck("message_id", &found).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load processed messages: %w", err)
	}

	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// CommitPage writes processed marks and the cursor in one transaction
func (r *Repository) CommitPage(ctx context.Context, groupID string, cursor int64, examined []int64) error {
	if groupID == "" {
		return trackingerrors.ErrInvalidGroupID
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(examined) > 0 {
			marks := make([]entities.ProcessedMessageModel, len(examined))
			for i, id := range examined {
				marks[i] = entities.ProcessedMessageModel{MessageID: id, GroupJID: groupID}
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marks).Error; err != nil {
				return fmt.Errorf("failed to mark messages processed: %w", err)
			}
		}

		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "group_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_message_id": gorm.Expr(cursorMax),
				"updated_at":      gorm.Expr("excluded.updated_at"),
			}),
		}).Create(&entities.ChannelCursorModel{GroupID: groupID, LastMessageID: cursor}).Error
		if err != nil {
			return fmt.Errorf("failed to advance cursor: %w", err)
		}
		return nil
	})
}

// InsertLink stores a pending link; an existing original_url is reported, not failed
func (r *Repository) InsertLink(ctx context.Context, link *entities.TrackedLink) (entities.InsertOutcome, error) {
	if link.OriginalURL == "" {
		return entities.InsertFailed, trackingerrors.ErrEmptyURL
	}

	status := link.Status
	if status == "" {
		status = entities.StatusPending
	}

	model := &entities.TrackedLinkModel{
		OriginalURL: link.OriginalURL,
		Domain:      link.Domain,
		GroupJID:    link.GroupJID,
		CopyText:    link.CopyText,
		Status:      string(status),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "original_url"}},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return entities.InsertFailed, fmt.Errorf("failed to insert tracked link: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.DuplicateIgnored, nil
	}

	link.ID = model.ID
	link.Status = status
	link.CreatedAt = model.CreatedAt
	return entities.Inserted, nil
}

// CountByStatus returns the number of tracked links per status
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&entities.TrackedLinkModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count links: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
