package telegram

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/gotd/td/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSessionStorage implements session.Storage on top of the service database.
// Rows are keyed by the SHA-256 of the phone number.
type GormSessionStorage struct {
	db  *gorm.DB
	key string
}

// NewGormSessionStorage creates a session storage for the given phone number
func NewGormSessionStorage(db *gorm.DB, phoneNumber string) (*GormSessionStorage, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if phoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	hash := sha256.Sum256([]byte(phoneNumber))

	return &GormSessionStorage{
		db:  db,
		key: fmt.Sprintf("%x", hash[:]),
	}, nil
}

// LoadSession loads session data, returning session.ErrNotFound when absent
func (s *GormSessionStorage) LoadSession(ctx context.Context) ([]byte, error) {
	var sess SessionModel
	result := s.db.WithContext(ctx).Where("session_key = ?", s.key).Limit(1).Find(&sess)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load session: %w", result.Error)
	}
	if result.RowsAffected == 0 || len(sess.Data) == 0 {
		return nil, session.ErrNotFound
	}

	return sess.Data, nil
}

// StoreSession upserts session data
func (s *GormSessionStorage) StoreSession(ctx context.Context, data []byte) error {
	sess := SessionModel{
		SessionKey: s.key,
		Data:       data,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&sess).Error
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// DeleteSession removes the stored session so the next login starts fresh
func (s *GormSessionStorage) DeleteSession(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("session_key = ?", s.key).Delete(&SessionModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

var _ session.Storage = (*GormSessionStorage)(nil)
