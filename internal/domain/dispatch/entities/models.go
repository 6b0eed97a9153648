package entities

import "time"

// TelegramSentModel is a GORM model for telegram_sent table
type TelegramSentModel struct {
	ID            uint      `gorm:"primaryKey"`
	TrackedLinkID uint      `gorm:"column:tracked_link_id;not null;uniqueIndex"`
	SentAt        time.Time `gorm:"not null"`
}

func (TelegramSentModel) TableName() string {
	return "telegram_sent"
}

// DeliveryAttemptModel is a GORM model for delivery_attempts table
type DeliveryAttemptModel struct {
	ID            uint      `gorm:"primaryKey"`
	TrackedLinkID uint      `gorm:"column:tracked_link_id;not null;index"`
	ChatID        int64     `gorm:"not null"`
	ChatName      string    `gorm:"size:255"`
	Success       bool      `gorm:"not null"`
	Error         string    `gorm:"type:text"`
	AttemptedAt   time.Time `gorm:"not null;index"`
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}
