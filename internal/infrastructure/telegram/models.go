package telegram

import "time"

// SessionModel is the persisted MTProto session of the operating account
type SessionModel struct {
	ID         uint      `gorm:"primaryKey"`
	SessionKey string    `gorm:"uniqueIndex;not null;size:64"`
	Data       []byte    `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for SessionModel
func (SessionModel) TableName() string {
	return "telegram_sessions"
}
