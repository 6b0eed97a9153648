package entities

import "time"

// ChatPreferenceModel is a GORM model for chat_preferences table
type ChatPreferenceModel struct {
	ChatID    string    `gorm:"column:chat_id;primaryKey;size:64"`
	Purpose   string    `gorm:"size:16;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ChatPreferenceModel) TableName() string {
	return "chat_preferences"
}

// ToEntity converts DB model to domain entity
func (m *ChatPreferenceModel) ToEntity() ChatPreference {
	return ChatPreference{
		ChatID:    m.ChatID,
		Purpose:   Purpose(m.Purpose),
		UpdatedAt: m.UpdatedAt,
	}
}
