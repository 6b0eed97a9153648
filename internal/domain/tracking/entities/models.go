package entities

import "time"

// ChannelCursorModel is a GORM model for channel_cursor table
type ChannelCursorModel struct {
	GroupID       string    `gorm:"column:group_id;primaryKey;size:64"`
	LastMessageID int64     `gorm:"not null;default:0"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (ChannelCursorModel) TableName() string {
	return "channel_cursor"
}

// ProcessedMessageModel is a GORM model for processed_messages table
type ProcessedMessageModel struct {
	ID          uint      `gorm:"primaryKey"`
	MessageID   int64     `gorm:"not null;uniqueIndex:uq_processed_message"`
	GroupJID    string    `gorm:"column:group_jid;size:64;not null;uniqueIndex:uq_processed_message"`
	ProcessedAt time.Time `gorm:"autoCreateTime"`
}

func (ProcessedMessageModel) TableName() string {
	return "processed_messages"
}

// TrackedLinkModel is a GORM model for tracked_links table.
// AffiliateLink and Metadata are written by the external enricher and may be NULL.
type TrackedLinkModel struct {
	ID            uint       `gorm:"primaryKey"`
	OriginalURL   string     `gorm:"column:original_url;size:2048;not null;uniqueIndex"`
	Domain        string     `gorm:"size:255;not null;index"`
	GroupJID      string     `gorm:"column:group_jid;size:64;not null"`
	CopyText      string     `gorm:"type:text;not null"`
	Status        string     `gorm:"size:16;not null;index"`
	AffiliateLink *string    `gorm:"size:2048"`
	Metadata      *string    `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index"`
	ProcessedAt   *time.Time
}

func (TrackedLinkModel) TableName() string {
	return "tracked_links"
}

// ToEntity converts DB model to domain entity
func (m *TrackedLinkModel) ToEntity() TrackedLink {
	link := TrackedLink{
		ID:          m.ID,
		OriginalURL: m.OriginalURL,
		Domain:      m.Domain,
		GroupJID:    m.GroupJID,
		CopyText:    m.CopyText,
		Status:      LinkStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		ProcessedAt: m.ProcessedAt,
	}
	if m.AffiliateLink != nil {
		link.AffiliateLink = *m.AffiliateLink
	}
	if m.Metadata != nil {
		link.Metadata = *m.Metadata
	}
	return link
}
