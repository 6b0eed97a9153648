package domain

import (
	"strconv"
	"time"
)

// ChatType is the closed set of chat kinds the platform adapter resolves
type ChatType string

const (
	ChatTypeUser       ChatType = "user"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
	ChatTypeGigagroup  ChatType = "gigagroup"
)

// IsGroupLike reports whether members other than admins can usually post
func (t ChatType) IsGroupLike() bool {
	return t == ChatTypeGroup || t == ChatTypeSupergroup || t == ChatTypeGigagroup
}

// Chat is one dialog visible to the operating account
type Chat struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Type              ChatType `json:"type"`
	HasAccess         bool     `json:"has_access"` // the sending bot can see the chat
	IsAdmin           bool     `json:"is_admin"`   // the sending bot is administrator
	ParticipantsCount int      `json:"participants_count"`
	Username          string   `json:"username,omitempty"`
}

// Key returns the chat ID in the string form used by the store
func (c Chat) Key() string {
	return strconv.FormatInt(c.ID, 10)
}

// Message is a raw message fetched from a source chat
type Message struct {
	ID        int64
	Text      string
	SenderID  int64
	Timestamp time.Time
}

// SendOptions controls text delivery
type SendOptions struct {
	ParseMode   string
	LinkPreview bool
}

// Capabilities describes what the sending bot may do in a chat
type Capabilities struct {
	HasAccess   bool
	IsAdmin     bool
	CanPost     bool
	MemberState string
}
