package entities

import (
	"strings"
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
)

// Purpose is an operator override for a chat's role
type Purpose string

const (
	PurposeDestination Purpose = "destino"
	PurposeSource      Purpose = "rastreio"
)

// ParsePurpose validates an operator supplied purpose
func ParsePurpose(raw string) (Purpose, bool) {
	switch p := Purpose(strings.ToLower(strings.TrimSpace(raw))); p {
	case PurposeDestination, PurposeSource:
		return p, true
	default:
		return "", false
	}
}

// Policy selects how chats without a preference are classified
type Policy string

const (
	// PolicyPermissive makes every reachable non-user chat a destination
	PolicyPermissive Policy = "permissive"
	// PolicyAdmin requires the sending bot to be administrator
	PolicyAdmin Policy = "admin"
)

// ChatPreference is a stored manual classification
type ChatPreference struct {
	ChatID    string    `json:"chat_id"`
	Purpose   Purpose   `json:"purpose"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TargetSet is one classification snapshot; a chat is in at most one list
type TargetSet struct {
	Sources      []domain.Chat `json:"sources"`
	Destinations []domain.Chat `json:"destinations"`
	RefreshedAt  time.Time     `json:"refreshed_at"`
}
