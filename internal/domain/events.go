package domain

import "time"

// LinkTrackedEvent is published when a new affiliate link is stored.
// The external enricher consumes it to fill metadata.
type LinkTrackedEvent struct {
	EventID     string    `json:"event_id"`
	LinkID      uint      `json:"link_id"`
	OriginalURL string    `json:"original_url"`
	MatchedText string    `json:"matched_text"`
	Domain      string    `json:"domain"`
	GroupJID    string    `json:"group_jid"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkDispatchedEvent is published after a link reached at least one destination
type LinkDispatchedEvent struct {
	EventID      string    `json:"event_id"`
	LinkID       uint      `json:"link_id"`
	OriginalURL  string    `json:"original_url"`
	Destinations []string  `json:"destinations"`
	Failed       []string  `json:"failed,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}
