package entities

import "time"

// DeliveryAttempt is the audit record of one send to one destination
type DeliveryAttempt struct {
	LinkID      uint      `json:"link_id"`
	ChatID      int64     `json:"chat_id"`
	ChatName    string    `json:"chat_name"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// Outbound is a rendered promotional message
type Outbound struct {
	Text     string
	ImageURL string
	Link     string
}

// DispatchStats summarizes one dispatch batch
type DispatchStats struct {
	Selected  int
	Delivered int // links sent to at least one destination
	Failed    int // links no destination accepted
	Deferred  int // links left untouched by cancellation
}
