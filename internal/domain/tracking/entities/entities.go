package entities

import (
	"encoding/json"
	"time"
)

// LinkStatus is the delivery pipeline state of a tracked link
type LinkStatus string

const (
	StatusPending  LinkStatus = "pending"
	StatusReady    LinkStatus = "ready"
	StatusWSent    LinkStatus = "w-sent" // legacy name for ready
	StatusComplete LinkStatus = "complete"
	StatusFailed   LinkStatus = "failed"
)

// ReadyStatuses are the states eligible for dispatch
var ReadyStatuses = []LinkStatus{StatusReady, StatusWSent}

// TrackedLink is an affiliate URL captured from a source chat
type TrackedLink struct {
	ID            uint       `json:"id"`
	OriginalURL   string     `json:"original_url"`
	Domain        string     `json:"domain"`
	GroupJID      string     `json:"group_jid"`
	CopyText      string     `json:"copy_text"`
	Status        LinkStatus `json:"status"`
	AffiliateLink string     `json:"affiliate_link,omitempty"`
	Metadata      string     `json:"metadata,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// CopyText is the originating message context handed to the enricher
type CopyText struct {
	Text        string `json:"text"`
	MatchedText string `json:"matchedText"`
}

// Encode returns the JSON stored in tracked_links.copy_text
func (c CopyText) Encode() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// InsertOutcome distinguishes a stored link from an already tracked one
type InsertOutcome int

const (
	InsertFailed InsertOutcome = iota
	Inserted
	DuplicateIgnored
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case DuplicateIgnored:
		return "duplicate_ignored"
	default:
		return "failure"
	}
}

// PollStats summarizes one poll of one source chat
type PollStats struct {
	ChatID     string
	Fetched    int
	Inspected  int
	Skipped    int // already marked processed
	Saved      int
	Duplicates int
	Failed     int
	Cursor     int64
}
