package http

import (
	"time"

	"github.com/Conte777/affiliate-relay/internal/domain"
	targetsentities "github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
)

// CreateDomainRequest is the body of POST /api/v1/domains
type CreateDomainRequest struct {
	Domain        string `json:"domain"`
	AffiliateCode string `json:"affiliate_code"`
	IsActive      *bool  `json:"is_active"`
}

// UpdateDomainRequest is the body of PATCH /api/v1/domains/{domain}
type UpdateDomainRequest struct {
	IsActive *bool `json:"is_active"`
}

// UpdateDomainResponse confirms a toggle
type UpdateDomainResponse struct {
	Domain   string `json:"domain"`
	IsActive bool   `json:"is_active"`
}

// TargetsResponse is the current classification plus manual overrides
type TargetsResponse struct {
	Sources      []domain.Chat                    `json:"sources"`
	Destinations []domain.Chat                    `json:"destinations"`
	Preferences  []targetsentities.ChatPreference `json:"preferences"`
	RefreshedAt  time.Time                        `json:"refreshed_at"`
}

// SetPurposeRequest is the body of PUT /api/v1/chats/{chat_id}/purpose
type SetPurposeRequest struct {
	Purpose string `json:"purpose"`
}

// PurposeResponse confirms a preference change
type PurposeResponse struct {
	ChatID  string `json:"chat_id"`
	Purpose string `json:"purpose,omitempty"`
}

// LinkStatsResponse is the link count per status
type LinkStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}
