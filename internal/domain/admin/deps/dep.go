package deps

import (
	"context"

	affiliateentities "github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	targetsentities "github.com/Conte777/affiliate-relay/internal/domain/targets/entities"
)

// DomainService manages the affiliate allow-list
type DomainService interface {
	ListDomains(ctx context.Context) ([]affiliateentities.AffiliateDomain, error)
	UpsertDomain(ctx context.Context, domain, code string, active bool) (*affiliateentities.AffiliateDomain, error)
	SetActive(ctx context.Context, domain string, active bool) error
}

// TargetService exposes the chat classification and its manual overrides
type TargetService interface {
	Targets(ctx context.Context) (targetsentities.TargetSet, error)
	Invalidate()
	ListPreferences(ctx context.Context) ([]targetsentities.ChatPreference, error)
	SetPreference(ctx context.Context, chatID, purpose string) error
	ClearPreference(ctx context.Context, chatID string) error
}

// LinkStats counts tracked links per status
type LinkStats interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// DatabasePinger checks store connectivity
type DatabasePinger interface {
	PingContext(ctx context.Context) error
}
