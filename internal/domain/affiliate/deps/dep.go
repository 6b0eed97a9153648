package deps

import (
	"context"

	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
)

// DomainRepository defines storage for the affiliate allow-list
type DomainRepository interface {
	ListActive(ctx context.Context) ([]entities.AffiliateDomain, error)
	List(ctx context.Context) ([]entities.AffiliateDomain, error)
	Upsert(ctx context.Context, domain entities.AffiliateDomain) (*entities.AffiliateDomain, error)
	SetActive(ctx context.Context, domain string, active bool) error
}
