package business

import (
	"context"
	"strings"

	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	affiliateerrors "github.com/Conte777/affiliate-relay/internal/domain/affiliate/errors"
	"github.com/rs/zerolog"
)

// UseCase implements allow-list lookups and operator management
type UseCase struct {
	repo   deps.DomainRepository
	logger zerolog.Logger
}

// NewUseCase creates a new affiliate use case
func NewUseCase(repo deps.DomainRepository, logger zerolog.Logger) *UseCase {
	return &UseCase{
		repo:   repo,
		logger: logger.With().Str("component", "affiliate").Logger(),
	}
}

// ActiveDomains loads a matching snapshot of the active allow-list
func (u *UseCase) ActiveDomains(ctx context.Context) (*entities.DomainSet, error) {
	domains, err := u.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return entities.NewDomainSet(domains), nil
}

// ListDomains returns all allow-list rows, active or not
func (u *UseCase) ListDomains(ctx context.Context) ([]entities.AffiliateDomain, error) {
	return u.repo.List(ctx)
}

// UpsertDomain adds or updates an allow-list entry
func (u *UseCase) UpsertDomain(ctx context.Context, domain, code string, active bool) (*entities.AffiliateDomain, error) {
	normalized := entities.NormalizeDomain(domain)
	if normalized == "" || !strings.Contains(normalized, ".") {
		return nil, affiliateerrors.ErrInvalidDomain
	}

	stored, err := u.repo.Upsert(ctx, entities.AffiliateDomain{
		Domain:        normalized,
		AffiliateCode: strings.TrimSpace(code),
		IsActive:      active,
	})
	if err != nil {
		u.logger.Error().Err(err).Str("domain", normalized).Msg("Failed to upsert affiliate domain")
		return nil, err
	}

	u.logger.Info().
		Str("domain", stored.Domain).
		Bool("active", stored.IsActive).
		Msg("Affiliate domain saved")

	return stored, nil
}

// SetActive enables or disables tracking for a domain
func (u *UseCase) SetActive(ctx context.Context, domain string, active bool) error {
	normalized := entities.NormalizeDomain(domain)
	if normalized == "" {
		return affiliateerrors.ErrInvalidDomain
	}

	if err := u.repo.SetActive(ctx, normalized, active); err != nil {
		return err
	}

	u.logger.Info().Str("domain", normalized).Bool("active", active).Msg("Affiliate domain toggled")
	return nil
}
