package postgres

import (
	"context"
	"fmt"

	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/deps"
	"github.com/Conte777/affiliate-relay/internal/domain/affiliate/entities"
	affiliateerrors "github.com/Conte777/affiliate-relay/internal/domain/affiliate/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository implements deps.DomainRepository using gorm
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new affiliate domain repository
func NewRepository(db *gorm.DB) deps.DomainRepository {
	return &Repository{db: db}
}

// ListActive returns rows with is_active set
func (r *Repository) ListActive(ctx context.Context) ([]entities.AffiliateDomain, error) {
	var models []entities.AffiliateDomainModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("domain").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list active domains: %w", err)
	}
	return toEntities(models), nil
}

// List returns every allow-list row
func (r *Repository) List(ctx context.Context) ([]entities.AffiliateDomain, error) {
	var models []entities.AffiliateDomainModel
	if err := r.db.WithContext(ctx).Order("domain").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	return toEntities(models), nil
}

// Upsert inserts a domain or updates its code and active flag
func (r *Repository) Upsert(ctx context.Context, d entities.AffiliateDomain) (*entities.AffiliateDomain, error) {
	model := &entities.AffiliateDomainModel{
		Domain:        d.Domain,
		AffiliateCode: d.AffiliateCode,
		IsActive:      d.IsActive,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"affiliate_code", "is_active", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert domain: %w", err)
	}

	var stored entities.AffiliateDomainModel
	if err := r.db.WithContext(ctx).Where("domain = ?", d.Domain).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to reload domain: %w", err)
	}

	entity := stored.ToEntity()
	return &entity, nil
}

// SetActive toggles a domain without touching its code
func (r *Repository) SetActive(ctx context.Context, domain string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&entities.AffiliateDomainModel{}).
		Where("domain = ?", domain).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update domain: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return affiliateerrors.ErrDomainNotFound
	}
	return nil
}

func toEntities(models []entities.AffiliateDomainModel) []entities.AffiliateDomain {
	out := make([]entities.AffiliateDomain, len(models))
	for i := range models {
		out[i] = models[i].ToEntity()
	}
	return out
}
