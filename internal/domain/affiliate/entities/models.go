package entities

import "time"

// AffiliateDomainModel is a GORM model for affiliate_domains table
type AffiliateDomainModel struct {
	ID            uint      `gorm:"primaryKey"`
	Domain        string    `gorm:"size:255;not null;uniqueIndex"`
	AffiliateCode string    `gorm:"size:255;not null;default:''"`
	IsActive      bool      `gorm:"not null;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (AffiliateDomainModel) TableName() string {
	return "affiliate_domains"
}

// ToEntity converts DB model to domain entity
func (m *AffiliateDomainModel) ToEntity() AffiliateDomain {
	return AffiliateDomain{
		ID:            m.ID,
		Domain:        m.Domain,
		AffiliateCode: m.AffiliateCode,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
