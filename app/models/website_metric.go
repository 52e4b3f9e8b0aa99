package models

import "time"

// WebsiteMetric holds the latest known SEO metrics and pricing for a domain
// in the marketplace inventory.
type WebsiteMetric struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	DomainID            uint      `gorm:"not null;uniqueIndex" json:"domain_id"`
	DomainName          string    `gorm:"type:varchar(255);not null;index" json:"domain_name"`
	DomainRating        int       `gorm:"not null;default:0" json:"domain_rating"`
	MonthlyTraffic      int64     `gorm:"not null;default:0" json:"monthly_traffic"`
	WholesalePriceCents int64     `gorm:"not null;default:0" json:"wholesale_price_cents"`
	RetailPriceCents    int64     `gorm:"not null;default:0" json:"retail_price_cents"`
	Categories          JSON      `gorm:"type:longtext" json:"categories"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
