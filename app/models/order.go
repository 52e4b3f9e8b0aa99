package models

import "time"

const (
	OrderStateDraft          = "draft"
	OrderStatePaymentPending = "payment_pending"
	OrderStatePaymentFailed  = "payment_failed"
	OrderStateConfirmed      = "confirmed"
	OrderStateInProgress     = "in_progress"
	OrderStateCompleted      = "completed"
	OrderStateCancelled      = "cancelled"
)

// Order is the unit of contention for the whole core: webhook handlers,
// benchmark capture and drift comparison all key off one order row.
type Order struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AccountID uint   `gorm:"not null;index" json:"account_id"`
	State     string `gorm:"type:varchar(32);not null;default:'draft';index" json:"state"`

	// Pricing snapshot captured at order creation.
	EstimatedTotalCents   int64   `gorm:"not null;default:0" json:"estimated_total_cents"`
	ServiceFeeCents       int64   `gorm:"not null;default:0" json:"service_fee_cents"`
	EstimatedPricePerLink int64   `gorm:"not null;default:0" json:"estimated_price_per_link"`
	BudgetMinCents        int64   `gorm:"not null;default:0" json:"budget_min_cents"`
	BudgetMaxCents        int64   `gorm:"not null;default:0" json:"budget_max_cents"`
	DRMin                 int     `gorm:"not null;default:0" json:"dr_min"`
	DRMax                 int     `gorm:"not null;default:0" json:"dr_max"`
	MinTraffic            int64   `gorm:"not null;default:0" json:"min_traffic"`
	RequestedCategories   JSON    `gorm:"type:longtext" json:"requested_categories"`
	RequestedLinkTypes    JSON    `gorm:"type:longtext" json:"requested_link_types"`
	RequestedNiches       JSON    `gorm:"type:longtext" json:"requested_niches"`

	ConfirmedAt *time.Time `gorm:"type:timestamp;default:null" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
