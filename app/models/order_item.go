package models

import "time"

const (
	OrderItemStatusPending    = "pending"
	OrderItemStatusAssigned   = "assigned"
	OrderItemStatusInProgress = "in_progress"
	OrderItemStatusDelivered  = "delivered"
	OrderItemStatusCancelled  = "cancelled"
	OrderItemStatusRefunded   = "refunded"
)

// OrderItem is the modern per-link fulfillment record: one row per requested
// link, optionally carrying its assigned domain. Supersedes the legacy
// order-group/submission model.
type OrderItem struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	OrderID             uint   `gorm:"not null;index:idx_order_items_order_status,priority:1" json:"order_id"`
	ClientID            uint   `gorm:"not null;index" json:"client_id"`
	ClientName          string `gorm:"type:varchar(191);not null" json:"client_name"`
	TargetPageURL       string `gorm:"type:varchar(512);not null" json:"target_page_url"`
	Status              string `gorm:"type:varchar(32);not null;default:'pending';index:idx_order_items_order_status,priority:2" json:"status"`
	DomainID            *uint  `gorm:"index" json:"domain_id,omitempty"`
	DomainName          string `gorm:"type:varchar(255)" json:"domain_name"`
	AnchorText          string `gorm:"type:varchar(255)" json:"anchor_text"`
	WholesalePriceCents int64  `gorm:"not null;default:0" json:"wholesale_price_cents"`
	RetailPriceCents    int64  `gorm:"not null;default:0" json:"retail_price_cents"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the item still counts toward fulfillment.
func (i *OrderItem) IsActive() bool {
	return i.Status != OrderItemStatusCancelled && i.Status != OrderItemStatusRefunded
}

// HasAssignedDomain reports whether a domain has been chosen for this item.
func (i *OrderItem) HasAssignedDomain() bool {
	return i.DomainID != nil && *i.DomainID != 0
}
