package models

import "time"

const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusIncluded = "included"
	SubmissionStatusExcluded = "excluded"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// OrderGroup is the legacy fulfillment model: a client-level grouping that
// holds candidate site submissions.
type OrderGroup struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uint      `gorm:"not null;index" json:"order_id"`
	ClientID   uint      `gorm:"not null;index" json:"client_id"`
	ClientName string    `gorm:"type:varchar(191);not null" json:"client_name"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Submission is a candidate site inside a legacy order group. Price and
// metric fields are snapshots taken when the site was proposed.
type Submission struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	OrderGroupID        uint   `gorm:"not null;index:idx_submissions_group_status,priority:1" json:"order_group_id"`
	TargetPageURL       string `gorm:"type:varchar(512);not null" json:"target_page_url"`
	Status              string `gorm:"type:varchar(32);not null;default:'pending';index:idx_submissions_group_status,priority:2" json:"status"`
	DomainID            uint   `gorm:"not null;index" json:"domain_id"`
	DomainName          string `gorm:"type:varchar(255);not null" json:"domain_name"`
	AnchorText          string `gorm:"type:varchar(255)" json:"anchor_text"`
	WholesalePriceCents int64  `gorm:"not null;default:0" json:"wholesale_price_cents"`
	RetailPriceCents    int64  `gorm:"not null;default:0" json:"retail_price_cents"`
	DomainRating        int    `gorm:"not null;default:0" json:"domain_rating"`
	MonthlyTraffic      int64  `gorm:"not null;default:0" json:"monthly_traffic"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsIncluded reports whether the submission is part of the committed plan.
func (s *Submission) IsIncluded() bool {
	return s.Status == SubmissionStatusIncluded
}

// CountsAsDelivered reports whether the submission counts as delivered for
// drift purposes. Legacy submissions count once included, even while still
// awaiting client approval.
func (s *Submission) CountsAsDelivered() bool {
	switch s.Status {
	case SubmissionStatusPending, SubmissionStatusIncluded, SubmissionStatusApproved:
		return true
	default:
		return false
	}
}
