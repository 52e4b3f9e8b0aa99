package models

import "time"

// OrderTargetPage is the original requested structure captured at order
// creation: which page of which client should receive how many links. Used
// as the snapshot source before any fulfillment has started.
type OrderTargetPage struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrderID            uint      `gorm:"not null;index" json:"order_id"`
	ClientID           uint      `gorm:"not null;index" json:"client_id"`
	ClientName         string    `gorm:"type:varchar(191);not null" json:"client_name"`
	URL                string    `gorm:"type:varchar(512);not null" json:"url"`
	RequestedLinkCount int       `gorm:"not null;default:1" json:"requested_link_count"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}
