package models

import "time"

// Client is a customer of the ordering account; fulfillment is grouped per
// client inside an order.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;index" json:"account_id"`
	Name      string    `gorm:"type:varchar(191);not null" json:"name"`
	Website   string    `gorm:"type:varchar(255)" json:"website"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
