package models

import "time"

const (
	PaymentIntentStatusRequiresPaymentMethod = "requires_payment_method"
	PaymentIntentStatusRequiresAction        = "requires_action"
	PaymentIntentStatusProcessing            = "processing"
	PaymentIntentStatusSucceeded             = "succeeded"
	PaymentIntentStatusCanceled              = "canceled"
	PaymentIntentStatusFailed                = "failed"
)

// PaymentIntent mirrors the provider's payment-intent resource. Owned
// exclusively by the webhook event processor; the benchmark/drift components
// only read it for revenue figures.
type PaymentIntent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProviderIntentID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_intent_id"`
	OrderID          uint      `gorm:"not null;index" json:"order_id"`
	Status           string    `gorm:"type:varchar(32);not null;default:'processing';index" json:"status"`
	AmountCents      int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency         string    `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	LastError        string    `gorm:"type:text" json:"last_error"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
