package models

import "time"

const (
	WebhookEventStatusPending         = "pending"
	WebhookEventStatusProcessed       = "processed"
	WebhookEventStatusFailed          = "failed"
	WebhookEventStatusFailedPermanent = "failed_permanent"
	WebhookEventStatusSkipped         = "skipped"
)

// WebhookEventMaxAttempts is the retry budget per event id. Once exhausted
// the event is marked failed_permanent and acknowledged to the provider so
// redelivery stops.
const WebhookEventMaxAttempts = 5

// WebhookEvent stores one row per external event id (the idempotency key).
// The unique index on event_id is what makes concurrent duplicate deliveries
// safe: the second insert is a no-op and the caller sees the stored row.
type WebhookEvent struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	EventID          string `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_event_id" json:"event_id"`
	EventType        string `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Status           string `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	RetryCount       int    `gorm:"not null;default:0" json:"retry_count"`
	ErrorMessage     string `gorm:"type:text" json:"error_message"`
	PaymentIntentID  *uint  `gorm:"index" json:"payment_intent_id,omitempty"`
	ProviderIntentID string `gorm:"type:varchar(191);index" json:"provider_intent_id"`
	OrderID          *uint  `gorm:"index" json:"order_id,omitempty"`
	PayloadJSON      string `gorm:"type:longtext;not null" json:"payload_json"`

	ProcessedAt *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the event will never be processed again.
func (e *WebhookEvent) IsTerminal() bool {
	switch e.Status {
	case WebhookEventStatusProcessed, WebhookEventStatusFailedPermanent, WebhookEventStatusSkipped:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether another delivery attempt may be accepted.
func (e *WebhookEvent) IsRetryable() bool {
	return e.Status == WebhookEventStatusFailed && e.RetryCount < WebhookEventMaxAttempts
}
