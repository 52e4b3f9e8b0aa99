package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linkgrove/ordercore/app/models"
)

type paymentIntentRepository struct {
	db *gorm.DB
}

// NewPaymentIntentRepository creates a payment intent repository backed by GORM.
func NewPaymentIntentRepository(db *gorm.DB) PaymentIntentRepository {
	return &paymentIntentRepository{db: db}
}

func (r *paymentIntentRepository) Upsert(ctx context.Context, intent *models.PaymentIntent) error {
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_intent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_id",
			"status",
			"amount_cents",
			"currency",
			"last_error",
			"updated_at",
		}),
	}).Create(intent).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.WithContext(ctx).Where("provider_intent_id = ?", intent.ProviderIntentID).First(intent).Error
}

func (r *paymentIntentRepository) GetByProviderIntentID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("provider_intent_id = ?", providerIntentID).First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *paymentIntentRepository) GetByOrderID(ctx context.Context, orderID uint) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("updated_at DESC").First(&intent).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}
