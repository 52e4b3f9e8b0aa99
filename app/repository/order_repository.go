package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by GORM.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) TransitionState(ctx context.Context, id uint, fromState, toState string) (bool, error) {
	updates := map[string]interface{}{"state": toState}
	if toState == models.OrderStateConfirmed {
		now := time.Now()
		updates["confirmed_at"] = &now
	}
	tx := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND state = ?", id, fromState).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *orderRepository) ListStuckPaymentPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", models.OrderStatePaymentPending, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
