package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
)

type fulfillmentRepository struct {
	db *gorm.DB
}

// NewFulfillmentRepository creates a fulfillment repository backed by GORM.
func NewFulfillmentRepository(db *gorm.DB) FulfillmentRepository {
	return &fulfillmentRepository{db: db}
}

func (r *fulfillmentRepository) GetItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *fulfillmentRepository) GetGroups(ctx context.Context, orderID uint) ([]models.OrderGroup, error) {
	var groups []models.OrderGroup
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&groups).Error
	return groups, err
}

func (r *fulfillmentRepository) GetSubmissions(ctx context.Context, groupIDs []uint) ([]models.Submission, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	var submissions []models.Submission
	err := r.db.WithContext(ctx).Where("order_group_id IN ?", groupIDs).Order("id ASC").Find(&submissions).Error
	return submissions, err
}

func (r *fulfillmentRepository) GetTargetPages(ctx context.Context, orderID uint) ([]models.OrderTargetPage, error) {
	var pages []models.OrderTargetPage
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&pages).Error
	return pages, err
}

func (r *fulfillmentRepository) GetMetricsByDomainIDs(ctx context.Context, domainIDs []uint) ([]models.WebsiteMetric, error) {
	if len(domainIDs) == 0 {
		return nil, nil
	}
	var metrics []models.WebsiteMetric
	err := r.db.WithContext(ctx).Where("domain_id IN ?", domainIDs).Find(&metrics).Error
	return metrics, err
}
