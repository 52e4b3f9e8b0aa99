package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/linkgrove/ordercore/app/models"
)

type benchmarkRepository struct {
	db *gorm.DB
}

// NewBenchmarkRepository creates a benchmark repository backed by GORM.
func NewBenchmarkRepository(db *gorm.DB) BenchmarkRepository {
	return &benchmarkRepository{db: db}
}

// CreateVersioned runs the whole capture sequence in one transaction. The
// order row is locked first so two concurrent confirmations serialize
// instead of both inserting a "latest" row.
func (r *benchmarkRepository) CreateVersioned(ctx context.Context, benchmark *models.OrderBenchmark) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, benchmark.OrderID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.OrderBenchmark{}).
			Where("order_id = ? AND is_latest = ?", benchmark.OrderID, true).
			Update("is_latest", false).Error; err != nil {
			return err
		}

		var maxVersion sql.NullInt64
		if err := tx.Model(&models.OrderBenchmark{}).
			Where("order_id = ?", benchmark.OrderID).
			Select("MAX(version)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}

		benchmark.Version = int(maxVersion.Int64) + 1
		benchmark.IsLatest = true
		return tx.Create(benchmark).Error
	})
}

func (r *benchmarkRepository) GetLatest(ctx context.Context, orderID uint) (*models.OrderBenchmark, error) {
	var benchmark models.OrderBenchmark
	err := r.db.WithContext(ctx).Where("order_id = ? AND is_latest = ?", orderID, true).First(&benchmark).Error
	if err != nil {
		return nil, err
	}
	return &benchmark, nil
}

func (r *benchmarkRepository) ListByOrder(ctx context.Context, orderID uint) ([]models.OrderBenchmark, error) {
	var benchmarks []models.OrderBenchmark
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("version DESC").Find(&benchmarks).Error
	return benchmarks, err
}

func (r *benchmarkRepository) CreateComparison(ctx context.Context, comparison *models.BenchmarkComparison) error {
	return r.db.WithContext(ctx).Create(comparison).Error
}

func (r *benchmarkRepository) ListComparisons(ctx context.Context, orderID uint, limit int) ([]models.BenchmarkComparison, error) {
	var comparisons []models.BenchmarkComparison
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("created_at DESC").
		Limit(limit).
		Find(&comparisons).Error
	return comparisons, err
}
