package benchmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
)

// ErrInvalidReason marks a capture request with an unknown reason.
var ErrInvalidReason = errors.New("unknown benchmark capture reason")

// Engine captures benchmark snapshots.
type Engine struct {
	repos *repository.Repositories
}

// NewEngine creates a benchmark engine.
func NewEngine(repos *repository.Repositories) *Engine {
	return &Engine{repos: repos}
}

// CreateOrderBenchmark snapshots the order's committed plan: it demotes the
// previous latest benchmark, assigns the next version and inserts the new row
// as latest, all in one transaction.
func (e *Engine) CreateOrderBenchmark(ctx context.Context, orderID, actorID uint, reason string) (*models.OrderBenchmark, error) {
	if !validReason(reason) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReason, reason)
	}

	order, err := e.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view, err := LoadFulfillment(ctx, e.repos.Fulfillment, orderID)
	if err != nil {
		return nil, err
	}

	data := BuildSnapshot(order, view)
	benchmark := &models.OrderBenchmark{
		OrderID:       orderID,
		CaptureReason: reason,
		CapturedBy:    actorID,
	}
	if err := benchmark.SetData(data); err != nil {
		return nil, err
	}

	if err := e.repos.Benchmark.CreateVersioned(ctx, benchmark); err != nil {
		return nil, err
	}

	log.Infof("[Benchmark] captured v%d for order %d (%s strategy, %d requested links)",
		benchmark.Version, orderID, view.Kind, data.TotalRequestedLinks)
	return benchmark, nil
}

func validReason(reason string) bool {
	switch reason {
	case models.BenchmarkReasonOrderConfirmed,
		models.BenchmarkReasonOrderSubmitted,
		models.BenchmarkReasonManualUpdate,
		models.BenchmarkReasonClientRevision:
		return true
	default:
		return false
	}
}
