package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
)

// OrderRepository defines the order-related database operations this core is
// allowed to perform. Writes are limited to state transitions.
type OrderRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	// TransitionState moves an order from one state to another and reports
	// whether the guarded update actually happened. A false return means the
	// order was no longer in the expected state.
	TransitionState(ctx context.Context, id uint, fromState, toState string) (bool, error)
	ListStuckPaymentPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

// WebhookEventRepository defines storage for idempotent webhook bookkeeping.
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the pending record unless one already exists
	// for the event id. Returns created=false with the stored row on
	// duplicate delivery.
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	Update(ctx context.Context, event *models.WebhookEvent) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error)
}

// PaymentIntentRepository defines storage for the provider intent mirror.
type PaymentIntentRepository interface {
	Upsert(ctx context.Context, intent *models.PaymentIntent) error
	GetByProviderIntentID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error)
	GetByOrderID(ctx context.Context, orderID uint) (*models.PaymentIntent, error)
}

// FulfillmentRepository exposes read access to both fulfillment data models
// plus the original requested structure and domain metrics.
type FulfillmentRepository interface {
	GetItems(ctx context.Context, orderID uint) ([]models.OrderItem, error)
	GetGroups(ctx context.Context, orderID uint) ([]models.OrderGroup, error)
	GetSubmissions(ctx context.Context, groupIDs []uint) ([]models.Submission, error)
	GetTargetPages(ctx context.Context, orderID uint) ([]models.OrderTargetPage, error)
	GetMetricsByDomainIDs(ctx context.Context, domainIDs []uint) ([]models.WebsiteMetric, error)
}

// BenchmarkRepository defines storage for benchmark snapshots and their
// append-only comparisons.
type BenchmarkRepository interface {
	// CreateVersioned atomically demotes the current latest benchmark,
	// assigns version = max+1 and inserts the new row as latest, all inside
	// one transaction holding the order row lock.
	CreateVersioned(ctx context.Context, benchmark *models.OrderBenchmark) error
	GetLatest(ctx context.Context, orderID uint) (*models.OrderBenchmark, error)
	ListByOrder(ctx context.Context, orderID uint) ([]models.OrderBenchmark, error)
	CreateComparison(ctx context.Context, comparison *models.BenchmarkComparison) error
	ListComparisons(ctx context.Context, orderID uint, limit int) ([]models.BenchmarkComparison, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Order         OrderRepository
	WebhookEvent  WebhookEventRepository
	PaymentIntent PaymentIntentRepository
	Fulfillment   FulfillmentRepository
	Benchmark     BenchmarkRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:         NewOrderRepository(db),
		WebhookEvent:  NewWebhookEventRepository(db),
		PaymentIntent: NewPaymentIntentRepository(db),
		Fulfillment:   NewFulfillmentRepository(db),
		Benchmark:     NewBenchmarkRepository(db),
	}
}
