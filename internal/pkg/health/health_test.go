package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/resilience"
)

type stubEventRepo struct {
	counts map[string]int64
}

func (r *stubEventRepo) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return false, nil, nil
}

func (r *stubEventRepo) GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	return nil, nil
}

func (r *stubEventRepo) Update(ctx context.Context, event *models.WebhookEvent) error { return nil }

func (r *stubEventRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.counts, nil
}

func (r *stubEventRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error) {
	return nil, nil
}

func newReporter(counts map[string]int64, breakers *resilience.Registry, dbUp bool) *Reporter {
	repos := &repository.Repositories{WebhookEvent: &stubEventRepo{counts: counts}}
	return NewReporter(repos, breakers, func(ctx context.Context) bool { return dbUp })
}

func TestCheckUnhealthyWhenDatabaseDown(t *testing.T) {
	reporter := newReporter(nil, resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig()), false)

	report := reporter.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.False(t, report.DatabaseUp)
}

func TestCheckUnhealthyWhenCircuitOpen(t *testing.T) {
	breakers := resilience.NewRegistry(resilience.CircuitBreakerConfig{FailureThreshold: 1})
	cb := breakers.Get("provider.test")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return assert.AnError
	})

	reporter := newReporter(nil, breakers, true)
	report := reporter.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "open", report.Breakers["provider.test"])
}

func TestCheckDegradedWithoutCache(t *testing.T) {
	reporter := newReporter(map[string]int64{
		models.WebhookEventStatusProcessed: 12,
	}, resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig()), true)

	report := reporter.Check(context.Background())
	// No cache configured in tests, so the best achievable verdict is degraded.
	assert.Equal(t, StatusDegraded, report.Status)
	assert.True(t, report.DatabaseUp)
	assert.Equal(t, int64(12), report.WebhookEvents[models.WebhookEventStatusProcessed])
}

func TestCheckReportsPermanentFailures(t *testing.T) {
	reporter := newReporter(map[string]int64{
		models.WebhookEventStatusFailedPermanent: 3,
	}, resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig()), true)

	report := reporter.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, int64(3), report.PermanentFails)
}
