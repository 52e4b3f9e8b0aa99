package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/health"
	"github.com/linkgrove/ordercore/internal/pkg/resilience"
)

type stubEventRepo struct {
	counts map[string]int64
	events []models.WebhookEvent
}

func (r *stubEventRepo) CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return true, event, nil
}

func (r *stubEventRepo) GetByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	return nil, nil
}

func (r *stubEventRepo) Update(ctx context.Context, event *models.WebhookEvent) error { return nil }

func (r *stubEventRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return r.counts, nil
}

func (r *stubEventRepo) ListByStatus(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	for _, e := range r.events {
		if e.Status == status && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func newHealthApp(t *testing.T, events *stubEventRepo, dbUp bool) *fiber.App {
	t.Helper()
	repos := &repository.Repositories{WebhookEvent: events}
	reporter := health.NewReporter(repos, resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig()),
		func(ctx context.Context) bool { return dbUp })
	InitializeHealthController(reporter, repos)

	app := fiber.New()
	app.Get("/api/health", HandleHealth)
	app.Get("/api/stats", HandleStats)
	app.Get("/api/webhook-events", HandleListWebhookEvents)
	return app
}

func TestHandleHealthDegraded(t *testing.T) {
	app := newHealthApp(t, &stubEventRepo{counts: map[string]int64{
		models.WebhookEventStatusProcessed: 7,
	}}, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	// No cache in tests, so the verdict tops out at degraded.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var report health.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, health.StatusDegraded, report.Status)
	assert.True(t, report.DatabaseUp)
	assert.Equal(t, int64(7), report.WebhookEvents[models.WebhookEventStatusProcessed])
}

func TestHandleHealthUnhealthyReturns503(t *testing.T) {
	app := newHealthApp(t, &stubEventRepo{}, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleStats(t *testing.T) {
	app := newHealthApp(t, &stubEventRepo{counts: map[string]int64{
		models.WebhookEventStatusProcessed:       10,
		models.WebhookEventStatusFailedPermanent: 2,
	}}, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/stats", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var payload struct {
		WebhookEvents map[string]int64 `json:"webhook_events"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, int64(10), payload.WebhookEvents[models.WebhookEventStatusProcessed])
	assert.Equal(t, int64(2), payload.WebhookEvents[models.WebhookEventStatusFailedPermanent])
}

func TestHandleListWebhookEvents(t *testing.T) {
	app := newHealthApp(t, &stubEventRepo{events: []models.WebhookEvent{
		{EventID: "evt_1", Status: models.WebhookEventStatusFailedPermanent, CreatedAt: time.Now()},
		{EventID: "evt_2", Status: models.WebhookEventStatusProcessed, CreatedAt: time.Now()},
	}}, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/webhook-events", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var payload struct {
		Count  int                   `json:"count"`
		Events []models.WebhookEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "evt_1", payload.Events[0].EventID)
}

func TestHandleListWebhookEventsUnknownStatus(t *testing.T) {
	app := newHealthApp(t, &stubEventRepo{}, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/webhook-events?status=bogus", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
