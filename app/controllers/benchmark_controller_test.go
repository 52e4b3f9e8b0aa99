package controllers

import (
	"bytes"
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
	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/benchmark"
)

type stubOrderRepo struct {
	orders map[uint]*models.Order
}

func (r *stubOrderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	if o, ok := r.orders[id]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) TransitionState(ctx context.Context, id uint, fromState, toState string) (bool, error) {
	return false, nil
}

func (r *stubOrderRepo) ListStuckPaymentPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

type stubFulfillmentRepo struct {
	pages []models.OrderTargetPage
}

func (r *stubFulfillmentRepo) GetItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	return nil, nil
}

func (r *stubFulfillmentRepo) GetGroups(ctx context.Context, orderID uint) ([]models.OrderGroup, error) {
	return nil, nil
}

func (r *stubFulfillmentRepo) GetSubmissions(ctx context.Context, groupIDs []uint) ([]models.Submission, error) {
	return nil, nil
}

func (r *stubFulfillmentRepo) GetTargetPages(ctx context.Context, orderID uint) ([]models.OrderTargetPage, error) {
	return r.pages, nil
}

func (r *stubFulfillmentRepo) GetMetricsByDomainIDs(ctx context.Context, domainIDs []uint) ([]models.WebsiteMetric, error) {
	return nil, nil
}

type stubBenchmarkRepo struct {
	benchmarks  []models.OrderBenchmark
	comparisons []models.BenchmarkComparison
}

func (r *stubBenchmarkRepo) CreateVersioned(ctx context.Context, b *models.OrderBenchmark) error {
	for i := range r.benchmarks {
		if r.benchmarks[i].OrderID == b.OrderID {
			r.benchmarks[i].IsLatest = false
		}
	}
	b.ID = uint(len(r.benchmarks) + 1)
	b.Version = len(r.benchmarks) + 1
	b.IsLatest = true
	r.benchmarks = append(r.benchmarks, *b)
	return nil
}

func (r *stubBenchmarkRepo) GetLatest(ctx context.Context, orderID uint) (*models.OrderBenchmark, error) {
	for i := range r.benchmarks {
		if r.benchmarks[i].OrderID == orderID && r.benchmarks[i].IsLatest {
			copied := r.benchmarks[i]
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBenchmarkRepo) ListByOrder(ctx context.Context, orderID uint) ([]models.OrderBenchmark, error) {
	var out []models.OrderBenchmark
	for _, b := range r.benchmarks {
		if b.OrderID == orderID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stubBenchmarkRepo) CreateComparison(ctx context.Context, c *models.BenchmarkComparison) error {
	c.ID = uint(len(r.comparisons) + 1)
	r.comparisons = append(r.comparisons, *c)
	return nil
}

func (r *stubBenchmarkRepo) ListComparisons(ctx context.Context, orderID uint, limit int) ([]models.BenchmarkComparison, error) {
	var out []models.BenchmarkComparison
	for _, c := range r.comparisons {
		if c.OrderID == orderID && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func newBenchmarkApp(t *testing.T, repos *repository.Repositories) *fiber.App {
	t.Helper()
	InitializeBenchmarkController(benchmark.NewEngine(repos), benchmark.NewComparator(repos), repos)

	app := fiber.New()
	orders := app.Group("/api/orders/:id")
	orders.Post("/benchmarks", HandleCreateBenchmark)
	orders.Get("/benchmarks", HandleListBenchmarks)
	orders.Post("/comparisons", HandleCompareBenchmark)
	orders.Get("/comparisons", HandleListComparisons)
	return app
}

func benchmarkTestRepos() *repository.Repositories {
	return &repository.Repositories{
		Order: &stubOrderRepo{orders: map[uint]*models.Order{
			7: {ID: 7, AccountID: 1, State: models.OrderStateConfirmed},
		}},
		Fulfillment: &stubFulfillmentRepo{pages: []models.OrderTargetPage{
			{ID: 1, OrderID: 7, URL: "https://acme.example/pricing", RequestedLinkCount: 2},
		}},
		Benchmark: &stubBenchmarkRepo{},
	}
}

func postJSON(path string, payload any) *http.Request {
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleCreateBenchmark(t *testing.T) {
	repos := benchmarkTestRepos()
	app := newBenchmarkApp(t, repos)

	req := postJSON("/api/orders/7/benchmarks", captureBenchmarkRequest{
		Reason:  models.BenchmarkReasonOrderConfirmed,
		ActorID: 3,
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var created models.OrderBenchmark
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, uint(7), created.OrderID)
	assert.Equal(t, 1, created.Version)
	assert.True(t, created.IsLatest)
}

func TestHandleCreateBenchmarkInvalidReason(t *testing.T) {
	app := newBenchmarkApp(t, benchmarkTestRepos())

	req := postJSON("/api/orders/7/benchmarks", captureBenchmarkRequest{Reason: "because"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleCreateBenchmarkUnknownOrder(t *testing.T) {
	app := newBenchmarkApp(t, benchmarkTestRepos())

	req := postJSON("/api/orders/99/benchmarks", captureBenchmarkRequest{
		Reason: models.BenchmarkReasonManualUpdate,
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleCreateBenchmarkInvalidOrderID(t *testing.T) {
	app := newBenchmarkApp(t, benchmarkTestRepos())

	req := postJSON("/api/orders/abc/benchmarks", captureBenchmarkRequest{
		Reason: models.BenchmarkReasonManualUpdate,
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleCompareBenchmarkWithoutBenchmark(t *testing.T) {
	app := newBenchmarkApp(t, benchmarkTestRepos())

	req := postJSON("/api/orders/7/comparisons", captureBenchmarkRequest{ActorID: 3})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHandleCompareBenchmarkAfterCapture(t *testing.T) {
	repos := benchmarkTestRepos()
	app := newBenchmarkApp(t, repos)

	capture := postJSON("/api/orders/7/benchmarks", captureBenchmarkRequest{
		Reason:  models.BenchmarkReasonOrderConfirmed,
		ActorID: 3,
	})
	resp, err := app.Test(capture, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	compare := postJSON("/api/orders/7/comparisons", captureBenchmarkRequest{ActorID: 3})
	resp, err = app.Test(compare, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	list := httptest.NewRequest(http.MethodGet, "/api/orders/7/comparisons", nil)
	resp, err = app.Test(list, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, 1, payload.Count)
}

func TestHandleListBenchmarks(t *testing.T) {
	repos := benchmarkTestRepos()
	app := newBenchmarkApp(t, repos)

	for i := 0; i < 2; i++ {
		req := postJSON("/api/orders/7/benchmarks", captureBenchmarkRequest{
			Reason:  models.BenchmarkReasonManualUpdate,
			ActorID: 3,
		})
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/orders/7/benchmarks", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	var payload struct {
		Count      int                     `json:"count"`
		Benchmarks []models.OrderBenchmark `json:"benchmarks"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Equal(t, 2, payload.Count)

	latest := 0
	for _, b := range payload.Benchmarks {
		if b.IsLatest {
			latest++
			assert.Equal(t, 2, b.Version)
		}
	}
	assert.Equal(t, 1, latest)
}
