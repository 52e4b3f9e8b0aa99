package benchmark

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
)

type fakeFulfillment struct {
	items       []models.OrderItem
	groups      []models.OrderGroup
	submissions []models.Submission
	pages       []models.OrderTargetPage
	metrics     []models.WebsiteMetric
}

func (f *fakeFulfillment) GetItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	return f.items, nil
}

func (f *fakeFulfillment) GetGroups(ctx context.Context, orderID uint) ([]models.OrderGroup, error) {
	return f.groups, nil
}

func (f *fakeFulfillment) GetSubmissions(ctx context.Context, groupIDs []uint) ([]models.Submission, error) {
	return f.submissions, nil
}

func (f *fakeFulfillment) GetTargetPages(ctx context.Context, orderID uint) ([]models.OrderTargetPage, error) {
	return f.pages, nil
}

func (f *fakeFulfillment) GetMetricsByDomainIDs(ctx context.Context, domainIDs []uint) ([]models.WebsiteMetric, error) {
	want := make(map[uint]struct{}, len(domainIDs))
	for _, id := range domainIDs {
		want[id] = struct{}{}
	}
	var out []models.WebsiteMetric
	for _, metric := range f.metrics {
		if _, ok := want[metric.DomainID]; ok {
			out = append(out, metric)
		}
	}
	return out, nil
}

// fakeBenchmarkRepo mirrors the transactional semantics of the GORM
// implementation: demote the latest, assign max+1, insert as latest.
type fakeBenchmarkRepo struct {
	benchmarks  []*models.OrderBenchmark
	comparisons []*models.BenchmarkComparison
	nextID      uint
	lastCtx     context.Context
}

func (r *fakeBenchmarkRepo) CreateVersioned(ctx context.Context, benchmark *models.OrderBenchmark) error {
	r.lastCtx = ctx
	maxVersion := 0
	for _, existing := range r.benchmarks {
		if existing.OrderID != benchmark.OrderID {
			continue
		}
		existing.IsLatest = false
		if existing.Version > maxVersion {
			maxVersion = existing.Version
		}
	}
	r.nextID++
	benchmark.ID = r.nextID
	benchmark.Version = maxVersion + 1
	benchmark.IsLatest = true
	copied := *benchmark
	r.benchmarks = append(r.benchmarks, &copied)
	return nil
}

func (r *fakeBenchmarkRepo) GetLatest(ctx context.Context, orderID uint) (*models.OrderBenchmark, error) {
	r.lastCtx = ctx
	for _, benchmark := range r.benchmarks {
		if benchmark.OrderID == orderID && benchmark.IsLatest {
			copied := *benchmark
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBenchmarkRepo) ListByOrder(ctx context.Context, orderID uint) ([]models.OrderBenchmark, error) {
	var out []models.OrderBenchmark
	for _, benchmark := range r.benchmarks {
		if benchmark.OrderID == orderID {
			out = append(out, *benchmark)
		}
	}
	return out, nil
}

func (r *fakeBenchmarkRepo) CreateComparison(ctx context.Context, comparison *models.BenchmarkComparison) error {
	r.nextID++
	comparison.ID = r.nextID
	copied := *comparison
	r.comparisons = append(r.comparisons, &copied)
	return nil
}

func (r *fakeBenchmarkRepo) ListComparisons(ctx context.Context, orderID uint, limit int) ([]models.BenchmarkComparison, error) {
	var out []models.BenchmarkComparison
	for _, comparison := range r.comparisons {
		if comparison.OrderID == orderID {
			out = append(out, *comparison)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	order   *models.Order
	lastCtx context.Context
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	r.lastCtx = ctx
	if r.order == nil || r.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r.order
	return &copied, nil
}

func (r *fakeOrderRepo) TransitionState(ctx context.Context, id uint, fromState, toState string) (bool, error) {
	return false, nil
}

func (r *fakeOrderRepo) ListStuckPaymentPending(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	return nil, nil
}

func uintPtr(v uint) *uint { return &v }

func testRepos(order *models.Order, fulfillment *fakeFulfillment) (*repository.Repositories, *fakeBenchmarkRepo) {
	benchRepo := &fakeBenchmarkRepo{}
	return &repository.Repositories{
		Order:       &fakeOrderRepo{order: order},
		Fulfillment: fulfillment,
		Benchmark:   benchRepo,
	}, benchRepo
}

func modernItems(orderID uint) []models.OrderItem {
	return []models.OrderItem{
		{OrderID: orderID, ClientID: 1, ClientName: "Acme", TargetPageURL: "https://acme.io/pricing", Status: models.OrderItemStatusAssigned, DomainID: uintPtr(101), DomainName: "alpha.example", AnchorText: "best tool", WholesalePriceCents: 8000, RetailPriceCents: 12000},
		{OrderID: orderID, ClientID: 1, ClientName: "Acme", TargetPageURL: "https://acme.io/pricing", Status: models.OrderItemStatusAssigned, DomainID: uintPtr(102), DomainName: "beta.example", WholesalePriceCents: 9000, RetailPriceCents: 14000},
		{OrderID: orderID, ClientID: 1, ClientName: "Acme", TargetPageURL: "https://acme.io/pricing", Status: models.OrderItemStatusAssigned, DomainID: uintPtr(103), DomainName: "gamma.example", WholesalePriceCents: 7000, RetailPriceCents: 11000},
		{OrderID: orderID, ClientID: 1, ClientName: "Acme", TargetPageURL: "https://acme.io/blog", Status: models.OrderItemStatusPending},
		{OrderID: orderID, ClientID: 1, ClientName: "Acme", TargetPageURL: "https://acme.io/blog", Status: models.OrderItemStatusPending},
		// Cancelled items never count.
		{OrderID: orderID, ClientID: 1, ClientName: "Acme", TargetPageURL: "https://acme.io/blog", Status: models.OrderItemStatusCancelled},
	}
}

func TestBenchmarkSingularity(t *testing.T) {
	order := &models.Order{ID: 10, State: models.OrderStateConfirmed, EstimatedTotalCents: 50000}
	repos, benchRepo := testRepos(order, &fakeFulfillment{items: modernItems(10)})
	engine := NewEngine(repos)

	const captures = 3
	for i := 0; i < captures; i++ {
		_, err := engine.CreateOrderBenchmark(context.Background(), 10, 1, models.BenchmarkReasonOrderConfirmed)
		require.NoError(t, err)
	}

	latestCount := 0
	var latest *models.OrderBenchmark
	for _, benchmark := range benchRepo.benchmarks {
		if benchmark.IsLatest {
			latestCount++
			latest = benchmark
		}
	}
	assert.Equal(t, 1, latestCount)
	require.NotNil(t, latest)
	assert.Equal(t, captures, latest.Version)
}

func TestSnapshotModernStrategy(t *testing.T) {
	order := &models.Order{
		ID: 10, State: models.OrderStateConfirmed,
		EstimatedTotalCents: 50000, ServiceFeeCents: 5000,
		BudgetMinCents: 10000, BudgetMaxCents: 60000,
		DRMin: 40, DRMax: 80, MinTraffic: 1000,
	}
	repos, _ := testRepos(order, &fakeFulfillment{items: modernItems(10)})

	benchmark, err := NewEngine(repos).CreateOrderBenchmark(context.Background(), 10, 7, models.BenchmarkReasonOrderConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 1, benchmark.Version)
	assert.True(t, benchmark.IsLatest)
	assert.Equal(t, uint(7), benchmark.CapturedBy)

	data, err := benchmark.Data()
	require.NoError(t, err)
	assert.Equal(t, models.BenchmarkSchemaVersion, data.SchemaVersion)
	assert.False(t, data.OriginalRequest)
	assert.Equal(t, 5, data.TotalRequestedLinks)
	assert.Equal(t, 1, data.TotalClients)
	assert.Equal(t, 2, data.TotalTargetPages)
	assert.Equal(t, 3, data.TotalUniqueDomains)
	assert.Equal(t, int64(50000), data.OrderTotalCents)
	assert.Equal(t, 40, data.Constraints.DRMin)

	require.Len(t, data.Clients, 1)
	client := data.Clients[0]
	assert.Equal(t, "Acme", client.ClientName)
	assert.Equal(t, 5, client.RequestedLinks)
	require.Len(t, client.TargetPages, 2)
}

func TestSnapshotLegacyStrategy(t *testing.T) {
	order := &models.Order{ID: 11, State: models.OrderStateConfirmed, EstimatedTotalCents: 30000}
	fulfillment := &fakeFulfillment{
		groups: []models.OrderGroup{{ID: 1, OrderID: 11, ClientID: 2, ClientName: "Globex"}},
		submissions: []models.Submission{
			{OrderGroupID: 1, TargetPageURL: "https://globex.com/", Status: models.SubmissionStatusIncluded, DomainID: 201, DomainName: "delta.example", RetailPriceCents: 15000, DomainRating: 55, MonthlyTraffic: 4000},
			{OrderGroupID: 1, TargetPageURL: "https://globex.com/", Status: models.SubmissionStatusIncluded, DomainID: 202, DomainName: "epsilon.example", RetailPriceCents: 16000, DomainRating: 60, MonthlyTraffic: 9000},
			{OrderGroupID: 1, TargetPageURL: "https://globex.com/", Status: models.SubmissionStatusExcluded, DomainID: 203, DomainName: "zeta.example"},
		},
	}
	repos, _ := testRepos(order, fulfillment)

	benchmark, err := NewEngine(repos).CreateOrderBenchmark(context.Background(), 11, 1, models.BenchmarkReasonOrderSubmitted)
	require.NoError(t, err)

	data, err := benchmark.Data()
	require.NoError(t, err)
	assert.False(t, data.OriginalRequest)
	assert.Equal(t, 2, data.TotalRequestedLinks)
	assert.Equal(t, 2, data.TotalUniqueDomains)
	require.Len(t, data.Clients, 1)
	require.Len(t, data.Clients[0].TargetPages, 1)
	assert.Len(t, data.Clients[0].TargetPages[0].RequestedDomains, 2)
}

func TestSnapshotOriginalRequest(t *testing.T) {
	order := &models.Order{ID: 12, State: models.OrderStateConfirmed, EstimatedTotalCents: 40000}
	fulfillment := &fakeFulfillment{
		pages: []models.OrderTargetPage{
			{OrderID: 12, ClientID: 3, ClientName: "Initech", URL: "https://initech.com/a", RequestedLinkCount: 3},
			{OrderID: 12, ClientID: 3, ClientName: "Initech", URL: "https://initech.com/b", RequestedLinkCount: 2},
		},
	}
	repos, _ := testRepos(order, fulfillment)

	benchmark, err := NewEngine(repos).CreateOrderBenchmark(context.Background(), 12, 1, models.BenchmarkReasonOrderConfirmed)
	require.NoError(t, err)

	data, err := benchmark.Data()
	require.NoError(t, err)
	assert.True(t, data.OriginalRequest)
	assert.Equal(t, 5, data.TotalRequestedLinks)
	assert.Equal(t, 2, data.TotalTargetPages)
	assert.Equal(t, 0, data.TotalUniqueDomains)
	// Estimated per-link price derived from the order total.
	assert.Equal(t, int64(8000), data.Constraints.EstimatedPricePerLink)
}

func TestCreateOrderBenchmarkRejectsUnknownReason(t *testing.T) {
	repos, _ := testRepos(&models.Order{ID: 1}, &fakeFulfillment{})
	_, err := NewEngine(repos).CreateOrderBenchmark(context.Background(), 1, 1, "because")
	assert.ErrorIs(t, err, ErrInvalidReason)
}

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 0, completionPercentage(0, 0))
	assert.Equal(t, 0, completionPercentage(5, 0))
	assert.Equal(t, 100, completionPercentage(5, 5))
	assert.Equal(t, 40, completionPercentage(2, 5))
	assert.Equal(t, 67, completionPercentage(2, 3))
	assert.Equal(t, 33, completionPercentage(1, 3))
	assert.Equal(t, 150, completionPercentage(3, 2))
}

func TestBenchmarkCallsCarryCallerContext(t *testing.T) {
	order := &models.Order{ID: 40, State: models.OrderStateConfirmed}
	orderRepo := &fakeOrderRepo{order: order}
	benchRepo := &fakeBenchmarkRepo{}
	repos := &repository.Repositories{
		Order:       orderRepo,
		Fulfillment: &fakeFulfillment{items: modernItems(40)},
		Benchmark:   benchRepo,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := NewEngine(repos).CreateOrderBenchmark(ctx, 40, 1, models.BenchmarkReasonOrderConfirmed)
	require.NoError(t, err)

	// The caller's deadline reaches the storage layer on both paths.
	require.NotNil(t, orderRepo.lastCtx)
	_, hasDeadline := orderRepo.lastCtx.Deadline()
	assert.True(t, hasDeadline)

	_, err = NewComparator(repos).CompareToBenchmark(ctx, 40, 1)
	require.NoError(t, err)
	require.NotNil(t, benchRepo.lastCtx)
	_, hasDeadline = benchRepo.lastCtx.Deadline()
	assert.True(t, hasDeadline)
}
