package benchmark

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
)

// ErrNoBenchmark means a comparison was requested for an order that was never
// benchmarked. A precondition violation, not a retryable condition.
var ErrNoBenchmark = errors.New("no benchmark exists for order")

// Comparator recomputes live fulfillment state and diffs it against the
// latest benchmark. It never mutates the benchmark.
type Comparator struct {
	repos *repository.Repositories
}

// NewComparator creates a drift comparator.
func NewComparator(repos *repository.Repositories) *Comparator {
	return &Comparator{repos: repos}
}

// deliveredDomain is one live placement that counts as delivered.
type deliveredDomain struct {
	DomainID    uint
	DomainName  string
	RetailCents int64

	// Metric snapshot carried by legacy submissions; zero for modern items.
	DomainRating   int
	MonthlyTraffic int64
	HasSnapshot    bool
}

// livePage is the live fulfillment state of one target page.
type livePage struct {
	Delivered  []deliveredDomain
	InProgress int
}

// CompareToBenchmark produces and persists an append-only drift report for
// the order's latest benchmark.
func (c *Comparator) CompareToBenchmark(ctx context.Context, orderID, actorID uint) (*models.BenchmarkComparison, error) {
	latest, err := c.repos.Benchmark.GetLatest(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNoBenchmark)
		}
		return nil, err
	}
	benchData, err := latest.Data()
	if err != nil {
		return nil, err
	}

	view, err := LoadFulfillment(ctx, c.repos.Fulfillment, orderID)
	if err != nil {
		return nil, err
	}
	live := collectLive(view)

	metrics, err := c.loadMetrics(ctx, live)
	if err != nil {
		return nil, err
	}

	report := buildReport(benchData, live, metrics, view.Kind)

	comparison := &models.BenchmarkComparison{
		BenchmarkID: latest.ID,
		OrderID:     orderID,
		ComparedBy:  actorID,
	}
	if err := comparison.SetData(report); err != nil {
		return nil, err
	}
	if err := c.repos.Benchmark.CreateComparison(ctx, comparison); err != nil {
		return nil, err
	}

	log.Infof("[Benchmark] comparison for order %d against v%d: %d%% complete, %d issue(s)",
		orderID, latest.Version, report.CompletionPercentage, len(report.Issues))
	return comparison, nil
}

// collectLive flattens the fulfillment view into per-client, per-page
// delivered domains. The delivered definitions deliberately differ by data
// model: a modern item counts once a domain is assigned, a legacy submission
// counts unless it was excluded or rejected.
func collectLive(view *FulfillmentView) map[uint]map[string]*livePage {
	live := make(map[uint]map[string]*livePage)
	page := func(clientID uint, url string) *livePage {
		if live[clientID] == nil {
			live[clientID] = make(map[string]*livePage)
		}
		if live[clientID][url] == nil {
			live[clientID][url] = &livePage{}
		}
		return live[clientID][url]
	}

	switch view.Kind {
	case ModernFulfillment:
		for _, item := range view.Items {
			p := page(item.ClientID, item.TargetPageURL)
			if item.HasAssignedDomain() {
				p.Delivered = append(p.Delivered, deliveredDomain{
					DomainID:    *item.DomainID,
					DomainName:  item.DomainName,
					RetailCents: item.RetailPriceCents,
				})
			} else {
				p.InProgress++
			}
		}
	case LegacyFulfillment:
		for _, group := range view.Groups {
			for _, submission := range view.Submissions[group.ID] {
				if !submission.CountsAsDelivered() {
					continue
				}
				p := page(group.ClientID, submission.TargetPageURL)
				p.Delivered = append(p.Delivered, deliveredDomain{
					DomainID:       submission.DomainID,
					DomainName:     submission.DomainName,
					RetailCents:    submission.RetailPriceCents,
					DomainRating:   submission.DomainRating,
					MonthlyTraffic: submission.MonthlyTraffic,
					HasSnapshot:    true,
				})
			}
		}
	}
	return live
}

func (c *Comparator) loadMetrics(ctx context.Context, live map[uint]map[string]*livePage) (map[uint]models.WebsiteMetric, error) {
	idSet := make(map[uint]struct{})
	for _, pages := range live {
		for _, p := range pages {
			for _, d := range p.Delivered {
				idSet[d.DomainID] = struct{}{}
			}
		}
	}
	if len(idSet) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	rows, err := c.repos.Fulfillment.GetMetricsByDomainIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	metrics := make(map[uint]models.WebsiteMetric, len(rows))
	for _, row := range rows {
		metrics[row.DomainID] = row
	}
	return metrics, nil
}

func buildReport(bench *models.BenchmarkData, live map[uint]map[string]*livePage, metrics map[uint]models.WebsiteMetric, kind StrategyKind) *models.ComparisonData {
	report := &models.ComparisonData{
		SchemaVersion:        models.ComparisonSchemaVersion,
		RequestedLinks:       bench.TotalRequestedLinks,
		ExpectedRevenueCents: bench.OrderTotalCents,
	}

	var allDelivered []deliveredDomain
	seenClients := make(map[uint]struct{})

	for _, benchClient := range bench.Clients {
		seenClients[benchClient.ClientID] = struct{}{}
		clientLive := live[benchClient.ClientID]

		cc := models.ClientComparison{
			ClientID:   benchClient.ClientID,
			ClientName: benchClient.ClientName,
			Requested:  benchClient.RequestedLinks,
		}

		seenURLs := make(map[string]struct{})
		for _, benchPage := range benchClient.TargetPages {
			seenURLs[benchPage.URL] = struct{}{}
			var lp *livePage
			if clientLive != nil {
				lp = clientLive[benchPage.URL]
			}
			pc := comparePage(&benchPage, lp)
			cc.Delivered += pc.Delivered
			if lp != nil {
				cc.InProgress += lp.InProgress
				allDelivered = append(allDelivered, lp.Delivered...)
			}
			cc.TargetPages = append(cc.TargetPages, pc)

			if len(pc.Missing) > 0 {
				report.Issues = append(report.Issues, fmt.Sprintf(
					"%s: %d requested domain(s) missing on %s", benchClient.ClientName, len(pc.Missing), benchPage.URL))
			}
			if len(pc.Substituted) > 0 {
				report.Issues = append(report.Issues, fmt.Sprintf(
					"%s: %d domain(s) substituted on %s", benchClient.ClientName, len(pc.Substituted), benchPage.URL))
			}
			if len(pc.Extras) > 0 {
				report.Issues = append(report.Issues, fmt.Sprintf(
					"%s: %d unrequested domain(s) delivered on %s", benchClient.ClientName, len(pc.Extras), benchPage.URL))
			}
		}

		// Live pages the benchmark never asked for, in URL order so the
		// persisted report is stable across runs.
		var unplanned []string
		for url := range clientLive {
			if _, ok := seenURLs[url]; !ok {
				unplanned = append(unplanned, url)
			}
		}
		sort.Strings(unplanned)
		for _, url := range unplanned {
			lp := clientLive[url]
			extras := make([]string, 0, len(lp.Delivered))
			for _, d := range lp.Delivered {
				extras = append(extras, d.DomainName)
			}
			sort.Strings(extras)
			cc.Delivered += len(lp.Delivered)
			cc.InProgress += lp.InProgress
			allDelivered = append(allDelivered, lp.Delivered...)
			cc.TargetPages = append(cc.TargetPages, models.TargetPageComparison{
				URL:       url,
				Delivered: len(lp.Delivered),
				Extras:    extras,
			})
			report.Issues = append(report.Issues, fmt.Sprintf(
				"%s: %d link(s) delivered on unplanned page %s", benchClient.ClientName, len(lp.Delivered), url))
		}

		report.DeliveredLinks += cc.Delivered
		report.InProgressLinks += cc.InProgress
		report.Clients = append(report.Clients, cc)
	}

	// Clients delivering without any benchmark entry are drift too. Sorted by
	// client id for the same report-stability reason as above.
	var unknownClients []uint
	for clientID := range live {
		if _, ok := seenClients[clientID]; !ok {
			unknownClients = append(unknownClients, clientID)
		}
	}
	sort.Slice(unknownClients, func(i, j int) bool { return unknownClients[i] < unknownClients[j] })
	for _, clientID := range unknownClients {
		count := 0
		for _, lp := range live[clientID] {
			count += len(lp.Delivered)
			allDelivered = append(allDelivered, lp.Delivered...)
		}
		report.DeliveredLinks += count
		report.Issues = append(report.Issues, fmt.Sprintf(
			"client %d has %d delivered link(s) but no benchmark entry", clientID, count))
	}

	report.CompletionPercentage = completionPercentage(report.DeliveredLinks, report.RequestedLinks)
	for _, d := range allDelivered {
		report.ActualRevenueCents += d.RetailCents
	}
	report.RevenueDifferenceCents = report.ActualRevenueCents - report.ExpectedRevenueCents
	report.DeliveredDRRange, report.DeliveredTrafficRange = metricRanges(allDelivered, metrics)

	if kind == Unfulfilled || (bench.OriginalRequest && report.DeliveredLinks == 0) {
		report.Issues = append(report.Issues, "no fulfillment has started for this order")
	} else if report.CompletionPercentage < 100 {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"order is %d%% complete (%d of %d links delivered)",
			report.CompletionPercentage, report.DeliveredLinks, report.RequestedLinks))
	}
	if report.RevenueDifferenceCents < 0 {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"actual revenue trails the benchmark by %d cents", -report.RevenueDifferenceCents))
	}

	return report
}

// comparePage diffs one benchmark page against its live counterpart. An
// unrequested delivered domain is a substitution only when the page is fully
// delivered by count; short pages report it as an extra alongside the missing
// entries.
func comparePage(benchPage *models.BenchmarkTargetPage, lp *livePage) models.TargetPageComparison {
	pc := models.TargetPageComparison{
		URL:       benchPage.URL,
		Requested: benchPage.RequestedLinks,
	}

	requestedNames := make(map[string]struct{}, len(benchPage.RequestedDomains))
	for _, domain := range benchPage.RequestedDomains {
		requestedNames[domain.DomainName] = struct{}{}
	}
	deliveredNames := make(map[string]struct{})
	if lp != nil {
		pc.Delivered = len(lp.Delivered)
		for _, d := range lp.Delivered {
			deliveredNames[d.DomainName] = struct{}{}
		}
	}

	for _, domain := range benchPage.RequestedDomains {
		if _, ok := deliveredNames[domain.DomainName]; !ok {
			pc.Missing = append(pc.Missing, domain.DomainName)
		}
	}
	var unrequested []string
	for name := range deliveredNames {
		if _, ok := requestedNames[name]; !ok {
			unrequested = append(unrequested, name)
		}
	}
	sort.Strings(pc.Missing)
	sort.Strings(unrequested)

	if pc.Delivered == pc.Requested && len(pc.Missing) > 0 && len(unrequested) > 0 {
		pc.Substituted = unrequested
	} else {
		pc.Extras = unrequested
	}
	return pc
}

// completionPercentage is round(delivered/requested*100), defined as 0 when
// nothing was requested.
func completionPercentage(delivered, requested int) int {
	if requested == 0 {
		return 0
	}
	return int(math.Round(float64(delivered) / float64(requested) * 100))
}

func metricRanges(delivered []deliveredDomain, metrics map[uint]models.WebsiteMetric) (models.MetricRange, models.MetricRange) {
	var drRange, trafficRange models.MetricRange
	first := true
	for _, d := range delivered {
		var dr, traffic int64
		if metric, ok := metrics[d.DomainID]; ok {
			dr = int64(metric.DomainRating)
			traffic = metric.MonthlyTraffic
		} else if d.HasSnapshot {
			dr = int64(d.DomainRating)
			traffic = d.MonthlyTraffic
		} else {
			continue
		}

		if first {
			drRange = models.MetricRange{Min: dr, Max: dr}
			trafficRange = models.MetricRange{Min: traffic, Max: traffic}
			first = false
			continue
		}
		if dr < drRange.Min {
			drRange.Min = dr
		}
		if dr > drRange.Max {
			drRange.Max = dr
		}
		if traffic < trafficRange.Min {
			trafficRange.Min = traffic
		}
		if traffic > trafficRange.Max {
			trafficRange.Max = traffic
		}
	}
	return drRange, trafficRange
}
