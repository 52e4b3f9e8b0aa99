package benchmark

import (
	"encoding/json"
	"sort"

	"github.com/linkgrove/ordercore/app/models"
)

// BuildSnapshot computes the committed-plan snapshot for an order from its
// fulfillment view. The caller persists the result.
func BuildSnapshot(order *models.Order, view *FulfillmentView) *models.BenchmarkData {
	data := &models.BenchmarkData{
		SchemaVersion:   models.BenchmarkSchemaVersion,
		OriginalRequest: view.Kind == Unfulfilled,
		OrderTotalCents: order.EstimatedTotalCents,
		ServiceFeeCents: order.ServiceFeeCents,
		Constraints:     snapshotConstraints(order),
	}

	switch view.Kind {
	case ModernFulfillment:
		data.Clients = clientsFromItems(view.Items)
	case LegacyFulfillment:
		data.Clients = clientsFromGroups(view.Groups, view.Submissions)
	default:
		data.Clients = clientsFromTargetPages(view.TargetPages)
	}

	aggregate(data)
	if data.Constraints.EstimatedPricePerLink == 0 && data.TotalRequestedLinks > 0 {
		data.Constraints.EstimatedPricePerLink = estimatePricePerLink(data)
	}
	return data
}

// clientsFromItems groups modern per-item records by client, then by target
// page. One requested link per item, with its assigned domain if any.
func clientsFromItems(items []models.OrderItem) []models.BenchmarkClient {
	clients := make(map[uint]*models.BenchmarkClient)
	pagesByClient := make(map[uint]map[string]*models.BenchmarkTargetPage)
	var clientOrder []uint

	for _, item := range items {
		client, ok := clients[item.ClientID]
		if !ok {
			client = &models.BenchmarkClient{ClientID: item.ClientID, ClientName: item.ClientName}
			clients[item.ClientID] = client
			pagesByClient[item.ClientID] = make(map[string]*models.BenchmarkTargetPage)
			clientOrder = append(clientOrder, item.ClientID)
		}
		client.RequestedLinks++

		page, ok := pagesByClient[item.ClientID][item.TargetPageURL]
		if !ok {
			page = &models.BenchmarkTargetPage{URL: item.TargetPageURL}
			pagesByClient[item.ClientID][item.TargetPageURL] = page
		}
		page.RequestedLinks++
		if item.HasAssignedDomain() {
			page.RequestedDomains = append(page.RequestedDomains, models.BenchmarkDomain{
				DomainID:            *item.DomainID,
				DomainName:          item.DomainName,
				WholesalePriceCents: item.WholesalePriceCents,
				RetailPriceCents:    item.RetailPriceCents,
				AnchorText:          item.AnchorText,
			})
		}
	}

	out := make([]models.BenchmarkClient, 0, len(clientOrder))
	for _, cid := range clientOrder {
		client := *clients[cid]
		urls := make([]string, 0, len(pagesByClient[cid]))
		for url := range pagesByClient[cid] {
			urls = append(urls, url)
		}
		sort.Strings(urls)
		for _, url := range urls {
			client.TargetPages = append(client.TargetPages, *pagesByClient[cid][url])
		}
		out = append(out, client)
	}
	return out
}

// clientsFromGroups builds the snapshot from legacy groups, keeping only
// submissions marked included.
func clientsFromGroups(groups []models.OrderGroup, submissions map[uint][]models.Submission) []models.BenchmarkClient {
	var out []models.BenchmarkClient
	for _, group := range groups {
		included := make([]models.Submission, 0)
		for _, submission := range submissions[group.ID] {
			if submission.IsIncluded() {
				included = append(included, submission)
			}
		}
		if len(included) == 0 {
			continue
		}

		pagesByURL := make(map[string]*models.BenchmarkTargetPage)
		var urlOrder []string
		for _, submission := range included {
			page, ok := pagesByURL[submission.TargetPageURL]
			if !ok {
				page = &models.BenchmarkTargetPage{URL: submission.TargetPageURL}
				pagesByURL[submission.TargetPageURL] = page
				urlOrder = append(urlOrder, submission.TargetPageURL)
			}
			page.RequestedLinks++
			page.RequestedDomains = append(page.RequestedDomains, models.BenchmarkDomain{
				DomainID:            submission.DomainID,
				DomainName:          submission.DomainName,
				WholesalePriceCents: submission.WholesalePriceCents,
				RetailPriceCents:    submission.RetailPriceCents,
				AnchorText:          submission.AnchorText,
			})
		}

		client := models.BenchmarkClient{ClientID: group.ClientID, ClientName: group.ClientName}
		for _, url := range urlOrder {
			client.RequestedLinks += pagesByURL[url].RequestedLinks
			client.TargetPages = append(client.TargetPages, *pagesByURL[url])
		}
		out = append(out, client)
	}
	return out
}

// clientsFromTargetPages falls back to the original requested structure; no
// domains have been chosen yet.
func clientsFromTargetPages(pages []models.OrderTargetPage) []models.BenchmarkClient {
	clients := make(map[uint]*models.BenchmarkClient)
	var clientOrder []uint
	for _, page := range pages {
		client, ok := clients[page.ClientID]
		if !ok {
			client = &models.BenchmarkClient{ClientID: page.ClientID, ClientName: page.ClientName}
			clients[page.ClientID] = client
			clientOrder = append(clientOrder, page.ClientID)
		}
		requested := page.RequestedLinkCount
		if requested <= 0 {
			requested = 1
		}
		client.RequestedLinks += requested
		client.TargetPages = append(client.TargetPages, models.BenchmarkTargetPage{
			URL:            page.URL,
			RequestedLinks: requested,
		})
	}

	out := make([]models.BenchmarkClient, 0, len(clientOrder))
	for _, id := range clientOrder {
		out = append(out, *clients[id])
	}
	return out
}

func snapshotConstraints(order *models.Order) models.BenchmarkConstraints {
	return models.BenchmarkConstraints{
		BudgetMinCents:        order.BudgetMinCents,
		BudgetMaxCents:        order.BudgetMaxCents,
		DRMin:                 order.DRMin,
		DRMax:                 order.DRMax,
		MinTraffic:            order.MinTraffic,
		Categories:            decodeStringList(order.RequestedCategories),
		LinkTypes:             decodeStringList(order.RequestedLinkTypes),
		Niches:                decodeStringList(order.RequestedNiches),
		EstimatedPricePerLink: order.EstimatedPricePerLink,
	}
}

func decodeStringList(raw models.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func aggregate(data *models.BenchmarkData) {
	uniqueDomains := make(map[uint]struct{})
	for _, client := range data.Clients {
		data.TotalClients++
		data.TotalRequestedLinks += client.RequestedLinks
		for _, page := range client.TargetPages {
			data.TotalTargetPages++
			for _, domain := range page.RequestedDomains {
				uniqueDomains[domain.DomainID] = struct{}{}
			}
		}
	}
	data.TotalUniqueDomains = len(uniqueDomains)
}

// estimatePricePerLink derives the per-link price from committed retail
// prices when the order never stored one.
func estimatePricePerLink(data *models.BenchmarkData) int64 {
	var totalCents int64
	var priced int64
	for _, client := range data.Clients {
		for _, page := range client.TargetPages {
			for _, domain := range page.RequestedDomains {
				totalCents += domain.RetailPriceCents
				priced++
			}
		}
	}
	if priced == 0 {
		if data.TotalRequestedLinks > 0 {
			return data.OrderTotalCents / int64(data.TotalRequestedLinks)
		}
		return 0
	}
	return totalCents / priced
}
