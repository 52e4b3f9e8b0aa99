// Package benchmark captures versioned snapshots of an order's committed
// fulfillment plan and compares live state against them to surface drift.
package benchmark

import (
	"context"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
)

// StrategyKind identifies which fulfillment data model describes an order.
// Two data models coexist: modern per-item records and the legacy
// group/submission model. The strategy is selected once per order and shared
// by snapshot capture and drift comparison.
type StrategyKind int

const (
	// ModernFulfillment means per-item records exist for the order.
	ModernFulfillment StrategyKind = iota
	// LegacyFulfillment means legacy groups with included submissions exist.
	LegacyFulfillment
	// Unfulfilled means no fulfillment has started; only the original
	// requested structure is available.
	Unfulfilled
)

func (k StrategyKind) String() string {
	switch k {
	case ModernFulfillment:
		return "modern"
	case LegacyFulfillment:
		return "legacy"
	case Unfulfilled:
		return "unfulfilled"
	default:
		return "unknown"
	}
}

// FulfillmentView is an order's fulfillment state loaded once. Items are
// pre-filtered to active ones (cancelled and refunded excluded).
type FulfillmentView struct {
	Kind StrategyKind

	Items       []models.OrderItem
	Groups      []models.OrderGroup
	Submissions map[uint][]models.Submission
	TargetPages []models.OrderTargetPage
}

// LoadFulfillment reads the order's fulfillment records and selects the
// strategy: modern items first, legacy groups with included submissions as
// fallback, the original request last.
func LoadFulfillment(ctx context.Context, repo repository.FulfillmentRepository, orderID uint) (*FulfillmentView, error) {
	items, err := repo.GetItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	active := items[:0:0]
	for _, item := range items {
		if item.IsActive() {
			active = append(active, item)
		}
	}
	if len(active) > 0 {
		return &FulfillmentView{Kind: ModernFulfillment, Items: active}, nil
	}

	groups, err := repo.GetGroups(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		groupIDs := make([]uint, 0, len(groups))
		for _, group := range groups {
			groupIDs = append(groupIDs, group.ID)
		}
		submissions, err := repo.GetSubmissions(ctx, groupIDs)
		if err != nil {
			return nil, err
		}

		byGroup := make(map[uint][]models.Submission)
		anyIncluded := false
		for _, submission := range submissions {
			byGroup[submission.OrderGroupID] = append(byGroup[submission.OrderGroupID], submission)
			if submission.IsIncluded() {
				anyIncluded = true
			}
		}
		if anyIncluded {
			return &FulfillmentView{Kind: LegacyFulfillment, Groups: groups, Submissions: byGroup}, nil
		}
	}

	pages, err := repo.GetTargetPages(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &FulfillmentView{Kind: Unfulfilled, TargetPages: pages}, nil
}
