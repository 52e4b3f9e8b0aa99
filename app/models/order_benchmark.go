package models

import (
	"encoding/json"
	"time"
)

const (
	BenchmarkReasonOrderConfirmed = "order_confirmed"
	BenchmarkReasonOrderSubmitted = "order_submitted"
	BenchmarkReasonManualUpdate   = "manual_update"
	BenchmarkReasonClientRevision = "client_revision"
)

// BenchmarkSchemaVersion tags the BenchmarkData payload shape so historical
// snapshots survive schema evolution.
const BenchmarkSchemaVersion = 1

// OrderBenchmark is an immutable, versioned snapshot of what an order
// committed to deliver. For a given order exactly one row has IsLatest=true
// and Version strictly increases with each capture.
type OrderBenchmark struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;index:idx_order_benchmarks_order_latest,priority:1" json:"order_id"`
	Version       int       `gorm:"not null;default:1" json:"version"`
	IsLatest      bool      `gorm:"not null;default:true;index:idx_order_benchmarks_order_latest,priority:2" json:"is_latest"`
	CaptureReason string    `gorm:"type:varchar(32);not null" json:"capture_reason"`
	CapturedBy    uint      `gorm:"not null" json:"captured_by"`
	BenchmarkJSON JSON      `gorm:"type:longtext;not null" json:"benchmark_json"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Data decodes the stored snapshot payload.
func (b *OrderBenchmark) Data() (*BenchmarkData, error) {
	var data BenchmarkData
	if err := json.Unmarshal([]byte(b.BenchmarkJSON), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SetData encodes and stores the snapshot payload.
func (b *OrderBenchmark) SetData(data *BenchmarkData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	b.BenchmarkJSON = JSON(raw)
	return nil
}

// BenchmarkData is the committed fulfillment plan at capture time.
type BenchmarkData struct {
	SchemaVersion   int  `json:"schema_version"`
	OriginalRequest bool `json:"original_request"`

	OrderTotalCents int64 `json:"order_total_cents"`
	ServiceFeeCents int64 `json:"service_fee_cents"`

	Clients []BenchmarkClient `json:"clients"`

	TotalRequestedLinks int `json:"total_requested_links"`
	TotalClients        int `json:"total_clients"`
	TotalTargetPages    int `json:"total_target_pages"`
	TotalUniqueDomains  int `json:"total_unique_domains"`

	Constraints BenchmarkConstraints `json:"constraints"`
}

// BenchmarkClient is one client's share of the committed plan.
type BenchmarkClient struct {
	ClientID       uint                  `json:"client_id"`
	ClientName     string                `json:"client_name"`
	RequestedLinks int                   `json:"requested_links"`
	TargetPages    []BenchmarkTargetPage `json:"target_pages"`
}

// BenchmarkTargetPage is one URL with its requested domain placements.
type BenchmarkTargetPage struct {
	URL              string            `json:"url"`
	RequestedLinks   int               `json:"requested_links"`
	RequestedDomains []BenchmarkDomain `json:"requested_domains"`
}

// BenchmarkDomain is a single committed domain placement.
type BenchmarkDomain struct {
	DomainID            uint   `json:"domain_id"`
	DomainName          string `json:"domain_name"`
	WholesalePriceCents int64  `json:"wholesale_price_cents"`
	RetailPriceCents    int64  `json:"retail_price_cents"`
	AnchorText          string `json:"anchor_text"`
}

// BenchmarkConstraints records the original ordering constraints.
type BenchmarkConstraints struct {
	BudgetMinCents        int64    `json:"budget_min_cents"`
	BudgetMaxCents        int64    `json:"budget_max_cents"`
	DRMin                 int      `json:"dr_min"`
	DRMax                 int      `json:"dr_max"`
	MinTraffic            int64    `json:"min_traffic"`
	Categories            []string `json:"categories"`
	LinkTypes             []string `json:"link_types"`
	Niches                []string `json:"niches"`
	EstimatedPricePerLink int64    `json:"estimated_price_per_link"`
}
