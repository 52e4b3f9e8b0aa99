package models

import (
	"encoding/json"
	"time"
)

// ComparisonSchemaVersion tags the ComparisonData payload shape.
const ComparisonSchemaVersion = 1

// BenchmarkComparison is an append-only audit record of one drift
// comparison. Never updated, never flagged "latest"; each comparison
// stands alone.
type BenchmarkComparison struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	BenchmarkID    uint      `gorm:"not null;index" json:"benchmark_id"`
	OrderID        uint      `gorm:"not null;index" json:"order_id"`
	ComparedBy     uint      `gorm:"not null" json:"compared_by"`
	ComparisonJSON JSON      `gorm:"type:longtext;not null" json:"comparison_json"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Data decodes the stored comparison payload.
func (c *BenchmarkComparison) Data() (*ComparisonData, error) {
	var data ComparisonData
	if err := json.Unmarshal([]byte(c.ComparisonJSON), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SetData encodes and stores the comparison payload.
func (c *BenchmarkComparison) SetData(data *ComparisonData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.ComparisonJSON = JSON(raw)
	return nil
}

// ComparisonData is the full drift report between a benchmark and live state.
type ComparisonData struct {
	SchemaVersion int `json:"schema_version"`

	RequestedLinks       int `json:"requested_links"`
	DeliveredLinks       int `json:"delivered_links"`
	InProgressLinks      int `json:"in_progress_links"`
	CompletionPercentage int `json:"completion_percentage"`

	ExpectedRevenueCents   int64 `json:"expected_revenue_cents"`
	ActualRevenueCents     int64 `json:"actual_revenue_cents"`
	RevenueDifferenceCents int64 `json:"revenue_difference_cents"`

	Clients []ClientComparison `json:"clients"`
	Issues  []string           `json:"issues"`

	DeliveredDRRange      MetricRange `json:"delivered_dr_range"`
	DeliveredTrafficRange MetricRange `json:"delivered_traffic_range"`
}

// ClientComparison is the per-client drift breakdown.
type ClientComparison struct {
	ClientID    uint                   `json:"client_id"`
	ClientName  string                 `json:"client_name"`
	Requested   int                    `json:"requested"`
	Delivered   int                    `json:"delivered"`
	InProgress  int                    `json:"in_progress"`
	TargetPages []TargetPageComparison `json:"target_pages"`
}

// TargetPageComparison diffs one target page's requested domains against the
// delivered ones.
type TargetPageComparison struct {
	URL         string   `json:"url"`
	Requested   int      `json:"requested"`
	Delivered   int      `json:"delivered"`
	Missing     []string `json:"missing"`
	Substituted []string `json:"substituted"`
	Extras      []string `json:"extras"`
}

// MetricRange is an observed min/max over delivered domains.
type MetricRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}
