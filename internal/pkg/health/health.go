// Package health aggregates processing state into a composite operational
// verdict consumed by external dashboards.
package health

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/cache"
	"github.com/linkgrove/ordercore/internal/pkg/resilience"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Report is one health snapshot.
type Report struct {
	Status         string            `json:"status"`
	DatabaseUp     bool              `json:"database_up"`
	CacheUp        bool              `json:"cache_up"`
	Breakers       map[string]string `json:"circuit_breakers"`
	WebhookEvents  map[string]int64  `json:"webhook_events"`
	PermanentFails int64             `json:"permanent_failures"`
	CheckedAt      time.Time         `json:"checked_at"`
}

// Pinger reports whether the database answers. Satisfied by the database
// package; tests inject their own.
type Pinger func(ctx context.Context) bool

// Reporter computes composite health verdicts.
type Reporter struct {
	repos    *repository.Repositories
	breakers *resilience.Registry
	pingDB   Pinger
}

// NewReporter wires a health reporter.
func NewReporter(repos *repository.Repositories, breakers *resilience.Registry, pingDB Pinger) *Reporter {
	return &Reporter{repos: repos, breakers: breakers, pingDB: pingDB}
}

// Check produces the current verdict. The database being down or any open
// circuit makes the core unhealthy; a missing cache, a half-open circuit or
// accumulated permanent failures degrade it.
func (r *Reporter) Check(ctx context.Context) *Report {
	report := &Report{
		Breakers:      make(map[string]string),
		WebhookEvents: make(map[string]int64),
		CheckedAt:     time.Now(),
	}

	report.DatabaseUp = r.pingDB != nil && r.pingDB(ctx)
	report.CacheUp = cache.IsAvailable()

	anyOpen := false
	anyHalfOpen := false
	for op, state := range r.breakers.States() {
		report.Breakers[op] = state.String()
		switch state {
		case resilience.CircuitOpen:
			anyOpen = true
		case resilience.CircuitHalfOpen:
			anyHalfOpen = true
		}
	}

	if report.DatabaseUp {
		counts, err := r.repos.WebhookEvent.CountByStatus(ctx)
		if err != nil {
			log.Warnf("[Health] webhook counts unavailable: %v", err)
		} else {
			report.WebhookEvents = counts
			report.PermanentFails = counts[models.WebhookEventStatusFailedPermanent]
		}
	}

	switch {
	case !report.DatabaseUp || anyOpen:
		report.Status = StatusUnhealthy
	case !report.CacheUp || anyHalfOpen || report.PermanentFails > 0:
		report.Status = StatusDegraded
	default:
		report.Status = StatusHealthy
	}
	return report
}
