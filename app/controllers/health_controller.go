package controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/health"
	"github.com/linkgrove/ordercore/internal/pkg/metrics/counter"
)

// HealthController exposes the composite health verdict and processing stats.
type HealthController struct {
	reporter *health.Reporter
	repos    *repository.Repositories
}

var healthController *HealthController

// InitializeHealthController wires the health controller.
func InitializeHealthController(reporter *health.Reporter, repos *repository.Repositories) {
	healthController = &HealthController{reporter: reporter, repos: repos}
}

// HandleHealth returns the composite verdict. Unhealthy maps to 503 so load
// balancers can act on it.
func HandleHealth(c *fiber.Ctx) error {
	ctrl := healthController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "health_controller_not_initialized"})
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report := ctrl.reporter.Check(reqCtx)
	status := fiber.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(report)
}

// HandleStats returns processing volume figures: durable per-status counts
// from the database plus the running counters kept in the cache.
func HandleStats(c *fiber.Ctx) error {
	ctrl := healthController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "health_controller_not_initialized"})
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	eventCounts, err := ctrl.repos.WebhookEvent.CountByStatus(reqCtx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_unavailable"})
	}

	outcomes, err := counter.WebhookOutcomes()
	if err != nil {
		log.Debugf("[Health] outcome counters unavailable: %v", err)
	}
	volumes, err := counter.WebhookEventTypes()
	if err != nil {
		log.Debugf("[Health] volume counters unavailable: %v", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"webhook_events":    eventCounts,
		"outcome_counters":  outcomes,
		"event_type_volume": volumes,
	})
}

// HandleListWebhookEvents lists recent events by status, newest first. Meant
// for operators chasing failed or permanently failed deliveries.
func HandleListWebhookEvents(c *fiber.Ctx) error {
	ctrl := healthController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "health_controller_not_initialized"})
	}

	status := c.Query("status", models.WebhookEventStatusFailedPermanent)
	switch status {
	case models.WebhookEventStatusPending, models.WebhookEventStatusProcessed,
		models.WebhookEventStatusFailed, models.WebhookEventStatusFailedPermanent,
		models.WebhookEventStatusSkipped:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_status"})
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	events, err := ctrl.repos.WebhookEvent.ListByStatus(reqCtx, status, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "listing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"events": events, "count": len(events)})
}
