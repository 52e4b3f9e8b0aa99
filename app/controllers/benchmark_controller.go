package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/benchmark"
)

// BenchmarkController exposes benchmark capture and drift comparison.
type BenchmarkController struct {
	engine     *benchmark.Engine
	comparator *benchmark.Comparator
	repos      *repository.Repositories
}

var benchmarkController *BenchmarkController

// InitializeBenchmarkController wires the benchmark controller.
func InitializeBenchmarkController(engine *benchmark.Engine, comparator *benchmark.Comparator, repos *repository.Repositories) {
	benchmarkController = &BenchmarkController{engine: engine, comparator: comparator, repos: repos}
}

type captureBenchmarkRequest struct {
	Reason  string `json:"reason"`
	ActorID uint   `json:"actor_id"`
}

// HandleCreateBenchmark captures a new benchmark version for an order.
func HandleCreateBenchmark(c *fiber.Ctx) error {
	ctrl := benchmarkController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "benchmark_controller_not_initialized"})
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}

	var req captureBenchmarkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	bench, err := ctrl.engine.CreateOrderBenchmark(reqCtx, orderID, req.ActorID, req.Reason)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		if errors.Is(err, benchmark.ErrInvalidReason) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_reason"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "benchmark_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(bench)
}

// HandleListBenchmarks returns all benchmark versions for an order,
// newest first.
func HandleListBenchmarks(c *fiber.Ctx) error {
	ctrl := benchmarkController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "benchmark_controller_not_initialized"})
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	benches, err := ctrl.repos.Benchmark.ListByOrder(reqCtx, orderID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "listing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"benchmarks": benches, "count": len(benches)})
}

// HandleCompareBenchmark runs a drift comparison of the current fulfillment
// against the latest benchmark and stores the result.
func HandleCompareBenchmark(c *fiber.Ctx) error {
	ctrl := benchmarkController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "benchmark_controller_not_initialized"})
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}

	var req captureBenchmarkRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	comparison, err := ctrl.comparator.CompareToBenchmark(reqCtx, orderID, req.ActorID)
	if err != nil {
		if errors.Is(err, benchmark.ErrNoBenchmark) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no_benchmark"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "comparison_failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(comparison)
}

// HandleListComparisons returns the append-only comparison history for an
// order, newest first.
func HandleListComparisons(c *fiber.Ctx) error {
	ctrl := benchmarkController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "benchmark_controller_not_initialized"})
	}

	orderID, err := orderIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
	}

	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	comparisons, err := ctrl.repos.Benchmark.ListComparisons(reqCtx, orderID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "listing_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"comparisons": comparisons, "count": len(comparisons)})
}

func orderIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid order id")
	}
	return uint(id), nil
}
