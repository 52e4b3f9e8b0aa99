package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/linkgrove/ordercore/app/controllers"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	api.Get("/health", controllers.HandleHealth)
	api.Get("/stats", controllers.HandleStats)
	api.Get("/webhook-events", controllers.HandleListWebhookEvents)

	orders := api.Group("/orders/:id")
	orders.Post("/benchmarks", controllers.HandleCreateBenchmark)
	orders.Get("/benchmarks", controllers.HandleListBenchmarks)
	orders.Post("/comparisons", controllers.HandleCompareBenchmark)
	orders.Get("/comparisons", controllers.HandleListComparisons)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
