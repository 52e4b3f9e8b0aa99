package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/linkgrove/ordercore/app/controllers"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/benchmark"
	"github.com/linkgrove/ordercore/internal/pkg/cache"
	"github.com/linkgrove/ordercore/internal/pkg/database"
	"github.com/linkgrove/ordercore/internal/pkg/env"
	"github.com/linkgrove/ordercore/internal/pkg/health"
	"github.com/linkgrove/ordercore/internal/pkg/locks"
	"github.com/linkgrove/ordercore/internal/pkg/notifications"
	"github.com/linkgrove/ordercore/internal/pkg/payments"
	"github.com/linkgrove/ordercore/internal/pkg/ratelimit"
	"github.com/linkgrove/ordercore/internal/pkg/resilience"
	"github.com/linkgrove/ordercore/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	breakers := resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig())
	locker := locks.NewManager(cache.GetClient(), db)
	notifier := notifications.NewNotifier()
	processor := payments.NewProcessor(repos, locker, notifier)

	var limiterStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cache.IsAvailable() {
		limiterStore = ratelimit.NewRedisStore(cache.GetClient())
	}
	limiter := ratelimit.NewLimiter(limiterStore,
		int64(env.GetEnvInt("WEBHOOK_RATE_LIMIT", ratelimit.DefaultLimit)), ratelimit.DefaultWindow)

	reporter := health.NewReporter(repos, breakers, func(ctx context.Context) bool {
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.PingContext(ctx) == nil
	})

	controllers.InitializeWebhookController(processor, limiter)
	controllers.InitializeHealthController(reporter, repos)
	controllers.InitializeBenchmarkController(benchmark.NewEngine(repos), benchmark.NewComparator(repos), repos)

	startReconciler(repos, breakers, locker)

	app := fiber.New(fiber.Config{
		BodyLimit:    controllers.MaxWebhookBodyBytes,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// startReconciler runs the stuck-order sweep on a fixed interval. Each pass
// converges orders left in payment_pending by lost webhooks. Off by default;
// cmd/reconcile is the cron-friendly alternative.
func startReconciler(repos *repository.Repositories, breakers *resilience.Registry, locker payments.Locker) {
	if env.GetEnv("RECONCILER_ENABLED", "false") != "true" {
		return
	}

	client := payments.NewClientFromEnv(breakers)
	reconciler := payments.NewReconciler(repos, client, locker)

	interval := env.GetEnvDuration("RECONCILER_INTERVAL", 15*time.Minute)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			processed, failed, err := reconciler.ReconcileStuckOrders(ctx, 100)
			cancel()
			if err != nil {
				log.Printf("reconciler pass failed: %v", err)
				continue
			}
			if processed > 0 || failed > 0 {
				log.Printf("reconciler pass done: %d processed, %d failed", processed, failed)
			}
		}
	}()
}
