package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/cache"
	"github.com/linkgrove/ordercore/internal/pkg/database"
	"github.com/linkgrove/ordercore/internal/pkg/env"
	"github.com/linkgrove/ordercore/internal/pkg/locks"
	"github.com/linkgrove/ordercore/internal/pkg/payments"
	"github.com/linkgrove/ordercore/internal/pkg/resilience"
)

// One-shot reconciler pass. Meant for cron or manual runs when orders are
// stuck in payment_pending and the periodic sweep is disabled.
func main() {
	limit := flag.Int("limit", 100, "maximum number of stuck orders to check")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall pass timeout")
	flag.Parse()

	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	breakers := resilience.NewRegistry(resilience.DefaultCircuitBreakerConfig())
	locker := locks.NewManager(cache.GetClient(), db)
	client := payments.NewClientFromEnv(breakers)
	reconciler := payments.NewReconciler(repos, client, locker)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	processed, failed, err := reconciler.ReconcileStuckOrders(ctx, *limit)
	if err != nil {
		log.Fatalf("reconciler pass failed: %v", err)
	}
	log.Printf("reconciler pass done: %d processed, %d failed", processed, failed)
}
