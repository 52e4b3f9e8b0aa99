package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/batch"
)

// Orders still in payment_pending after this long are candidates for
// reconciliation; a webhook was probably lost.
const reconcileStuckAfter = 30 * time.Minute

// IntentFetcher fetches the authoritative payment intent from the provider.
// Satisfied by *Client.
type IntentFetcher interface {
	GetPaymentIntent(ctx context.Context, providerIntentID string) (*IntentPayload, error)
}

// Reconciler re-checks stuck orders against the provider in rate-limited
// batches. It covers the gap left by lost or permanently failed webhooks.
type Reconciler struct {
	repos   *repository.Repositories
	client  IntentFetcher
	locks   Locker
	cache   IntentCache
	lockTTL time.Duration
}

// NewReconciler wires the reconciler from its collaborators.
func NewReconciler(repos *repository.Repositories, client IntentFetcher, locker Locker) *Reconciler {
	return &Reconciler{
		repos:   repos,
		client:  client,
		locks:   locker,
		cache:   redisIntentCache{},
		lockTTL: defaultLockTTL,
	}
}

// ReconcileStuckOrders scans orders stuck in payment_pending and converges
// each one against the provider's view. Returns processed and failed counts.
func (r *Reconciler) ReconcileStuckOrders(ctx context.Context, limit int) (int, int, error) {
	if limit <= 0 {
		limit = 100
	}
	orders, err := r.repos.Order.ListStuckPaymentPending(ctx, time.Now().Add(-reconcileStuckAfter), limit)
	if err != nil {
		return 0, 0, err
	}
	if len(orders) == 0 {
		return 0, 0, nil
	}

	log.Infof("[Reconcile] checking %d stuck order(s) against the provider", len(orders))
	return batch.Run(ctx, batch.Config{}, orders, r.reconcileOrder)
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order models.Order) error {
	intent, err := r.repos.PaymentIntent.GetByOrderID(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// No intent was ever created; nothing to converge against.
			log.Infof("[Reconcile] order %d has no payment intent, skipping", order.ID)
			return nil
		}
		return err
	}

	remote, err := r.client.GetPaymentIntent(ctx, intent.ProviderIntentID)
	if err != nil {
		return fmt.Errorf("order %d: %w", order.ID, err)
	}
	if remote.Status == intent.Status {
		return nil
	}

	lock, acquired, err := r.locks.Acquire(ctx, order.ID, r.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("order %d: %w", order.ID, ErrLockNotAcquired)
	}
	defer r.locks.Release(ctx, lock)

	intent.Status = remote.Status
	intent.AmountCents = remote.Amount
	if remote.Currency != "" {
		intent.Currency = remote.Currency
	}
	intent.LastError = remote.ErrorMessage()
	if err := r.repos.PaymentIntent.Upsert(ctx, intent); err != nil {
		return err
	}
	r.cache.Put(intent)

	switch remote.Status {
	case models.PaymentIntentStatusSucceeded:
		_, err = r.repos.Order.TransitionState(ctx, order.ID, models.OrderStatePaymentPending, models.OrderStateConfirmed)
	case models.PaymentIntentStatusCanceled:
		_, err = r.repos.Order.TransitionState(ctx, order.ID, models.OrderStatePaymentPending, models.OrderStateCancelled)
	case models.PaymentIntentStatusFailed, models.PaymentIntentStatusRequiresPaymentMethod:
		_, err = r.repos.Order.TransitionState(ctx, order.ID, models.OrderStatePaymentPending, models.OrderStatePaymentFailed)
	}
	if err != nil {
		return err
	}

	log.Infof("[Reconcile] order %d converged to provider status %s", order.ID, remote.Status)
	return nil
}
