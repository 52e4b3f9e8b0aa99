package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/app/repository"
	"github.com/linkgrove/ordercore/internal/pkg/cache"
	"github.com/linkgrove/ordercore/internal/pkg/locks"
	"github.com/linkgrove/ordercore/internal/pkg/metrics/counter"
	"github.com/linkgrove/ordercore/internal/pkg/notifications"
)

// ErrLockNotAcquired means another holder owns the order lock. Treated as a
// retryable condition; the provider's redelivery schedule drives the retry.
var ErrLockNotAcquired = errors.New("order lock not acquired")

// errSkipEvent marks an event type this core deliberately does not handle.
var errSkipEvent = errors.New("unhandled event type")

const defaultLockTTL = 30 * time.Second

// Locker is the slice of the lock manager the processor needs. Satisfied by
// *locks.Manager; tests inject their own.
type Locker interface {
	Acquire(ctx context.Context, orderID uint, ttl time.Duration) (*locks.Lock, bool, error)
	Release(ctx context.Context, lock *locks.Lock) bool
}

// IntentCache is the read-through mirror of hot payment intents. Satisfied by
// the shared Redis-backed cache; tests inject their own.
type IntentCache interface {
	Get(providerIntentID string) (*models.PaymentIntent, bool)
	Put(intent *models.PaymentIntent)
}

// redisIntentCache backs the intent cache with the shared Redis client.
type redisIntentCache struct{}

func (redisIntentCache) Get(providerIntentID string) (*models.PaymentIntent, bool) {
	return cache.GetPaymentIntent(providerIntentID)
}

func (redisIntentCache) Put(intent *models.PaymentIntent) {
	cache.SetPaymentIntent(intent)
}

// Result is the processing outcome the HTTP layer maps to a status code.
type Result struct {
	EventStatus string
	Duplicate   bool
	Invalid     bool
	Retryable   bool
	Err         error
}

// Processor runs the webhook pipeline: deduplicate by event id, dispatch by
// event type, mutate payment/order state under the order lock, then record
// the outcome against the event's retry budget.
type Processor struct {
	repos    *repository.Repositories
	locks    Locker
	notifier *notifications.Notifier
	cache    IntentCache

	lockTTL time.Duration
}

// NewProcessor wires the processor from its collaborators.
func NewProcessor(repos *repository.Repositories, locker Locker, notifier *notifications.Notifier) *Processor {
	return &Processor{
		repos:    repos,
		locks:    locker,
		notifier: notifier,
		cache:    redisIntentCache{},
		lockTTL:  defaultLockTTL,
	}
}

// Process handles one verified webhook delivery.
func (p *Processor) Process(ctx context.Context, rawPayload []byte) Result {
	event, err := ParseEvent(rawPayload)
	if err != nil {
		return Result{Invalid: true, Err: err}
	}

	record := &models.WebhookEvent{
		EventID:          event.ID,
		EventType:        event.Type,
		Status:           models.WebhookEventStatusPending,
		ProviderIntentID: event.Data.Object.ID,
		PayloadJSON:      string(rawPayload),
	}
	created, stored, err := p.repos.WebhookEvent.CreateIfNotExists(ctx, record)
	if err != nil {
		return Result{Retryable: true, Err: err}
	}
	record = stored

	if !created {
		if record.IsTerminal() {
			// Processed, skipped or permanently failed: acknowledge without
			// reprocessing. This is the at-most-once-effect guarantee.
			return Result{EventStatus: record.Status, Duplicate: true}
		}
		if !record.IsRetryable() {
			// Still pending: a concurrent delivery owns the event. Ack this
			// one and let the in-flight attempt settle the outcome.
			return Result{EventStatus: record.Status, Duplicate: true}
		}
		// Redelivery of a previously failed event: run it again against the
		// stored record so the retry budget carries over.
	}

	if cerr := counter.AddWebhookEventType(event.Type); cerr != nil {
		log.Debugf("[Payments] event type counter unavailable: %v", cerr)
	}

	return p.finish(ctx, record, p.dispatch(ctx, event, record))
}

func (p *Processor) dispatch(ctx context.Context, event *Event, record *models.WebhookEvent) error {
	switch event.Type {
	case EventPaymentSucceeded:
		return p.handlePaymentSucceeded(ctx, event, record)
	case EventPaymentFailed:
		return p.handlePaymentFailed(ctx, event, record)
	case EventPaymentCanceled:
		return p.handlePaymentCanceled(ctx, event, record)
	case EventPaymentRequiresAction:
		return p.handleRequiresAction(ctx, event, record)
	case EventPaymentProcessing:
		return p.handleProcessing(ctx, event, record)
	case EventPaymentMethodAttached, EventCustomerCreated, EventCustomerUpdated:
		log.Infof("[Payments] %s event %s acknowledged without action", event.Type, event.ID)
		return nil
	default:
		return errSkipEvent
	}
}

// finish records the outcome. Handler errors count against the retry budget;
// the fifth failure becomes permanent, raises exactly one alert and is
// acknowledged so the provider stops redelivering.
func (p *Processor) finish(ctx context.Context, record *models.WebhookEvent, handlerErr error) Result {
	now := time.Now()
	switch {
	case handlerErr == nil:
		record.Status = models.WebhookEventStatusProcessed
		record.ErrorMessage = ""
		record.ProcessedAt = &now
	case errors.Is(handlerErr, errSkipEvent):
		record.Status = models.WebhookEventStatusSkipped
		record.ProcessedAt = &now
	default:
		record.RetryCount++
		record.ErrorMessage = handlerErr.Error()
		if record.RetryCount >= models.WebhookEventMaxAttempts {
			record.Status = models.WebhookEventStatusFailedPermanent
			record.ProcessedAt = &now
			p.notifier.WebhookFailedPermanently(record.EventID, record.EventType, record.ErrorMessage)
		} else {
			record.Status = models.WebhookEventStatusFailed
		}
	}

	if err := p.repos.WebhookEvent.Update(ctx, record); err != nil {
		log.Errorf("[Payments] outcome bookkeeping failed for %s: %v", record.EventID, err)
		return Result{EventStatus: record.Status, Retryable: true, Err: err}
	}
	if cerr := counter.AddWebhookOutcome(record.Status); cerr != nil {
		log.Debugf("[Payments] outcome counter unavailable: %v", cerr)
	}

	switch record.Status {
	case models.WebhookEventStatusFailed:
		return Result{EventStatus: record.Status, Retryable: true, Err: handlerErr}
	case models.WebhookEventStatusFailedPermanent:
		return Result{EventStatus: record.Status, Err: handlerErr}
	default:
		return Result{EventStatus: record.Status}
	}
}

func (p *Processor) handlePaymentSucceeded(ctx context.Context, event *Event, record *models.WebhookEvent) error {
	return p.handleIntentEvent(ctx, event, record, models.PaymentIntentStatusSucceeded, func(intent *models.PaymentIntent, orderID uint) error {
		moved, err := p.repos.Order.TransitionState(ctx, orderID, models.OrderStatePaymentPending, models.OrderStateConfirmed)
		if err != nil {
			return err
		}
		if !moved {
			log.Infof("[Payments] order %d not in payment_pending, payment success recorded without transition", orderID)
		}
		p.notifier.PaymentSucceeded(event.Data.Object.ReceiptEmail, orderID, intent.AmountCents)
		return nil
	})
}

func (p *Processor) handlePaymentFailed(ctx context.Context, event *Event, record *models.WebhookEvent) error {
	return p.handleIntentEvent(ctx, event, record, models.PaymentIntentStatusFailed, func(intent *models.PaymentIntent, orderID uint) error {
		// Never downgrade a further-progressed order.
		moved, err := p.repos.Order.TransitionState(ctx, orderID, models.OrderStatePaymentPending, models.OrderStatePaymentFailed)
		if err != nil {
			return err
		}
		if !moved {
			log.Infof("[Payments] order %d progressed past payment_pending, failure recorded without transition", orderID)
		}
		p.notifier.PaymentFailed(event.Data.Object.ReceiptEmail, orderID, event.Data.Object.ErrorMessage())
		return nil
	})
}

func (p *Processor) handlePaymentCanceled(ctx context.Context, event *Event, record *models.WebhookEvent) error {
	return p.handleIntentEvent(ctx, event, record, models.PaymentIntentStatusCanceled, func(intent *models.PaymentIntent, orderID uint) error {
		_, err := p.repos.Order.TransitionState(ctx, orderID, models.OrderStatePaymentPending, models.OrderStateCancelled)
		return err
	})
}

func (p *Processor) handleRequiresAction(ctx context.Context, event *Event, record *models.WebhookEvent) error {
	return p.handleIntentEvent(ctx, event, record, models.PaymentIntentStatusRequiresAction, func(intent *models.PaymentIntent, orderID uint) error {
		p.notifier.PaymentActionRequired(event.Data.Object.ReceiptEmail, orderID)
		return nil
	})
}

func (p *Processor) handleProcessing(ctx context.Context, event *Event, record *models.WebhookEvent) error {
	return p.handleIntentEvent(ctx, event, record, models.PaymentIntentStatusProcessing, func(intent *models.PaymentIntent, orderID uint) error {
		return nil
	})
}

// handleIntentEvent is the shared shape of every payment-intent handler:
// resolve the order, take its lock, sync the intent mirror, then apply the
// event-specific state change.
func (p *Processor) handleIntentEvent(ctx context.Context, event *Event, record *models.WebhookEvent, intentStatus string, apply func(intent *models.PaymentIntent, orderID uint) error) error {
	if event.Data.Object.ID == "" {
		return fmt.Errorf("event %s carries no payment intent id", event.ID)
	}

	orderID, err := p.resolveOrderID(ctx, event)
	if err != nil {
		return err
	}

	lock, acquired, err := p.locks.Acquire(ctx, orderID, p.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("order %d: %w", orderID, ErrLockNotAcquired)
	}
	defer p.locks.Release(ctx, lock)

	intent, err := p.syncIntent(ctx, event, orderID, intentStatus)
	if err != nil {
		return err
	}
	record.OrderID = &orderID
	record.PaymentIntentID = &intent.ID

	return apply(intent, orderID)
}

// resolveOrderID prefers the order reference in the event metadata, then the
// cached intent mirror, then the database row. A database hit populates the
// cache so repeat deliveries for the same intent stay off the database.
func (p *Processor) resolveOrderID(ctx context.Context, event *Event) (uint, error) {
	if id, ok := event.OrderID(); ok {
		return id, nil
	}
	intentID := event.Data.Object.ID
	if cached, ok := p.cache.Get(intentID); ok && cached.OrderID != 0 {
		return cached.OrderID, nil
	}
	intent, err := p.repos.PaymentIntent.GetByProviderIntentID(ctx, intentID)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve order for intent %s: %w", intentID, err)
	}
	p.cache.Put(intent)
	return intent.OrderID, nil
}

// syncIntent updates the local mirror from the event payload and refreshes
// the cached copy with the authoritative row the upsert read back.
func (p *Processor) syncIntent(ctx context.Context, event *Event, orderID uint, status string) (*models.PaymentIntent, error) {
	obj := event.Data.Object
	intent := &models.PaymentIntent{
		ProviderIntentID: obj.ID,
		OrderID:          orderID,
		Status:           status,
		AmountCents:      obj.Amount,
		Currency:         obj.Currency,
		LastError:        obj.ErrorMessage(),
	}
	if intent.Currency == "" {
		intent.Currency = "usd"
	}
	if err := p.repos.PaymentIntent.Upsert(ctx, intent); err != nil {
		return nil, err
	}
	p.cache.Put(intent)
	return intent, nil
}
