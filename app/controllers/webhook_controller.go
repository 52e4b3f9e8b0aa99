package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/linkgrove/ordercore/internal/pkg/env"
	"github.com/linkgrove/ordercore/internal/pkg/payments"
	"github.com/linkgrove/ordercore/internal/pkg/ratelimit"
)

// MaxWebhookBodyBytes is the payload ceiling for inbound webhook deliveries.
const MaxWebhookBodyBytes = 1 << 20

// PaymentProcessor consumes one raw webhook delivery. Satisfied by
// *payments.Processor.
type PaymentProcessor interface {
	Process(ctx context.Context, payload []byte) payments.Result
}

// WebhookController handles inbound payment provider deliveries.
type WebhookController struct {
	processor PaymentProcessor
	limiter   *ratelimit.Limiter
}

var webhookController *WebhookController

// InitializeWebhookController wires the webhook controller with its
// processor and rate limiter.
func InitializeWebhookController(processor PaymentProcessor, limiter *ratelimit.Limiter) {
	webhookController = &WebhookController{processor: processor, limiter: limiter}
}

// HandlePaymentWebhook accepts one provider delivery. The response contract:
// 200 acknowledges (success, duplicate and permanent failure alike), 4xx
// rejects for good, 429/413 guard the endpoint, 500 asks for redelivery.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	ctrl := webhookController
	if ctrl == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_controller_not_initialized"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	if len(rawBody) > MaxWebhookBodyBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "payload_too_large"})
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if !ctrl.limiter.Allow(reqCtx, c.IP()) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
	}

	signature := firstHeaderValue(c, "Signature", "X-Webhook-Signature")
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")
	if !payments.VerifyWebhookSignature(rawBody, signature, secret) {
		// A bad signature can never succeed on redelivery; no record is kept.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	result := ctrl.processor.Process(reqCtx, rawBody)
	switch {
	case result.Invalid:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	case result.Retryable:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	case result.Duplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
	}
}

func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}
