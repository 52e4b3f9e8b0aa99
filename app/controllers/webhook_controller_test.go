package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkgrove/ordercore/internal/pkg/payments"
	"github.com/linkgrove/ordercore/internal/pkg/ratelimit"
)

type stubProcessor struct {
	result   payments.Result
	payloads [][]byte
}

func (p *stubProcessor) Process(ctx context.Context, payload []byte) payments.Result {
	p.payloads = append(p.payloads, payload)
	return p.result
}

const testWebhookSecret = "whsec_test"

func newWebhookApp(t *testing.T, processor *stubProcessor, limit int64) *fiber.App {
	t.Helper()
	t.Setenv("PAYMENT_WEBHOOK_SECRET", testWebhookSecret)

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limit, time.Minute)
	InitializeWebhookController(processor, limiter)

	app := fiber.New()
	app.Post("/webhooks/payment", HandlePaymentWebhook)
	return app
}

func signedWebhookRequest(payload []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", payments.SignPayload(payload, testWebhookSecret))
	return req
}

func TestHandlePaymentWebhookSuccess(t *testing.T) {
	processor := &stubProcessor{result: payments.Result{EventStatus: "processed"}}
	app := newWebhookApp(t, processor, 100)

	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	resp, err := app.Test(signedWebhookRequest(payload), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, processor.payloads, 1)
	assert.Equal(t, payload, processor.payloads[0])
}

func TestHandlePaymentWebhookDuplicate(t *testing.T) {
	processor := &stubProcessor{result: payments.Result{Duplicate: true}}
	app := newWebhookApp(t, processor, 100)

	resp, err := app.Test(signedWebhookRequest([]byte(`{"id":"evt_1"}`)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandlePaymentWebhookInvalidPayload(t *testing.T) {
	processor := &stubProcessor{result: payments.Result{Invalid: true}}
	app := newWebhookApp(t, processor, 100)

	resp, err := app.Test(signedWebhookRequest([]byte(`{}`)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandlePaymentWebhookRetryableFailure(t *testing.T) {
	processor := &stubProcessor{result: payments.Result{Retryable: true, Err: assert.AnError}}
	app := newWebhookApp(t, processor, 100)

	resp, err := app.Test(signedWebhookRequest([]byte(`{"id":"evt_1"}`)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHandlePaymentWebhookInvalidSignature(t *testing.T) {
	processor := &stubProcessor{}
	app := newWebhookApp(t, processor, 100)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader([]byte(`{"id":"evt_1"}`)))
	req.Header.Set("Signature", "sha256=deadbeef")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, processor.payloads)
}

func TestHandlePaymentWebhookMissingSignature(t *testing.T) {
	processor := &stubProcessor{}
	app := newWebhookApp(t, processor, 100)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader([]byte(`{"id":"evt_1"}`)))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandlePaymentWebhookAlternateSignatureHeader(t *testing.T) {
	processor := &stubProcessor{result: payments.Result{EventStatus: "processed"}}
	app := newWebhookApp(t, processor, 100)

	payload := []byte(`{"id":"evt_2","type":"payment_intent.succeeded"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Webhook-Signature", payments.SignPayload(payload, testWebhookSecret))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandlePaymentWebhookPayloadTooLarge(t *testing.T) {
	processor := &stubProcessor{}
	app := newWebhookApp(t, processor, 100)

	payload := bytes.Repeat([]byte("a"), MaxWebhookBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Signature", payments.SignPayload(payload, testWebhookSecret))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, processor.payloads)
}

func TestHandlePaymentWebhookRateLimited(t *testing.T) {
	processor := &stubProcessor{result: payments.Result{EventStatus: "processed"}}
	app := newWebhookApp(t, processor, 2)

	payload := []byte(`{"id":"evt_1"}`)
	for i := 0; i < 2; i++ {
		resp, err := app.Test(signedWebhookRequest(payload), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(signedWebhookRequest(payload), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Len(t, processor.payloads, 2)
}
