package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/linkgrove/ordercore/app/controllers"
)

type WebhookRouter struct {
}

// InstallRouter registers the provider-facing webhook endpoint. The handler
// carries its own sliding-window rate limiter keyed by source IP, so no
// middleware limiter is applied here.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhooks/payment", controllers.HandlePaymentWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
