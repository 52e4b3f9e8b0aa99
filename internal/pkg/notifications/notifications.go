// Package notifications dispatches the outward emails triggered by payment
// state changes. All sends are best-effort: a failed send is logged and the
// triggering state change stands.
package notifications

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/linkgrove/ordercore/internal/pkg/env"
	"github.com/linkgrove/ordercore/internal/pkg/mail"
)

// Sender delivers a single email. Satisfied by mail.SendMail; tests inject
// their own.
type Sender func(to, subject, body string) error

// Notifier sends payment lifecycle notifications.
type Notifier struct {
	send Sender
}

// NewNotifier creates a notifier using the SMTP mailer.
func NewNotifier() *Notifier {
	return &Notifier{send: mail.SendMail}
}

// NewNotifierWithSender creates a notifier with an injected sender.
func NewNotifierWithSender(send Sender) *Notifier {
	return &Notifier{send: send}
}

// PaymentSucceeded notifies the customer that payment went through.
func (n *Notifier) PaymentSucceeded(customerEmail string, orderID uint, amountCents int64) {
	subject := fmt.Sprintf("Payment received for order #%d", orderID)
	body := fmt.Sprintf(
		"We received your payment of %s for order #%d. Your order is now confirmed and fulfillment will begin shortly.",
		formatCents(amountCents), orderID,
	)
	n.dispatch(customerEmail, subject, body)
}

// PaymentFailed notifies the customer and raises an internal alert.
func (n *Notifier) PaymentFailed(customerEmail string, orderID uint, reason string) {
	subject := fmt.Sprintf("Payment failed for order #%d", orderID)
	body := fmt.Sprintf(
		"Your payment for order #%d could not be processed: %s.\nPlease update your payment method and try again.",
		orderID, reason,
	)
	n.dispatch(customerEmail, subject, body)

	internal := env.GetEnv("ALERTS_EMAIL", "")
	if internal == "" {
		return
	}
	n.dispatch(internal, fmt.Sprintf("[OrderCore] payment failed for order #%d", orderID),
		fmt.Sprintf("Order #%d payment failed: %s", orderID, reason))
}

// PaymentActionRequired asks the customer to complete authentication.
func (n *Notifier) PaymentActionRequired(customerEmail string, orderID uint) {
	subject := fmt.Sprintf("Action required for order #%d", orderID)
	body := fmt.Sprintf(
		"Your payment for order #%d needs an additional confirmation step. Please return to checkout to complete it.",
		orderID,
	)
	n.dispatch(customerEmail, subject, body)
}

// WebhookFailedPermanently alerts operators that an event exhausted its
// retry budget and needs a human.
func (n *Notifier) WebhookFailedPermanently(eventID, eventType, lastError string) {
	to := env.GetEnv("ALERTS_EMAIL", "")
	if to == "" {
		log.Warnf("[Notifications] ALERTS_EMAIL not set, dropping permanent-failure alert for %s", eventID)
		return
	}
	subject := fmt.Sprintf("[OrderCore] webhook %s permanently failed", eventID)
	body := fmt.Sprintf(
		"Webhook event %s (%s) exhausted its retry budget and was marked failed_permanent.\nLast error: %s",
		eventID, eventType, lastError,
	)
	n.dispatch(to, subject, body)
}

func (n *Notifier) dispatch(to, subject, body string) {
	if to == "" {
		return
	}
	if err := n.send(to, subject, body); err != nil {
		log.Errorf("[Notifications] send to %s failed: %v", to, err)
	}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
