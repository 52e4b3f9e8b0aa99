package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linkgrove/ordercore/internal/pkg/env"
	"github.com/linkgrove/ordercore/internal/pkg/resilience"
)

const defaultProviderAPIBaseURL = "https://api.payments.example.com/v1"

// Breaker operation name for outbound intent fetches.
const opFetchPaymentIntent = "provider.payment_intent.fetch"

// Client talks to the payment provider's REST API. Every call goes through
// the circuit breaker registered for its operation name.
type Client struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client

	breakers *resilience.Registry
}

// NewClientFromEnv builds a provider client from environment configuration.
func NewClientFromEnv(breakers *resilience.Registry) *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("PAYMENT_API_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("PAYMENT_API_BASE_URL", defaultProviderAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		breakers: breakers,
	}
}

// GetPaymentIntent fetches the authoritative payment-intent resource.
func (c *Client) GetPaymentIntent(ctx context.Context, providerIntentID string) (*IntentPayload, error) {
	id := strings.TrimSpace(providerIntentID)
	if id == "" {
		return nil, errors.New("payment intent id is required")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("PAYMENT_API_KEY is not configured")
	}

	return resilience.ExecuteVal(ctx, c.breakers.Get(opFetchPaymentIntent), func(ctx context.Context) (*IntentPayload, error) {
		return c.fetchPaymentIntent(ctx, id)
	})
}

func (c *Client) fetchPaymentIntent(ctx context.Context, id string) (*IntentPayload, error) {
	baseURL := strings.TrimRight(c.APIBaseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/payment_intents/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fetchErr := fmt.Errorf("payment intent fetch failed: status=%d body=%s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(fetchErr, resp.StatusCode)
		}
		return nil, fetchErr
	}

	var out IntentPayload
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("payment intent response missing id")
	}
	return &out, nil
}
