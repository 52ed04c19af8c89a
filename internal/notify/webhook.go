package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/openpredict/predictd/internal/crypto"
)

// WebhookSender delivers alerts as signed JSON POSTs to an
// operator-configured endpoint. Receivers verify the HMAC headers with the
// shared secret.
type WebhookSender struct {
	url    string
	auth   *crypto.WebhookAuth
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for the given endpoint. secret
// may be empty, in which case deliveries are unsigned.
func NewWebhookSender(url, secret string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		auth:   &crypto.WebhookAuth{Secret: secret},
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Event    string `json:"event"`
	MarketID uint64 `json:"market_id,omitempty"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Send posts the alert to the webhook endpoint. The signature covers the
// exact body bytes, so marshaling happens once, here, not in postJSON.
func (w *WebhookSender) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(webhookPayload{
		Event:    a.Event,
		MarketID: a.MarketID,
		Title:    a.Title,
		Message:  a.Body,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Unique per delivery attempt so receivers can deduplicate retries.
	req.Header.Set("X-Predictd-Delivery", uuid.NewString())
	if w.auth.Secret != "" {
		for k, v := range w.auth.Headers(body) {
			req.Header.Set(k, v)
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Name returns the sender identifier.
func (w *WebhookSender) Name() string {
	return "webhook"
}
