// Package slack implements the Notifier port with an incoming-webhook POST.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/diligencias/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.Notifier = (*Notifier)(nil)
	_ driven.Notifier = Nop{}
)

// webhookHTTPClient is the HTTP client used for webhook posts. The webhook is
// a third party, so it gets its own timeout independent of the API client.
var webhookHTTPClient = &http.Client{Timeout: 10 * time.Second}

// Notifier posts plain-text messages to a Slack-compatible incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Notifier for the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{webhookURL: webhookURL, httpClient: webhookHTTPClient}
}

// NewNotifierWithHTTPClient creates a Notifier with a custom http.Client.
// This constructor is intended for testing.
func NewNotifierWithHTTPClient(httpClient *http.Client, webhookURL string) *Notifier {
	return &Notifier{webhookURL: webhookURL, httpClient: httpClient}
}

type webhookMessage struct {
	Text string `json:"text"`
}

// Notify posts {"text": text} to the webhook. Any non-2xx status is an error
// carrying the response body, which is where Slack puts the reason.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookMessage{Text: text})
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(reason))
	}
	return nil
}

// Nop is the Notifier used when no webhook is configured.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, string) error { return nil }
