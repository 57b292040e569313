// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/theta/internal/notifier"
)

const defaultTimeout = 30 * time.Second

// Webhook posts notifications as JSON to a URL.
type Webhook struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier. A zero timeout uses 30s.
func New(name, url string, headers map[string]string, timeout time.Duration) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook %s: url is required", name)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Webhook{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (w *Webhook) Name() string { return w.name }

func (w *Webhook) Send(ctx context.Context, n notifier.Notification) error {
	body, err := json.Marshal(payload(n))
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}

func payload(n notifier.Notification) map[string]any {
	return map[string]any{
		"type":          "alerts",
		"evaluation_id": n.EvaluationID,
		"created_at":    n.CreatedAt.Format(time.RFC3339),
		"count":         len(n.Alerts),
		"alerts":        n.Alerts,
		"metrics":       n.Metrics,
	}
}
