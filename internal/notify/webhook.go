package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/btouchard/warren/internal/config"
)

// WebhookNotifier POSTs lifecycle events as JSON to a configured URL.
// Delivery is best effort: failures are logged and never retried.
type WebhookNotifier struct {
	name   string
	url    string
	secret string
	events []string
	http   *http.Client
}

// NewWebhook creates a notifier from a webhook config entry. An empty
// events list subscribes to everything.
func NewWebhook(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		name:   cfg.Name,
		url:    cfg.URL,
		secret: cfg.Secret,
		events: cfg.Events,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers the event if this webhook subscribes to its type.
func (w *WebhookNotifier) Notify(event Event) {
	if len(w.events) > 0 && !slices.Contains(w.events, event.Type) {
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		slog.Warn("webhook payload encode failed", "webhook", w.name, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("webhook request build failed", "webhook", w.name, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Warren-Token", w.secret)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		slog.Warn("webhook delivery failed", "webhook", w.name, "event", event.Type, "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		slog.Warn("webhook rejected", "webhook", w.name, "event", event.Type, "status", resp.StatusCode)
		return
	}

	slog.Debug("webhook delivered", "webhook", w.name, "event", event.Type)
}
