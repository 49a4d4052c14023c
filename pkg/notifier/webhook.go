// Package notifier delivers run notifications to external consumers.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// WebhookNotifier posts run notifications to a configured HTTP endpoint.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewWebhookNotifier creates a webhook notifier. endpoint may be empty; Notify
// is then a no-op so callers can wire the notifier unconditionally.
func NewWebhookNotifier(endpoint string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("module", "webhook_notifier"),
	}
}

// Notify posts the notification as JSON. A non-2xx response is an error so
// the caller can log the failed delivery.
func (n *WebhookNotifier) Notify(ctx context.Context, notification protocol.Notification) error {
	if n.endpoint == "" {
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification endpoint returned status %d", resp.StatusCode)
	}

	n.logger.DebugContext(ctx, "Notification delivered",
		"pipeline_id", notification.PipelineID,
		"status", notification.Status)

	return nil
}
