package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
)

// WebhookNotifier posts the final status of a report job to a webhook
type WebhookNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookNotifier creates a new webhook notifier. An empty URL disables notifications.
func NewWebhookNotifier(webhookURL string, timeout time.Duration) *WebhookNotifier {
	if webhookURL == "" {
		logger.Warn("Report webhook URL not configured, report notifications will be disabled")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NotifyReport sends the status document of a terminal report
func (n *WebhookNotifier) NotifyReport(ctx context.Context, status *model.StatusResponse) error {
	if n.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal report notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send report notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code: %d", resp.StatusCode)
	}

	logger.InfoCtx(ctx, "report notification sent, status: %s", status.Status)
	return nil
}
