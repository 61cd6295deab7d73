package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hakim/reconx/internal/models"
)

// NotifyConfig configures where to send completion notifications.
type NotifyConfig struct {
	WebhookURL string // if empty, no notifications
	Client     *http.Client
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	models.RunMeta
	StageErrors map[string]map[models.StageKind]string `json:"stage_errors,omitempty"`
}

// SendCompletion posts a JSON summary of the run to the webhook URL.
// Returns nil if WebhookURL is empty (no-op). Callers should treat errors as
// warnings.
func (n *NotifyConfig) SendCompletion(ctx context.Context, summary *RunSummary, reports []string) error {
	if n == nil || n.WebhookURL == "" || summary == nil {
		return nil
	}

	meta := summary.Run.Meta(summary.Status, summary.Elapsed)
	meta.Reports = reports
	payload := completionPayload{RunMeta: meta}
	if len(summary.Run.StageErrors) > 0 {
		payload.StageErrors = summary.Run.StageErrors
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
