package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
)

// Notifier fans out submission events to approvers. Delivery is best
// effort; a failed notification never fails the submission that caused it.
type Notifier interface {
	RequestSubmitted(ctx context.Context, req domain.DomainRequest) error
}

// LogNotifier writes submission events to the log. The default when no
// webhook is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) RequestSubmitted(_ context.Context, req domain.DomainRequest) error {
	n.Logger.Info("domain request submitted",
		"request_id", req.ID,
		"domain", req.Domain,
		"group_id", req.GroupID,
		"priority", string(req.Priority),
	)
	return nil
}

// WebhookNotifier POSTs submission events as JSON to a configured URL.
type WebhookNotifier struct {
	URL        string
	HTTPClient *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (n *WebhookNotifier) RequestSubmitted(ctx context.Context, req domain.DomainRequest) error {
	payload, err := json.Marshal(map[string]any{
		"event":   "request.submitted",
		"request": req,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
