// File: internal/infra/notify/webhook_notifier.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts human-readable events to an operational webhook
// channel (Slack-compatible payload plus structured fields).
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, msg adapter.Notification) error {
	if n.url == "" {
		return errors.New("notify webhook url empty")
	}
	body := map[string]any{
		"text":     renderText(msg),
		"kind":     string(msg.Kind),
		"user_id":  msg.UserID,
		"tier":     string(msg.Tier),
		"cycle":    string(msg.Cycle),
		"event_id": msg.ID,
		"occurred": msg.OccurredAt.UTC().Format(time.RFC3339),
	}
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify http %d", resp.StatusCode)
	}
	return nil
}

func renderText(msg adapter.Notification) string {
	switch msg.Kind {
	case adapter.NotifySubscriptionCreated:
		return fmt.Sprintf("New %s subscription (%s) for user %s", msg.Tier, msg.Cycle, msg.UserID)
	case adapter.NotifySubscriptionCancelled:
		if msg.Tier != model.TierFree {
			return fmt.Sprintf("Subscription cancelled for user %s (was %s)", msg.UserID, msg.Tier)
		}
		return fmt.Sprintf("Subscription cancelled for user %s", msg.UserID)
	}
	return fmt.Sprintf("Billing event %s for user %s", msg.Kind, msg.UserID)
}
