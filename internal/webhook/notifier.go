// Package webhook delivers contract lifecycle events to organization
// endpoints.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/planfold/planfold/server/internal/model"
)

// Notifier POSTs contract events to an organization's webhook URL.
type Notifier struct {
	client *resty.Client
}

// NewNotifier builds a notifier with the given per-delivery timeout.
func NewNotifier(timeout time.Duration) *Notifier {
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &Notifier{client: c}
}

// contractEvent is the payload delivered to the endpoint.
type contractEvent struct {
	Event     string          `json:"event"`
	OrgID     string          `json:"orgId"`
	Contract  *model.Contract `json:"contract"`
	EmittedAt time.Time       `json:"emittedAt"`
}

// NotifyContract delivers one event. Organizations without a webhook URL are
// skipped silently. Any non-2xx response is an error so the caller can log it.
func (n *Notifier) NotifyContract(ctx context.Context, org *model.Organization, event string, c *model.Contract) error {
	if org.WebhookURL == nil || *org.WebhookURL == "" {
		return nil
	}

	body := contractEvent{
		Event:     event,
		OrgID:     org.OrgID,
		Contract:  c,
		EmittedAt: time.Now().UTC(),
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(&body).
		Post(*org.WebhookURL)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
