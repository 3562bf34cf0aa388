package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookProvider posts a generic JSON payload to an arbitrary endpoint,
// the same http.Post pattern DiscordProvider uses generalized to any URL
// rather than one shaped specifically for Discord's embed format.
type WebhookProvider struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewWebhookProvider creates a webhook provider identified by name (used
// as the notification-history channel id and for rate-limit bucketing).
func NewWebhookProvider(name, url string) *WebhookProvider {
	return &WebhookProvider{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookProvider) Name() string { return p.name }

func (p *WebhookProvider) Send(event Event) error {
	payload := map[string]interface{}{
		"source":   event.Source,
		"rule_id":  event.RuleID,
		"severity": event.Severity,
		"title":    event.Title,
		"message":  event.Message,
		"labels":   event.Labels,
		"time":     event.Time.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	resp, err := p.httpClient.Post(p.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s returned status %d", p.name, resp.StatusCode)
	}
	return nil
}
