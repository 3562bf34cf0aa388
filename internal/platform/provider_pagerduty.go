package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PagerDutyProvider triggers an incident via the Events API v2. No pack
// repository bundles the official pagerduty SDK, so this reuses the same
// plain HTTP POST plumbing as WebhookProvider against PagerDuty's
// documented JSON shape.
type PagerDutyProvider struct {
	routingKey string
	endpoint   string
	httpClient *http.Client
}

// NewPagerDutyProvider creates a provider. endpoint defaults to
// PagerDuty's public Events API v2 URL when empty.
func NewPagerDutyProvider(routingKey, endpoint string) *PagerDutyProvider {
	if endpoint == "" {
		endpoint = "https://events.pagerduty.com/v2/enqueue"
	}
	return &PagerDutyProvider{
		routingKey: routingKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *PagerDutyProvider) Name() string { return "pagerduty" }

func (p *PagerDutyProvider) Send(event Event) error {
	payload := map[string]interface{}{
		"routing_key":  p.routingKey,
		"event_action": "trigger",
		"dedup_key":    event.RuleID,
		"payload": map[string]interface{}{
			"summary":  event.Title + ": " + event.Message,
			"source":   event.Source,
			"severity": severityPriority(event.Severity),
			"custom_details": event.Labels,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal pagerduty payload: %w", err)
	}

	resp, err := p.httpClient.Post(p.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post pagerduty event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("pagerduty returned status %d", resp.StatusCode)
	}
	return nil
}
