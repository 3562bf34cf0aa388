package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SMSProvider posts a short text message to an SMS gateway webhook. Like
// PagerDuty, no pack repository carries a carrier-specific SDK, so this is
// webhook-shaped and reuses the HTTP plumbing every other provider uses.
type SMSProvider struct {
	gatewayURL string
	recipients []string
	httpClient *http.Client
}

// NewSMSProvider creates a gateway-backed SMS provider.
func NewSMSProvider(gatewayURL string, recipients []string) *SMSProvider {
	return &SMSProvider{
		gatewayURL: gatewayURL,
		recipients: recipients,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *SMSProvider) Name() string { return "sms" }

func (p *SMSProvider) Send(event Event) error {
	if len(p.recipients) == 0 {
		return fmt.Errorf("sms provider has no recipients configured")
	}

	text := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(event.Severity)), event.Title, event.Message)
	if len(text) > 160 {
		text = text[:157] + "..."
	}

	payload := map[string]interface{}{
		"to":   p.recipients,
		"body": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	resp, err := p.httpClient.Post(p.gatewayURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}
