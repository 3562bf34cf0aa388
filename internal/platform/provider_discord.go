package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// DiscordProvider sends events to a Discord channel via incoming webhook.
type DiscordProvider struct {
	webhookURL string
}

func NewDiscordProvider(webhookURL string) *DiscordProvider {
	return &DiscordProvider{webhookURL: webhookURL}
}

func (p *DiscordProvider) Name() string { return "discord" }

func (p *DiscordProvider) Send(event Event) error {
	fields := []map[string]interface{}{
		{"name": "Source", "value": event.Source, "inline": true},
		{"name": "Severity", "value": string(event.Severity), "inline": true},
	}
	for k, v := range event.Labels {
		fields = append(fields, map[string]interface{}{"name": k, "value": v, "inline": true})
	}

	embed := map[string]interface{}{
		"username": "controlplane",
		"embeds": []map[string]interface{}{
			{
				"title":       event.Title,
				"description": event.Message,
				"color":       severityColor(event.Severity),
				"timestamp":   event.Time.Format("2006-01-02T15:04:05Z07:00"),
				"fields":      fields,
			},
		},
	}

	payload, err := json.Marshal(embed)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	resp, err := http.Post(p.webhookURL, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
