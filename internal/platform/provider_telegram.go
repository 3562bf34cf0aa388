package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TelegramProvider sends events via the Telegram Bot API.
type TelegramProvider struct {
	botToken string
	chatID   string
}

func NewTelegramProvider(botToken, chatID string) *TelegramProvider {
	return &TelegramProvider{botToken: botToken, chatID: chatID}
}

func (p *TelegramProvider) Name() string { return "telegram" }

func (p *TelegramProvider) Send(event Event) error {
	var labelLines []string
	for k, v := range event.Labels {
		labelLines = append(labelLines, fmt.Sprintf("  %s: %s", k, v))
	}
	message := fmt.Sprintf(
		"*%s* \\[%s\\]\n\nSource: %s\nTime: %s\nMessage: %s",
		event.Title,
		strings.ToUpper(string(event.Severity)),
		event.Source,
		event.Time.Format("2006-01-02 15:04:05"),
		event.Message,
	)
	if len(labelLines) > 0 {
		message += "\n\nLabels:\n" + strings.Join(labelLines, "\n")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"chat_id":    p.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", p.botToken)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	return nil
}
