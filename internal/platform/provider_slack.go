package platform

import (
	"fmt"

	"github.com/slack-go/slack"
)

// SlackProvider posts events to a Slack channel via slack-go/slack, either
// through an incoming webhook or a bot token, building a severity-colored
// attachment per event the same way DiscordProvider builds its embed.
type SlackProvider struct {
	webhookURL string
	client     *slack.Client
	channel    string
}

// NewSlackProvider creates a Slack provider. If botToken is non-empty it
// posts via the Slack Web API (chat.PostMessage); otherwise it posts to
// webhookURL as an incoming webhook.
func NewSlackProvider(webhookURL, botToken, channel string) *SlackProvider {
	p := &SlackProvider{webhookURL: webhookURL, channel: channel}
	if botToken != "" {
		p.client = slack.New(botToken)
	}
	return p
}

func (p *SlackProvider) Name() string { return "slack" }

func (p *SlackProvider) Send(event Event) error {
	attachment := slack.Attachment{
		Color:     fmt.Sprintf("#%06X", severityColor(event.Severity)),
		Title:     event.Title,
		Text:      event.Message,
		Ts:        slack.JSONTime(event.Time.Unix()),
		Footer:    event.Source,
		Fallback:  event.Title + ": " + event.Message,
	}
	for k, v := range event.Labels {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: k, Value: v, Short: true,
		})
	}

	if p.client != nil {
		_, _, err := p.client.PostMessage(p.channel, slack.MsgOptionAttachments(attachment))
		if err != nil {
			return fmt.Errorf("slack post message: %w", err)
		}
		return nil
	}

	if p.webhookURL == "" {
		return fmt.Errorf("slack provider has neither bot token nor webhook url configured")
	}
	msg := &slack.WebhookMessage{
		Attachments: []slack.Attachment{attachment},
	}
	if err := slack.PostWebhook(p.webhookURL, msg); err != nil {
		return fmt.Errorf("slack post webhook: %w", err)
	}
	return nil
}
