package platform

import (
	"fmt"
	"net/smtp"
	"strings"
)

// EmailProvider sends plain-text mail via an SMTP relay. No pack repository
// carries a third-party mail client, so this uses the standard library's
// net/smtp directly — a documented stdlib exception, not an oversight.
type EmailProvider struct {
	host       string
	port       int
	username   string
	password   string
	recipients []string
}

// NewEmailProvider creates an SMTP-backed provider.
func NewEmailProvider(host string, port int, username, password string, recipients []string) *EmailProvider {
	return &EmailProvider{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		recipients: recipients,
	}
}

func (p *EmailProvider) Name() string { return "email" }

func (p *EmailProvider) Send(event Event) error {
	if len(p.recipients) == 0 {
		return fmt.Errorf("email provider has no recipients configured")
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(event.Severity)), event.Title)
	body := fmt.Sprintf("Subject: %s\r\nFrom: %s\r\nTo: %s\r\n\r\n%s\r\n",
		subject, p.username, strings.Join(p.recipients, ","), event.Message)

	if err := smtp.SendMail(addr, auth, p.username, p.recipients, []byte(body)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
