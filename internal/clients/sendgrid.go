package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrMailNotConfigured = errors.New("email service not configured")

type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type MailerConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// BaseURL overrides the SendGrid API host.
	BaseURL string
}

// Mailer delivers email through SendGrid. A Mailer without an API key
// refuses every send with ErrMailNotConfigured.
type Mailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewMailer(cfg MailerConfig) *Mailer {
	name := cfg.FromName
	if name == "" {
		name = "ThePrintFarm"
	}
	m := &Mailer{from: mail.NewEmail(name, cfg.FromEmail)}
	if cfg.APIKey == "" {
		return m
	}
	m.client = sendgrid.NewSendClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		m.client.Request.BaseURL = cfg.BaseURL + "/v3/mail/send"
	}
	return m
}

func (m *Mailer) Configured() bool {
	return m != nil && m.client != nil
}

func (m *Mailer) Send(ctx context.Context, email Email) error {
	if !m.Configured() {
		return ErrMailNotConfigured
	}
	message := mail.NewSingleEmail(m.from, email.Subject, mail.NewEmail("", email.To), email.Text, email.HTML)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
