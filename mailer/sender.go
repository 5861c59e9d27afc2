package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Message is one outgoing email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Resend sends through the Resend API.
type Resend struct {
	client *resend.Client
}

// NewResend returns a Resend sender authenticated with apiKey.
func NewResend(apiKey string) *Resend {
	return &Resend{client: resend.NewClient(apiKey)}
}

// Send implements Sender.
func (r *Resend) Send(ctx context.Context, msg Message) error {
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %v: %w", msg.To, err)
	}
	return nil
}

// Noop logs messages instead of sending them. It is used when no API key is
// configured.
type Noop struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (n Noop) Send(_ context.Context, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Email not sent, no provider configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
