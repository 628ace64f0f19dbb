package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// Email is one outgoing message.
type Email struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Email) (string, error)
}

// ResendSender sends email through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, msg Email) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("resend send failed: %w", err)
	}
	return sent.Id, nil
}

// NoopSender logs instead of sending. Used when no API key is configured.
type NoopSender struct{}

func (NoopSender) Send(_ context.Context, msg Email) (string, error) {
	slog.Info("noop_email_send", "to", msg.To, "subject", msg.Subject)
	return fmt.Sprintf("noop-%d", time.Now().UnixNano()), nil
}
