// Package notify tells the outside world about new reservations: a domain
// event on the message broker and a confirmation email to the member.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"gym-booking-service/internal/store"
)

// Notifier fans a created reservation out to the broker and to email.
// Failures are logged and never reach the caller.
type Notifier struct {
	Events  Publisher
	Mail    Sender
	Timeout time.Duration
	Logger  *slog.Logger
}

func (n *Notifier) ReservationCreated(ctx context.Context, r store.Reservation) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), n.Timeout)
		defer cancel()
	}

	if n.Events != nil {
		ev := ReservationCreated{
			ReservationID: r.ID,
			UserID:        r.UserID,
			DisplayName:   r.DisplayName,
			Email:         r.Email,
			Date:          string(r.Date),
			Slot:          r.Slot,
			CreatedAt:     r.CreatedAt,
		}
		if err := n.Events.Publish(ctx, RoutingKeyReservationCreated, ev); err != nil {
			logger.Error("failed to publish reservation event", "id", r.ID, "error", err)
		}
	}

	if n.Mail != nil && r.Email != nil && *r.Email != "" {
		id, err := n.Mail.Send(ctx, ConfirmationEmail(r))
		if err != nil {
			logger.Error("failed to send confirmation", "id", r.ID, "error", err)
			return
		}
		logger.Info("confirmation sent", "id", r.ID, "message_id", id)
	}
}

// ConfirmationEmail renders the booking confirmation for r.
func ConfirmationEmail(r store.Reservation) Email {
	to := ""
	if r.Email != nil {
		to = *r.Email
	}
	return Email{
		To:      []string{to},
		Subject: fmt.Sprintf("Reservation confirmed for %s", r.Date),
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>Your slot <strong>%s</strong> on <strong>%s</strong> is booked.</p>",
			html.EscapeString(r.DisplayName), html.EscapeString(r.Slot), html.EscapeString(string(r.Date))),
	}
}
