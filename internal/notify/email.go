// Package notify turns domain events into guest-facing messages.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/events"
)

// bookingPayload carries the fields every booking event includes.
type bookingPayload struct {
	BookingID  string `json:"booking_id"`
	GuestEmail string `json:"guest_email"`
	GuestName  string `json:"guest_name"`
	VillaName  string `json:"villa_name"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
}

// EmailNotifier sends a transactional email for each booking event.
type EmailNotifier struct {
	sender common.EmailSender
	logger zerolog.Logger
}

func NewEmailNotifier(sender common.EmailSender, logger zerolog.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, logger: logger}
}

// Notify implements events.Notifier. Topics without a guest-facing
// message are ignored.
func (n *EmailNotifier) Notify(_ context.Context, topic string, aggregateID string, payload []byte) error {
	var p bookingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", topic, err)
	}
	if p.GuestEmail == "" {
		n.logger.Debug().Str("topic", topic).Str("aggregate_id", aggregateID).Msg("event has no guest email, skipping")
		return nil
	}

	subject, body, ok := renderBookingEmail(topic, p)
	if !ok {
		return nil
	}
	if err := n.sender.Send(p.GuestEmail, subject, body); err != nil {
		return fmt.Errorf("send %s email: %w", topic, err)
	}
	return nil
}

func renderBookingEmail(topic string, p bookingPayload) (subject, body string, ok bool) {
	stay := fmt.Sprintf("%s, %s to %s", p.VillaName, p.CheckIn, p.CheckOut)
	switch topic {
	case events.TopicBookingCreated:
		return "We received your booking request",
			fmt.Sprintf("<p>Hi %s,</p><p>Your booking request for %s is pending confirmation. We will be in touch shortly.</p>", p.GuestName, stay), true
	case events.TopicBookingConfirmed:
		return "Your booking is confirmed",
			fmt.Sprintf("<p>Hi %s,</p><p>Great news: your stay at %s is confirmed. Reference %s.</p>", p.GuestName, stay, p.BookingID), true
	case events.TopicBookingCancelled:
		return "Your booking was cancelled",
			fmt.Sprintf("<p>Hi %s,</p><p>Your booking for %s has been cancelled. Reference %s.</p>", p.GuestName, stay, p.BookingID), true
	case events.TopicBookingCheckedIn:
		return "Welcome, enjoy your stay",
			fmt.Sprintf("<p>Hi %s,</p><p>You are checked in at %s. Have a wonderful time.</p>", p.GuestName, p.VillaName), true
	case events.TopicBookingCompleted:
		return "Thanks for staying with us",
			fmt.Sprintf("<p>Hi %s,</p><p>We hope you enjoyed %s. We would love to host you again.</p>", p.GuestName, p.VillaName), true
	default:
		return "", "", false
	}
}
