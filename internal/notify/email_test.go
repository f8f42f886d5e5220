package notify

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/events"
)

func bookingBody(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"booking_id":  "0b6c2a1e-9f10-4b8e-8a42-30f0cda51111",
		"guest_email": "maria@example.com",
		"guest_name":  "Maria",
		"villa_name":  "Villa Azure",
		"check_in":    "2026-08-10",
		"check_out":   "2026-08-17",
	})
	require.NoError(t, err)
	return b
}

func TestNotifySendsConfirmationEmail(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := NewEmailNotifier(outbox, zerolog.New(io.Discard))

	err := n.Notify(context.Background(), events.TopicBookingConfirmed, "agg", bookingBody(t))
	require.NoError(t, err)
	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "maria@example.com", outbox.Outbox[0].To)
	require.Equal(t, "Your booking is confirmed", outbox.Outbox[0].Subject)
	require.Contains(t, outbox.Outbox[0].HTML, "Villa Azure")
}

func TestNotifySkipsUnknownTopic(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := NewEmailNotifier(outbox, zerolog.New(io.Discard))

	err := n.Notify(context.Background(), "villa.updated", "agg", bookingBody(t))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}

func TestNotifySkipsMissingEmail(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	n := NewEmailNotifier(outbox, zerolog.New(io.Discard))

	err := n.Notify(context.Background(), events.TopicBookingCreated, "agg", []byte(`{"guest_name":"Maria"}`))
	require.NoError(t, err)
	require.Empty(t, outbox.Outbox)
}
