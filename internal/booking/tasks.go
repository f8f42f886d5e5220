package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/amarastays/backend-villa/internal/store"
)

// Task type names routed through asynq.
const (
	TypeBookingExpire   = "booking:expire"
	TypeBookingReminder = "booking:reminder"
)

type expirePayload struct {
	BookingID string `json:"booking_id"`
}

type reminderPayload struct {
	BookingID string `json:"booking_id"`
}

// NewExpireTask schedules the pending-booking timeout for one booking.
func NewExpireTask(bookingID string) (*asynq.Task, error) {
	payload, err := json.Marshal(expirePayload{BookingID: bookingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBookingExpire, payload, asynq.MaxRetry(3)), nil
}

// NewReminderTask schedules a pre-arrival reminder for one booking.
func NewReminderTask(bookingID string) (*asynq.Task, error) {
	payload, err := json.Marshal(reminderPayload{BookingID: bookingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBookingReminder, payload, asynq.MaxRetry(3)), nil
}

// HandleExpireTask cancels a booking that is still PENDING when its
// confirmation window has elapsed. Bookings already moved on are left alone.
func (s *Service) HandleExpireTask(ctx context.Context, t *asynq.Task) error {
	var p expirePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode expire payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := store.ParseUUID(p.BookingID)
	if err != nil {
		return fmt.Errorf("bad booking id %q: %v: %w", p.BookingID, err, asynq.SkipRetry)
	}

	b, err := s.Q.GetBooking(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != StatusPending {
		return nil
	}

	if _, err := s.transition(ctx, b, StatusCancelled); err != nil {
		return err
	}
	s.Logger.Info().Str("booking_id", p.BookingID).Msg("pending booking expired")
	return nil
}

// HandleReminderTask sends the pre-arrival reminder for a booking that
// is still confirmed.
func (s *Service) HandleReminderTask(ctx context.Context, t *asynq.Task) error {
	var p reminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode reminder payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := store.ParseUUID(p.BookingID)
	if err != nil {
		return fmt.Errorf("bad booking id %q: %v: %w", p.BookingID, err, asynq.SkipRetry)
	}

	b, err := s.Q.GetBooking(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if b.Status != StatusConfirmed {
		return nil
	}

	if s.Email != nil {
		subject := "Your stay is coming up"
		body := fmt.Sprintf("<p>Hi %s,</p><p>Your check-in on %s is almost here. We look forward to welcoming you.</p>",
			b.GuestFirstName, b.CheckIn.Time.Format("2006-01-02"))
		if err := s.Email.Send(b.GuestEmail, subject, body); err != nil {
			return fmt.Errorf("send reminder: %w", err)
		}
	}
	return nil
}

// ScheduleReminders enqueues reminder tasks for confirmed arrivals
// inside the lead window. Invoked periodically by the worker.
func (s *Service) ScheduleReminders(ctx context.Context, leadDays int) error {
	now := s.Now()
	from := now
	to := now.AddDate(0, 0, leadDays+1)
	arrivals, err := s.Q.ListConfirmedArrivals(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list confirmed arrivals: %w", err)
	}
	for _, b := range arrivals {
		task, err := NewReminderTask(store.UUIDString(b.ID))
		if err != nil {
			return err
		}
		// TaskID makes the periodic scan idempotent per booking and day.
		opts := []asynq.Option{
			asynq.TaskID(fmt.Sprintf("reminder:%s:%s", store.UUIDString(b.ID), now.Format("2006-01-02"))),
			asynq.ProcessIn(time.Minute),
		}
		if _, err := s.Tasks.Enqueue(task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
			return fmt.Errorf("enqueue reminder: %w", err)
		}
	}
	return nil
}
