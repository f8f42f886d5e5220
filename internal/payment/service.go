package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/booking"
	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/obs"
	"github.com/amarastays/backend-villa/internal/store"
)

// Querier is the subset of the store the payment service depends on.
type Querier interface {
	GetBooking(ctx context.Context, id pgtype.UUID) (store.Booking, error)
}

// Service creates payment intents for a guest's own pending bookings.
type Service struct {
	Q        Querier
	Provider Provider
	Logger   zerolog.Logger
}

// CreateIntent builds a provider intent for the booking's committed
// total. Only the owning guest may pay, and only while PENDING.
func (s *Service) CreateIntent(ctx context.Context, guestID, bookingID pgtype.UUID) (Intent, error) {
	b, err := s.Q.GetBooking(ctx, bookingID)
	if err != nil {
		return Intent{}, err
	}
	if !store.UUIDEqual(b.GuestID, guestID) {
		return Intent{}, store.ErrNotFound
	}
	if b.Status != booking.StatusPending {
		countIntent(s.Provider.Name(), "wrong_status")
		return Intent{}, common.NewAppError("BOOKING_NOT_PAYABLE",
			fmt.Sprintf("booking in status %s cannot be paid", b.Status),
			http.StatusConflict, nil)
	}

	intent, err := s.Provider.CreateIntent(ctx, IntentRequest{
		BookingID: store.UUIDString(b.ID),
		Amount:    b.Total,
		Currency:  b.Currency,
		Email:     b.GuestEmail,
	})
	if err != nil {
		countIntent(s.Provider.Name(), "error")
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	countIntent(s.Provider.Name(), "created")
	s.Logger.Info().Str("booking_id", store.UUIDString(b.ID)).
		Str("intent_id", intent.ID).Int64("amount", intent.Amount).Msg("payment intent created")
	return intent, nil
}

func countIntent(provider, result string) {
	if obs.PaymentIntentTotal != nil {
		obs.PaymentIntentTotal.WithLabelValues(provider, result).Inc()
	}
}
