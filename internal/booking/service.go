package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/events"
	"github.com/amarastays/backend-villa/internal/obs"
	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/store"
)

// Querier is the subset of the store the booking service depends on.
type Querier interface {
	GetBasket(ctx context.Context, id pgtype.UUID) (store.Basket, error)
	ListBasketItems(ctx context.Context, basketID pgtype.UUID) ([]store.BasketItem, error)
	ClearBasketItems(ctx context.Context, basketID pgtype.UUID) error
	SetBasketPromo(ctx context.Context, id pgtype.UUID, code pgtype.Text, discount int64) error
	CreateBooking(ctx context.Context, arg store.CreateBookingParams) (store.Booking, error)
	GetBooking(ctx context.Context, id pgtype.UUID) (store.Booking, error)
	ListBookingsByGuest(ctx context.Context, guestID pgtype.UUID, limit, offset int32) ([]store.Booking, error)
	UpdateBookingStatus(ctx context.Context, id pgtype.UUID, status string) (store.Booking, error)
	CountOverlappingBookings(ctx context.Context, villaID pgtype.UUID, checkIn, checkOut time.Time) (int64, error)
	ListConfirmedArrivals(ctx context.Context, from, to time.Time) ([]store.Booking, error)
	GetVillaByID(ctx context.Context, id pgtype.UUID) (store.Villa, error)
}

// Locker serializes booking creation per villa and date range.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Publisher emits booking lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, topic string, aggregateID pgtype.UUID, payload any) error
}

// Scheduler enqueues background tasks. *asynq.Client satisfies it.
type Scheduler interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service owns booking creation and the status state machine.
type Service struct {
	Q           Querier
	Locks       Locker
	Bus         Publisher
	Tasks       Scheduler
	Email       common.EmailSender
	Logger      zerolog.Logger
	CleaningFee pricing.Money
	TaxBps      int
	Currency    string
	PendingTTL  time.Duration
	Now         func() time.Time
}

var (
	errBasketEmpty = common.NewAppError("BASKET_EMPTY", "basket has no bookable stays", http.StatusUnprocessableEntity, nil)
	errUnavailable = common.NewAppError("DATES_UNAVAILABLE", "the villa is already booked for those dates", http.StatusConflict, nil)
)

// CreateParams is the guest input required to confirm a basket.
type CreateParams struct {
	BasketID       pgtype.UUID
	GuestID        pgtype.UUID
	GuestFirstName string
	GuestEmail     string
	TermsAccepted  bool
}

// CreateFromBasket confirms every bookable stay in the basket as its own
// PENDING booking carrying a committed price snapshot. The basket's
// applied discount is apportioned across the bookings by subtotal, with
// rounding remainder on the first.
func (s *Service) CreateFromBasket(ctx context.Context, arg CreateParams) ([]store.Booking, error) {
	if strings.TrimSpace(arg.GuestFirstName) == "" || strings.TrimSpace(arg.GuestEmail) == "" {
		return nil, common.NewAppError("GUEST_DETAILS_REQUIRED", "guest first name and email are required", http.StatusUnprocessableEntity, nil)
	}
	if !arg.TermsAccepted {
		return nil, common.NewAppError("TERMS_NOT_ACCEPTED", "terms and conditions must be accepted", http.StatusUnprocessableEntity, nil)
	}

	basket, err := s.Q.GetBasket(ctx, arg.BasketID)
	if err != nil {
		return nil, err
	}
	items, err := s.Q.ListBasketItems(ctx, basket.ID)
	if err != nil {
		return nil, fmt.Errorf("list basket items: %w", err)
	}

	type pricedItem struct {
		item store.BasketItem
		stay pricing.Stay
	}
	var priced []pricedItem
	var subtotal pricing.Money
	for _, item := range items {
		stay := pricing.ComputeStay(item.BaseRate, item.CheckIn.Time, item.CheckOut.Time)
		if stay.Nights == 0 {
			continue
		}
		priced = append(priced, pricedItem{item: item, stay: stay})
		subtotal += stay.Total
	}
	if len(priced) == 0 {
		countBooking("empty_basket")
		return nil, errBasketEmpty
	}

	discounts := apportionDiscount(basket.AppliedDiscount, priced, func(p pricedItem) pricing.Money { return p.stay.Total })

	bookings := make([]store.Booking, 0, len(priced))
	for i, p := range priced {
		name := lockName(p.item)
		err := s.Locks.WithLock(ctx, name, func(ctx context.Context) error {
			overlapping, err := s.Q.CountOverlappingBookings(ctx, p.item.VillaID, p.item.CheckIn.Time, p.item.CheckOut.Time)
			if err != nil {
				return fmt.Errorf("count overlaps: %w", err)
			}
			if overlapping > 0 {
				return errUnavailable
			}

			tax := p.stay.Total * pricing.Money(s.TaxBps) / 10000
			total := p.stay.Total + s.CleaningFee + tax - discounts[i]
			if total < 0 {
				total = 0
			}
			b, err := s.Q.CreateBooking(ctx, store.CreateBookingParams{
				VillaID:        p.item.VillaID,
				GuestID:        arg.GuestID,
				GuestFirstName: strings.TrimSpace(arg.GuestFirstName),
				GuestEmail:     strings.TrimSpace(arg.GuestEmail),
				CheckIn:        p.item.CheckIn.Time,
				CheckOut:       p.item.CheckOut.Time,
				Nights:         int32(p.stay.Nights),
				Subtotal:       p.stay.Total,
				CleaningFee:    s.CleaningFee,
				Tax:            tax,
				Discount:       discounts[i],
				Total:          total,
				Currency:       s.Currency,
				Status:         StatusPending,
			})
			if err != nil {
				return fmt.Errorf("create booking: %w", err)
			}
			bookings = append(bookings, b)
			return nil
		})
		if err != nil {
			countBooking(bookingFailureLabel(err))
			// Earlier bookings of this basket stay PENDING; the expiry
			// task cancels them if the guest does not retry in time.
			return nil, err
		}
	}

	if err := s.Q.ClearBasketItems(ctx, basket.ID); err != nil {
		s.Logger.Error().Err(err).Str("basket_id", store.UUIDString(basket.ID)).Msg("clear basket after checkout")
	}
	if basket.AppliedPromoCode.Valid {
		if err := s.Q.SetBasketPromo(ctx, basket.ID, pgtype.Text{}, 0); err != nil {
			s.Logger.Error().Err(err).Str("basket_id", store.UUIDString(basket.ID)).Msg("clear promo after checkout")
		}
	}

	for _, b := range bookings {
		s.publish(ctx, events.TopicBookingCreated, b)
		s.scheduleExpiry(b)
	}
	countBooking("created")
	return bookings, nil
}

func bookingFailureLabel(err error) string {
	if errors.Is(err, errUnavailable) {
		return "conflict"
	}
	return "error"
}

func lockName(item store.BasketItem) string {
	return fmt.Sprintf("booking:%s:%s:%s",
		store.UUIDString(item.VillaID),
		item.CheckIn.Time.Format("2006-01-02"),
		item.CheckOut.Time.Format("2006-01-02"))
}

// apportionDiscount splits the basket discount proportionally by weight.
// The rounding remainder lands on the first share so the parts always
// sum to the whole.
func apportionDiscount[T any](discount pricing.Money, items []T, weight func(T) pricing.Money) []pricing.Money {
	shares := make([]pricing.Money, len(items))
	if discount <= 0 || len(items) == 0 {
		return shares
	}
	var totalWeight pricing.Money
	for _, it := range items {
		totalWeight += weight(it)
	}
	if totalWeight <= 0 {
		shares[0] = discount
		return shares
	}
	var assigned pricing.Money
	for i, it := range items {
		shares[i] = discount * weight(it) / totalWeight
		assigned += shares[i]
	}
	shares[0] += discount - assigned
	return shares
}

// Get loads a booking and enforces that it belongs to the guest.
func (s *Service) Get(ctx context.Context, guestID, bookingID pgtype.UUID) (store.Booking, error) {
	b, err := s.Q.GetBooking(ctx, bookingID)
	if err != nil {
		return store.Booking{}, err
	}
	if !store.UUIDEqual(b.GuestID, guestID) {
		return store.Booking{}, store.ErrNotFound
	}
	return b, nil
}

// List returns the guest's bookings, newest first.
func (s *Service) List(ctx context.Context, guestID pgtype.UUID, page, perPage int) ([]store.Booking, error) {
	return s.Q.ListBookingsByGuest(ctx, guestID, int32(perPage), int32((page-1)*perPage))
}

// Cancel moves a guest's own booking to CANCELLED when the edge exists.
func (s *Service) Cancel(ctx context.Context, guestID, bookingID pgtype.UUID) (store.Booking, error) {
	b, err := s.Get(ctx, guestID, bookingID)
	if err != nil {
		return store.Booking{}, err
	}
	return s.transition(ctx, b, StatusCancelled)
}

// AdminTransition applies an arbitrary valid edge from the back office.
func (s *Service) AdminTransition(ctx context.Context, bookingID pgtype.UUID, target string) (store.Booking, error) {
	if !ValidStatus(target) {
		return store.Booking{}, common.NewAppError("INVALID_STATUS", "unknown booking status", http.StatusBadRequest, nil)
	}
	b, err := s.Q.GetBooking(ctx, bookingID)
	if err != nil {
		return store.Booking{}, err
	}
	return s.transition(ctx, b, target)
}

// transition validates the edge, persists it, records the metric and
// emits the matching lifecycle event.
func (s *Service) transition(ctx context.Context, b store.Booking, target string) (store.Booking, error) {
	if !CanTransition(b.Status, target) {
		countTransition(target, "rejected")
		return store.Booking{}, common.NewAppError("INVALID_TRANSITION",
			fmt.Sprintf("cannot move booking from %s to %s", b.Status, target),
			http.StatusConflict, nil)
	}
	updated, err := s.Q.UpdateBookingStatus(ctx, b.ID, target)
	if err != nil {
		countTransition(target, "error")
		return store.Booking{}, fmt.Errorf("update booking status: %w", err)
	}
	countTransition(target, "ok")

	if topic, ok := topicForStatus(target); ok {
		s.publish(ctx, topic, updated)
	}
	return updated, nil
}

func topicForStatus(status string) (string, bool) {
	switch status {
	case StatusConfirmed:
		return events.TopicBookingConfirmed, true
	case StatusCancelled:
		return events.TopicBookingCancelled, true
	case StatusCheckedIn:
		return events.TopicBookingCheckedIn, true
	case StatusCompleted:
		return events.TopicBookingCompleted, true
	}
	return "", false
}

func (s *Service) publish(ctx context.Context, topic string, b store.Booking) {
	if s.Bus == nil {
		return
	}
	villaName := ""
	if v, err := s.Q.GetVillaByID(ctx, b.VillaID); err == nil {
		villaName = v.Name
	}
	payload := map[string]string{
		"booking_id":  store.UUIDString(b.ID),
		"guest_email": b.GuestEmail,
		"guest_name":  b.GuestFirstName,
		"villa_name":  villaName,
		"check_in":    b.CheckIn.Time.Format("2006-01-02"),
		"check_out":   b.CheckOut.Time.Format("2006-01-02"),
		"status":      b.Status,
	}
	if err := s.Bus.Publish(ctx, topic, b.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("booking_id", store.UUIDString(b.ID)).Msg("publish booking event")
	}
}

func (s *Service) scheduleExpiry(b store.Booking) {
	if s.Tasks == nil {
		return
	}
	task, err := NewExpireTask(store.UUIDString(b.ID))
	if err != nil {
		s.Logger.Error().Err(err).Msg("build expire task")
		return
	}
	if _, err := s.Tasks.Enqueue(task, asynq.ProcessIn(s.PendingTTL)); err != nil {
		s.Logger.Error().Err(err).Str("booking_id", store.UUIDString(b.ID)).Msg("enqueue expire task")
	}
}

func countBooking(result string) {
	if obs.BookingsTotal != nil {
		obs.BookingsTotal.WithLabelValues(result).Inc()
	}
}

func countTransition(status, result string) {
	if obs.BookingTransitionsTotal != nil {
		obs.BookingTransitionsTotal.WithLabelValues(status, result).Inc()
	}
}
