package booking

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/events"
	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/store"
)

type stubQuerier struct {
	baskets  map[string]store.Basket
	items    map[string][]store.BasketItem
	bookings map[string]store.Booking
	villas   map[string]store.Villa
	overlaps int64
	cleared  bool
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{
		baskets:  map[string]store.Basket{},
		items:    map[string][]store.BasketItem{},
		bookings: map[string]store.Booking{},
		villas:   map[string]store.Villa{},
	}
}

func newID() pgtype.UUID {
	id, _ := store.ParseUUID(uuid.NewString())
	return id
}

func (s *stubQuerier) GetBasket(_ context.Context, id pgtype.UUID) (store.Basket, error) {
	b, ok := s.baskets[store.UUIDString(id)]
	if !ok {
		return store.Basket{}, store.ErrNotFound
	}
	return b, nil
}

func (s *stubQuerier) ListBasketItems(_ context.Context, basketID pgtype.UUID) ([]store.BasketItem, error) {
	return s.items[store.UUIDString(basketID)], nil
}

func (s *stubQuerier) ClearBasketItems(_ context.Context, basketID pgtype.UUID) error {
	delete(s.items, store.UUIDString(basketID))
	s.cleared = true
	return nil
}

func (s *stubQuerier) SetBasketPromo(_ context.Context, id pgtype.UUID, code pgtype.Text, discount int64) error {
	b := s.baskets[store.UUIDString(id)]
	b.AppliedPromoCode = code
	b.AppliedDiscount = discount
	s.baskets[store.UUIDString(id)] = b
	return nil
}

func (s *stubQuerier) CreateBooking(_ context.Context, arg store.CreateBookingParams) (store.Booking, error) {
	b := store.Booking{
		ID: newID(), VillaID: arg.VillaID, GuestID: arg.GuestID,
		GuestFirstName: arg.GuestFirstName, GuestEmail: arg.GuestEmail,
		CheckIn:  pgtype.Date{Time: arg.CheckIn, Valid: true},
		CheckOut: pgtype.Date{Time: arg.CheckOut, Valid: true},
		Nights:   arg.Nights, Subtotal: arg.Subtotal, CleaningFee: arg.CleaningFee,
		Tax: arg.Tax, Discount: arg.Discount, Total: arg.Total,
		Currency: arg.Currency, Status: arg.Status,
	}
	s.bookings[store.UUIDString(b.ID)] = b
	return b, nil
}

func (s *stubQuerier) GetBooking(_ context.Context, id pgtype.UUID) (store.Booking, error) {
	b, ok := s.bookings[store.UUIDString(id)]
	if !ok {
		return store.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (s *stubQuerier) ListBookingsByGuest(_ context.Context, guestID pgtype.UUID, _, _ int32) ([]store.Booking, error) {
	var out []store.Booking
	for _, b := range s.bookings {
		if store.UUIDEqual(b.GuestID, guestID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubQuerier) UpdateBookingStatus(_ context.Context, id pgtype.UUID, status string) (store.Booking, error) {
	b, ok := s.bookings[store.UUIDString(id)]
	if !ok {
		return store.Booking{}, store.ErrNotFound
	}
	b.Status = status
	s.bookings[store.UUIDString(id)] = b
	return b, nil
}

func (s *stubQuerier) CountOverlappingBookings(_ context.Context, _ pgtype.UUID, _, _ time.Time) (int64, error) {
	return s.overlaps, nil
}

func (s *stubQuerier) ListConfirmedArrivals(_ context.Context, _, _ time.Time) ([]store.Booking, error) {
	var out []store.Booking
	for _, b := range s.bookings {
		if b.Status == StatusConfirmed {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubQuerier) GetVillaByID(_ context.Context, id pgtype.UUID) (store.Villa, error) {
	v, ok := s.villas[store.UUIDString(id)]
	if !ok {
		return store.Villa{}, store.ErrNotFound
	}
	return v, nil
}

type passthroughLocker struct{ calls int }

func (l *passthroughLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	l.calls++
	return fn(ctx)
}

type recordingBus struct{ topics []string }

func (b *recordingBus) Publish(_ context.Context, topic string, _ pgtype.UUID, _ any) error {
	b.topics = append(b.topics, topic)
	return nil
}

type recordingScheduler struct{ tasks []*asynq.Task }

func (s *recordingScheduler) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(q *stubQuerier) (*Service, *recordingBus, *recordingScheduler, *passthroughLocker) {
	bus := &recordingBus{}
	sched := &recordingScheduler{}
	locker := &passthroughLocker{}
	svc := &Service{
		Q: q, Locks: locker, Bus: bus, Tasks: sched,
		Email:       &common.InMemoryEmail{},
		Logger:      zerolog.New(io.Discard),
		CleaningFee: 8000,
		TaxBps:      1000,
		Currency:    "USD",
		PendingTTL:  30 * time.Minute,
		Now:         func() time.Time { return date(2026, 8, 1) },
	}
	return svc, bus, sched, locker
}

func seedBasket(q *stubQuerier, discount int64) (store.Basket, store.Villa) {
	v := store.Villa{ID: newID(), Name: "Villa Azure", BaseRate: 30000, Available: true}
	q.villas[store.UUIDString(v.ID)] = v

	b := store.Basket{ID: newID(), AppliedDiscount: discount}
	if discount > 0 {
		b.AppliedPromoCode = pgtype.Text{String: "WELCOME20", Valid: true}
	}
	q.baskets[store.UUIDString(b.ID)] = b
	q.items[store.UUIDString(b.ID)] = []store.BasketItem{{
		ID: newID(), BasketID: b.ID, VillaID: v.ID, VillaName: v.Name, BaseRate: v.BaseRate,
		CheckIn:  pgtype.Date{Time: date(2026, 8, 10), Valid: true},
		CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true},
	}}
	return b, v
}

func validParams(basketID pgtype.UUID) CreateParams {
	return CreateParams{
		BasketID:       basketID,
		GuestID:        newID(),
		GuestFirstName: "Maria",
		GuestEmail:     "maria@example.com",
		TermsAccepted:  true,
	}
}

func TestCreateFromBasketSnapshotsPrices(t *testing.T) {
	q := newStubQuerier()
	svc, bus, sched, locker := newTestService(q)
	b, _ := seedBasket(q, 0)

	bookings, err := svc.CreateFromBasket(context.Background(), validParams(b.ID))
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	got := bookings[0]
	require.Equal(t, int64(264600), got.Subtotal)
	require.Equal(t, int64(8000), got.CleaningFee)
	require.Equal(t, int64(26460), got.Tax)
	require.Equal(t, int64(299060), got.Total)
	require.Equal(t, StatusPending, got.Status)

	require.True(t, q.cleared)
	require.Equal(t, []string{events.TopicBookingCreated}, bus.topics)
	require.Len(t, sched.tasks, 1)
	require.Equal(t, TypeBookingExpire, sched.tasks[0].Type())
	require.Equal(t, 1, locker.calls)
}

func TestCreateFromBasketAppliesDiscount(t *testing.T) {
	q := newStubQuerier()
	svc, _, _, _ := newTestService(q)
	b, _ := seedBasket(q, 52920)

	bookings, err := svc.CreateFromBasket(context.Background(), validParams(b.ID))
	require.NoError(t, err)
	require.Equal(t, int64(52920), bookings[0].Discount)
	require.Equal(t, int64(299060-52920), bookings[0].Total)

	// The promo snapshot is consumed with the basket.
	require.False(t, q.baskets[store.UUIDString(b.ID)].AppliedPromoCode.Valid)
}

func TestCreateFromBasketValidatesGuestDetails(t *testing.T) {
	q := newStubQuerier()
	svc, _, _, _ := newTestService(q)
	b, _ := seedBasket(q, 0)

	params := validParams(b.ID)
	params.GuestFirstName = "   "
	_, err := svc.CreateFromBasket(context.Background(), params)
	require.True(t, common.IsAppError(err))

	params = validParams(b.ID)
	params.TermsAccepted = false
	_, err = svc.CreateFromBasket(context.Background(), params)
	require.True(t, common.IsAppError(err))
}

func TestCreateFromBasketRejectsEmptyBasket(t *testing.T) {
	q := newStubQuerier()
	svc, _, _, _ := newTestService(q)
	b := store.Basket{ID: newID()}
	q.baskets[store.UUIDString(b.ID)] = b

	_, err := svc.CreateFromBasket(context.Background(), validParams(b.ID))
	require.ErrorIs(t, err, errBasketEmpty)
}

func TestCreateFromBasketDetectsOverlap(t *testing.T) {
	q := newStubQuerier()
	svc, bus, _, _ := newTestService(q)
	b, _ := seedBasket(q, 0)
	q.overlaps = 1

	_, err := svc.CreateFromBasket(context.Background(), validParams(b.ID))
	require.ErrorIs(t, err, errUnavailable)
	require.Empty(t, bus.topics)
}

func TestCancelFollowsStateMachine(t *testing.T) {
	q := newStubQuerier()
	svc, bus, _, _ := newTestService(q)
	guestID := newID()
	pending := store.Booking{ID: newID(), GuestID: guestID, Status: StatusPending,
		CheckIn: pgtype.Date{Time: date(2026, 8, 10), Valid: true}, CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true}}
	q.bookings[store.UUIDString(pending.ID)] = pending

	cancelled, err := svc.Cancel(context.Background(), guestID, pending.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Contains(t, bus.topics, events.TopicBookingCancelled)

	checkedIn := store.Booking{ID: newID(), GuestID: guestID, Status: StatusCheckedIn,
		CheckIn: pgtype.Date{Time: date(2026, 8, 10), Valid: true}, CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true}}
	q.bookings[store.UUIDString(checkedIn.ID)] = checkedIn

	cancelled, err = svc.Cancel(context.Background(), guestID, checkedIn.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)

	completed := store.Booking{ID: newID(), GuestID: guestID, Status: StatusCompleted,
		CheckIn: pgtype.Date{Time: date(2026, 8, 10), Valid: true}, CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true}}
	q.bookings[store.UUIDString(completed.ID)] = completed

	_, err = svc.Cancel(context.Background(), guestID, completed.ID)
	require.True(t, common.IsAppError(err))
}

func TestCancelRequiresOwnership(t *testing.T) {
	q := newStubQuerier()
	svc, _, _, _ := newTestService(q)
	b := store.Booking{ID: newID(), GuestID: newID(), Status: StatusPending}
	q.bookings[store.UUIDString(b.ID)] = b

	_, err := svc.Cancel(context.Background(), newID(), b.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdminTransition(t *testing.T) {
	q := newStubQuerier()
	svc, bus, _, _ := newTestService(q)
	b := store.Booking{ID: newID(), Status: StatusPending,
		CheckIn: pgtype.Date{Time: date(2026, 8, 10), Valid: true}, CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true}}
	q.bookings[store.UUIDString(b.ID)] = b

	confirmed, err := svc.AdminTransition(context.Background(), b.ID, StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.Contains(t, bus.topics, events.TopicBookingConfirmed)

	_, err = svc.AdminTransition(context.Background(), b.ID, StatusCompleted)
	require.True(t, common.IsAppError(err))

	_, err = svc.AdminTransition(context.Background(), b.ID, "ARCHIVED")
	require.True(t, common.IsAppError(err))
}

func TestHandleExpireTaskCancelsPendingOnly(t *testing.T) {
	q := newStubQuerier()
	svc, _, _, _ := newTestService(q)
	pending := store.Booking{ID: newID(), Status: StatusPending,
		CheckIn: pgtype.Date{Time: date(2026, 8, 10), Valid: true}, CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true}}
	confirmed := store.Booking{ID: newID(), Status: StatusConfirmed,
		CheckIn: pgtype.Date{Time: date(2026, 8, 10), Valid: true}, CheckOut: pgtype.Date{Time: date(2026, 8, 17), Valid: true}}
	q.bookings[store.UUIDString(pending.ID)] = pending
	q.bookings[store.UUIDString(confirmed.ID)] = confirmed

	task, err := NewExpireTask(store.UUIDString(pending.ID))
	require.NoError(t, err)
	require.NoError(t, svc.HandleExpireTask(context.Background(), task))
	require.Equal(t, StatusCancelled, q.bookings[store.UUIDString(pending.ID)].Status)

	task, err = NewExpireTask(store.UUIDString(confirmed.ID))
	require.NoError(t, err)
	require.NoError(t, svc.HandleExpireTask(context.Background(), task))
	require.Equal(t, StatusConfirmed, q.bookings[store.UUIDString(confirmed.ID)].Status)
}

func TestApportionDiscountSumsToWhole(t *testing.T) {
	weights := []pricing.Money{100, 300, 77}
	shares := apportionDiscount(1000, weights, func(w pricing.Money) pricing.Money { return w })

	var sum pricing.Money
	for _, s := range shares {
		sum += s
	}
	require.Equal(t, pricing.Money(1000), sum)
	require.Len(t, shares, 3)
}
