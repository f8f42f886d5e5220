package basket

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/promo"
	"github.com/amarastays/backend-villa/internal/store"
)

type stubQuerier struct {
	baskets map[string]store.Basket
	items   map[string][]store.BasketItem
	villas  map[string]store.Villa
}

func newStubQuerier() *stubQuerier {
	return &stubQuerier{
		baskets: map[string]store.Basket{},
		items:   map[string][]store.BasketItem{},
		villas:  map[string]store.Villa{},
	}
}

func newID() pgtype.UUID {
	id, _ := store.ParseUUID(uuid.NewString())
	return id
}

func (s *stubQuerier) CreateBasket(_ context.Context, guestID pgtype.UUID, anonID pgtype.Text, expiresAt time.Time) (store.Basket, error) {
	b := store.Basket{ID: newID(), GuestID: guestID, AnonID: anonID,
		ExpiresAt: pgtype.Timestamptz{Time: expiresAt, Valid: true}}
	s.baskets[store.UUIDString(b.ID)] = b
	return b, nil
}

func (s *stubQuerier) GetBasket(_ context.Context, id pgtype.UUID) (store.Basket, error) {
	b, ok := s.baskets[store.UUIDString(id)]
	if !ok {
		return store.Basket{}, store.ErrNotFound
	}
	return b, nil
}

func (s *stubQuerier) TouchBasket(_ context.Context, id pgtype.UUID, expiresAt time.Time) error {
	b := s.baskets[store.UUIDString(id)]
	b.ExpiresAt = pgtype.Timestamptz{Time: expiresAt, Valid: true}
	s.baskets[store.UUIDString(id)] = b
	return nil
}

func (s *stubQuerier) SetBasketPromo(_ context.Context, id pgtype.UUID, code pgtype.Text, discount int64) error {
	b := s.baskets[store.UUIDString(id)]
	b.AppliedPromoCode = code
	b.AppliedDiscount = discount
	s.baskets[store.UUIDString(id)] = b
	return nil
}

func (s *stubQuerier) AddBasketItem(_ context.Context, arg store.AddBasketItemParams) (store.BasketItem, error) {
	it := store.BasketItem{
		ID: newID(), BasketID: arg.BasketID, VillaID: arg.VillaID,
		VillaName: arg.VillaName, BaseRate: arg.BaseRate,
		CheckIn:  pgtype.Date{Time: arg.CheckIn, Valid: true},
		CheckOut: pgtype.Date{Time: arg.CheckOut, Valid: true},
	}
	key := store.UUIDString(arg.BasketID)
	s.items[key] = append(s.items[key], it)
	return it, nil
}

func (s *stubQuerier) UpdateBasketItemRange(_ context.Context, itemID pgtype.UUID, checkIn, checkOut time.Time) (store.BasketItem, error) {
	for key, items := range s.items {
		for i, it := range items {
			if store.UUIDEqual(it.ID, itemID) {
				items[i].CheckIn = pgtype.Date{Time: checkIn, Valid: true}
				items[i].CheckOut = pgtype.Date{Time: checkOut, Valid: true}
				s.items[key] = items
				return items[i], nil
			}
		}
	}
	return store.BasketItem{}, store.ErrNotFound
}

func (s *stubQuerier) GetBasketItem(_ context.Context, itemID pgtype.UUID) (store.BasketItem, error) {
	for _, items := range s.items {
		for _, it := range items {
			if store.UUIDEqual(it.ID, itemID) {
				return it, nil
			}
		}
	}
	return store.BasketItem{}, store.ErrNotFound
}

func (s *stubQuerier) ListBasketItems(_ context.Context, basketID pgtype.UUID) ([]store.BasketItem, error) {
	return s.items[store.UUIDString(basketID)], nil
}

func (s *stubQuerier) DeleteBasketItem(_ context.Context, basketID, itemID pgtype.UUID) error {
	key := store.UUIDString(basketID)
	out := s.items[key][:0]
	for _, it := range s.items[key] {
		if !store.UUIDEqual(it.ID, itemID) {
			out = append(out, it)
		}
	}
	s.items[key] = out
	return nil
}

func (s *stubQuerier) ClearBasketItems(_ context.Context, basketID pgtype.UUID) error {
	delete(s.items, store.UUIDString(basketID))
	return nil
}

func (s *stubQuerier) AttachBasketToGuest(_ context.Context, basketID, guestID pgtype.UUID) error {
	b := s.baskets[store.UUIDString(basketID)]
	b.GuestID = guestID
	s.baskets[store.UUIDString(basketID)] = b
	return nil
}

func (s *stubQuerier) GetVillaByID(_ context.Context, id pgtype.UUID) (store.Villa, error) {
	v, ok := s.villas[store.UUIDString(id)]
	if !ok {
		return store.Villa{}, store.ErrNotFound
	}
	return v, nil
}

type stubPromos struct {
	results map[string]promo.Result
}

func (s *stubPromos) Resolve(_ context.Context, code string, subtotal pricing.Money) (promo.Result, error) {
	res, ok := s.results[promo.NormalizeCode(code)]
	if !ok {
		return promo.Result{Code: promo.NormalizeCode(code)}, nil
	}
	if res.Kind == promo.KindPercent {
		res.Amount = subtotal * 2000 / 10000
	}
	return res, nil
}

func newTestService(q *stubQuerier) *Service {
	return &Service{
		Q: q,
		Promos: &stubPromos{results: map[string]promo.Result{
			"WELCOME20": {Code: "WELCOME20", Kind: promo.KindPercent, Valid: true},
			"SUMMER50":  {Code: "SUMMER50", Kind: promo.KindFixed, Amount: 5000, Valid: true},
		}},
		Logger:      zerolog.New(io.Discard),
		TTL:         7 * 24 * time.Hour,
		CleaningFee: 8000,
		TaxBps:      1000,
		Currency:    "USD",
		Now:         func() time.Time { return time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func seedVilla(q *stubQuerier, baseRate int64) store.Villa {
	v := store.Villa{ID: newID(), Slug: "azure", Name: "Villa Azure", BaseRate: baseRate, Available: true}
	q.villas[store.UUIDString(v.ID)] = v
	return v
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddItemComputesAugustWeekTotals(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, err := svc.Create(context.Background(), pgtype.UUID{}, "anon-1")
	require.NoError(t, err)

	view, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 17))
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, 7, view.Items[0].Nights)

	// 7 peak nights at 42000 with the long-stay reduction, one cleaning
	// fee and 10% tax on the subtotal.
	require.Equal(t, int64(264600), view.Totals.Subtotal)
	require.Equal(t, int64(8000), view.Totals.CleaningFee)
	require.Equal(t, int64(26460), view.Totals.Tax)
	require.Equal(t, int64(299060), view.Totals.Total)
}

func TestAddItemRejectsInvertedRange(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")

	_, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 17), date(2026, 8, 10))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 10))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestApplyPromoSnapshotsDiscount(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")
	_, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 17))
	require.NoError(t, err)

	view, err := svc.ApplyPromo(context.Background(), b.ID, "welcome20")
	require.NoError(t, err)
	require.Equal(t, "WELCOME20", view.PromoCode)
	require.Equal(t, int64(52920), view.Totals.Discount)
	require.Equal(t, int64(299060-52920), view.Totals.Total)
}

func TestApplyPromoReplacesPrevious(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")
	_, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 17))
	require.NoError(t, err)

	_, err = svc.ApplyPromo(context.Background(), b.ID, "WELCOME20")
	require.NoError(t, err)
	view, err := svc.ApplyPromo(context.Background(), b.ID, "SUMMER50")
	require.NoError(t, err)

	// Codes replace rather than stack: only the flat amount remains.
	require.Equal(t, "SUMMER50", view.PromoCode)
	require.Equal(t, int64(5000), view.Totals.Discount)
}

func TestApplyPromoUnknownCode(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")
	_, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 17))
	require.NoError(t, err)

	_, err = svc.ApplyPromo(context.Background(), b.ID, "NOPE")
	require.ErrorIs(t, err, ErrPromoInvalid)

	// An invalid entry also wipes a previously applied discount.
	_, err = svc.ApplyPromo(context.Background(), b.ID, "SUMMER50")
	require.NoError(t, err)
	_, err = svc.ApplyPromo(context.Background(), b.ID, "NOPE")
	require.ErrorIs(t, err, ErrPromoInvalid)

	view, err := svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	require.Empty(t, view.PromoCode)
	require.Zero(t, view.Totals.Discount)
}

func TestMutationClearsAppliedPromo(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")
	first, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 17))
	require.NoError(t, err)
	_, err = svc.ApplyPromo(context.Background(), b.ID, "SUMMER50")
	require.NoError(t, err)

	view, err := svc.UpdateItemRange(context.Background(), b.ID, mustItemID(t, first), date(2026, 8, 10), date(2026, 8, 15))
	require.NoError(t, err)
	require.Empty(t, view.PromoCode)
	require.Zero(t, view.Totals.Discount)
}

func TestQuoteIncludesInProgressSelection(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	v := seedVilla(q, 30000)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")
	_, err := svc.AddItem(context.Background(), b.ID, v.ID, date(2026, 8, 10), date(2026, 8, 13))
	require.NoError(t, err)

	inProgress := &pricing.Selection{BaseRate: 20000, CheckIn: date(2026, 10, 1), CheckOut: date(2026, 10, 3)}
	view, err := svc.Quote(context.Background(), b.ID, inProgress)
	require.NoError(t, err)

	// 3 peak nights at 42000 plus 2 low-season nights at 20000, two
	// cleaning fees, tax on the combined subtotal.
	require.Equal(t, int64(166000), view.Totals.Subtotal)
	require.Equal(t, int64(16000), view.Totals.CleaningFee)
	require.Equal(t, 5, view.Totals.Nights)
}

func TestExpiredBasketIsGone(t *testing.T) {
	q := newStubQuerier()
	svc := newTestService(q)
	b, _ := svc.Create(context.Background(), pgtype.UUID{}, "")

	svc.Now = func() time.Time { return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC) }
	_, err := svc.Get(context.Background(), b.ID)
	require.ErrorIs(t, err, ErrExpired)
}

func mustItemID(t *testing.T, view View) pgtype.UUID {
	t.Helper()
	require.NotEmpty(t, view.Items)
	id, err := store.ParseUUID(view.Items[0].ID)
	require.NoError(t, err)
	return id
}
