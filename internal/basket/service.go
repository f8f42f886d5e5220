// Package basket implements the stay-selection basket: items are villa
// date ranges and totals are recomputed from current seasonal rates on
// every read.
package basket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/amarastays/backend-villa/internal/common"
	"github.com/amarastays/backend-villa/internal/obs"
	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/promo"
	"github.com/amarastays/backend-villa/internal/store"
)

// Querier is the subset of the store the basket service depends on.
type Querier interface {
	CreateBasket(ctx context.Context, guestID pgtype.UUID, anonID pgtype.Text, expiresAt time.Time) (store.Basket, error)
	GetBasket(ctx context.Context, id pgtype.UUID) (store.Basket, error)
	TouchBasket(ctx context.Context, id pgtype.UUID, expiresAt time.Time) error
	SetBasketPromo(ctx context.Context, id pgtype.UUID, code pgtype.Text, discount int64) error
	AddBasketItem(ctx context.Context, arg store.AddBasketItemParams) (store.BasketItem, error)
	UpdateBasketItemRange(ctx context.Context, itemID pgtype.UUID, checkIn, checkOut time.Time) (store.BasketItem, error)
	GetBasketItem(ctx context.Context, itemID pgtype.UUID) (store.BasketItem, error)
	ListBasketItems(ctx context.Context, basketID pgtype.UUID) ([]store.BasketItem, error)
	DeleteBasketItem(ctx context.Context, basketID, itemID pgtype.UUID) error
	AttachBasketToGuest(ctx context.Context, basketID, guestID pgtype.UUID) error
	GetVillaByID(ctx context.Context, id pgtype.UUID) (store.Villa, error)
}

// PromoResolver resolves a code against the current subtotal.
type PromoResolver interface {
	Resolve(ctx context.Context, code string, subtotal pricing.Money) (promo.Result, error)
}

// Service owns basket lifecycle and pricing.
type Service struct {
	Q           Querier
	Promos      PromoResolver
	Logger      zerolog.Logger
	TTL         time.Duration
	CleaningFee pricing.Money
	TaxBps      int
	Currency    string
	Now         func() time.Time
}

// Errors surfaced to handlers with stable codes.
var (
	ErrExpired      = common.NewAppError("BASKET_EXPIRED", "basket has expired", http.StatusGone, nil)
	ErrInvalidRange = common.NewAppError("INVALID_RANGE", "check_out must be after check_in", http.StatusUnprocessableEntity, nil)
	ErrPromoInvalid = common.NewAppError("PROMO_INVALID", "promo code is unknown or inactive", http.StatusUnprocessableEntity, nil)
)

// Create opens a basket for a logged-in guest or an anonymous visitor.
func (s *Service) Create(ctx context.Context, guestID pgtype.UUID, anonID string) (store.Basket, error) {
	b, err := s.Q.CreateBasket(ctx, guestID, store.NullableText(&anonID), s.Now().Add(s.TTL))
	if err != nil {
		return store.Basket{}, fmt.Errorf("create basket: %w", err)
	}
	return b, nil
}

// load fetches the basket and enforces expiry.
func (s *Service) load(ctx context.Context, id pgtype.UUID) (store.Basket, error) {
	b, err := s.Q.GetBasket(ctx, id)
	if err != nil {
		return store.Basket{}, err
	}
	if b.ExpiresAt.Valid && !s.Now().Before(b.ExpiresAt.Time) {
		return store.Basket{}, ErrExpired
	}
	return b, nil
}

// ItemView is the public shape of one basket line.
type ItemView struct {
	ID        string        `json:"id"`
	VillaID   string        `json:"villa_id"`
	VillaName string        `json:"villa_name"`
	BaseRate  pricing.Money `json:"base_rate"`
	CheckIn   string        `json:"check_in"`
	CheckOut  string        `json:"check_out"`
	Nights    int           `json:"nights"`
	StayTotal pricing.Money `json:"stay_total"`
}

// View is the basket plus its freshly recomputed totals.
type View struct {
	ID        string         `json:"id"`
	PromoCode string         `json:"promo_code,omitempty"`
	Currency  string         `json:"currency"`
	ExpiresAt time.Time      `json:"expires_at"`
	Items     []ItemView     `json:"items"`
	Totals    pricing.Totals `json:"totals"`
}

// Get returns the basket contents with totals computed from current rates.
func (s *Service) Get(ctx context.Context, id pgtype.UUID) (View, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, b, nil)
}

// Quote prices the basket, optionally including an in-progress selection
// the guest has not committed yet.
func (s *Service) Quote(ctx context.Context, id pgtype.UUID, inProgress *pricing.Selection) (View, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if obs.BasketQuoteTotal != nil {
		obs.BasketQuoteTotal.Inc()
	}
	return s.view(ctx, b, inProgress)
}

func (s *Service) view(ctx context.Context, b store.Basket, inProgress *pricing.Selection) (View, error) {
	rows, err := s.Q.ListBasketItems(ctx, b.ID)
	if err != nil {
		return View{}, fmt.Errorf("list basket items: %w", err)
	}

	selections := make([]pricing.Selection, 0, len(rows))
	items := make([]ItemView, 0, len(rows))
	for _, row := range rows {
		sel := pricing.Selection{BaseRate: row.BaseRate, CheckIn: row.CheckIn.Time, CheckOut: row.CheckOut.Time}
		selections = append(selections, sel)
		stay := pricing.ComputeStay(row.BaseRate, row.CheckIn.Time, row.CheckOut.Time)
		items = append(items, ItemView{
			ID:        store.UUIDString(row.ID),
			VillaID:   store.UUIDString(row.VillaID),
			VillaName: row.VillaName,
			BaseRate:  row.BaseRate,
			CheckIn:   row.CheckIn.Time.Format("2006-01-02"),
			CheckOut:  row.CheckOut.Time.Format("2006-01-02"),
			Nights:    stay.Nights,
			StayTotal: stay.Total,
		})
	}

	totals := pricing.ComputeBasket(selections, inProgress, s.CleaningFee, s.TaxBps, b.AppliedDiscount)
	view := View{
		ID:       store.UUIDString(b.ID),
		Currency: s.Currency,
		Items:    items,
		Totals:   totals,
	}
	if b.AppliedPromoCode.Valid {
		view.PromoCode = b.AppliedPromoCode.String
	}
	if b.ExpiresAt.Valid {
		view.ExpiresAt = b.ExpiresAt.Time
	}
	return view, nil
}

// AddItem appends a villa stay to the basket. The villa name and base
// rate are snapshotted onto the line so later CMS edits do not reprice
// an existing basket silently.
func (s *Service) AddItem(ctx context.Context, basketID, villaID pgtype.UUID, checkIn, checkOut time.Time) (View, error) {
	if !checkOut.After(checkIn) {
		return View{}, ErrInvalidRange
	}
	b, err := s.load(ctx, basketID)
	if err != nil {
		return View{}, err
	}
	v, err := s.Q.GetVillaByID(ctx, villaID)
	if errors.Is(err, store.ErrNotFound) {
		return View{}, common.NewAppError("VILLA_NOT_FOUND", "villa not found", http.StatusNotFound, err)
	}
	if err != nil {
		return View{}, fmt.Errorf("load villa: %w", err)
	}
	if !v.Available {
		return View{}, common.NewAppError("VILLA_UNAVAILABLE", "villa is not open for booking", http.StatusUnprocessableEntity, nil)
	}

	if _, err := s.Q.AddBasketItem(ctx, store.AddBasketItemParams{
		BasketID:  b.ID,
		VillaID:   v.ID,
		VillaName: v.Name,
		BaseRate:  v.BaseRate,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
	}); err != nil {
		return View{}, fmt.Errorf("add basket item: %w", err)
	}
	if err := s.afterMutation(ctx, b); err != nil {
		return View{}, err
	}
	return s.Get(ctx, basketID)
}

// UpdateItemRange changes the dates of one basket line.
func (s *Service) UpdateItemRange(ctx context.Context, basketID, itemID pgtype.UUID, checkIn, checkOut time.Time) (View, error) {
	if !checkOut.After(checkIn) {
		return View{}, ErrInvalidRange
	}
	b, err := s.load(ctx, basketID)
	if err != nil {
		return View{}, err
	}
	item, err := s.Q.GetBasketItem(ctx, itemID)
	if err != nil || !store.UUIDEqual(item.BasketID, b.ID) {
		return View{}, common.NewAppError("ITEM_NOT_FOUND", "basket item not found", http.StatusNotFound, err)
	}
	if _, err := s.Q.UpdateBasketItemRange(ctx, itemID, checkIn, checkOut); err != nil {
		return View{}, fmt.Errorf("update basket item: %w", err)
	}
	if err := s.afterMutation(ctx, b); err != nil {
		return View{}, err
	}
	return s.Get(ctx, basketID)
}

// RemoveItem deletes one basket line.
func (s *Service) RemoveItem(ctx context.Context, basketID, itemID pgtype.UUID) (View, error) {
	b, err := s.load(ctx, basketID)
	if err != nil {
		return View{}, err
	}
	if err := s.Q.DeleteBasketItem(ctx, b.ID, itemID); err != nil {
		return View{}, fmt.Errorf("delete basket item: %w", err)
	}
	if err := s.afterMutation(ctx, b); err != nil {
		return View{}, err
	}
	return s.Get(ctx, basketID)
}

// ApplyPromo resolves the code against the current subtotal and stores
// the snapshot. Applying a second code replaces the first.
func (s *Service) ApplyPromo(ctx context.Context, basketID pgtype.UUID, code string) (View, error) {
	b, err := s.load(ctx, basketID)
	if err != nil {
		return View{}, err
	}
	current, err := s.view(ctx, b, nil)
	if err != nil {
		return View{}, err
	}
	subtotal := current.Totals.Subtotal

	res, err := s.Promos.Resolve(ctx, code, subtotal)
	if err != nil {
		return View{}, err
	}
	if !res.Valid {
		// An invalid entry resets any previously applied discount; the
		// basket never keeps a stale snapshot after a failed attempt.
		if err := s.Q.SetBasketPromo(ctx, b.ID, pgtype.Text{}, 0); err != nil {
			return View{}, fmt.Errorf("clear basket promo: %w", err)
		}
		return View{}, ErrPromoInvalid
	}
	if err := s.Q.SetBasketPromo(ctx, b.ID, pgtype.Text{String: res.Code, Valid: true}, int64(res.Amount)); err != nil {
		return View{}, fmt.Errorf("set basket promo: %w", err)
	}
	s.Logger.Info().Str("basket_id", store.UUIDString(b.ID)).Str("code", res.Code).
		Int64("discount", int64(res.Amount)).Msg("promo applied")
	return s.Get(ctx, basketID)
}

// RemovePromo clears the applied snapshot.
func (s *Service) RemovePromo(ctx context.Context, basketID pgtype.UUID) (View, error) {
	b, err := s.load(ctx, basketID)
	if err != nil {
		return View{}, err
	}
	if err := s.Q.SetBasketPromo(ctx, b.ID, pgtype.Text{}, 0); err != nil {
		return View{}, fmt.Errorf("clear basket promo: %w", err)
	}
	return s.Get(ctx, basketID)
}

// Attach claims an anonymous basket for a logged-in guest.
func (s *Service) Attach(ctx context.Context, basketID, guestID pgtype.UUID) error {
	b, err := s.load(ctx, basketID)
	if err != nil {
		return err
	}
	return s.Q.AttachBasketToGuest(ctx, b.ID, guestID)
}

// afterMutation extends the TTL and drops any applied promo snapshot;
// the guest must re-apply the code against the new contents.
func (s *Service) afterMutation(ctx context.Context, b store.Basket) error {
	if err := s.Q.TouchBasket(ctx, b.ID, s.Now().Add(s.TTL)); err != nil {
		return fmt.Errorf("touch basket: %w", err)
	}
	if b.AppliedPromoCode.Valid {
		if err := s.Q.SetBasketPromo(ctx, b.ID, pgtype.Text{}, 0); err != nil {
			return fmt.Errorf("clear basket promo: %w", err)
		}
	}
	return nil
}
