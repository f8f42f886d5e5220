package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Basket mirrors a row of the baskets table.
type Basket struct {
	ID               pgtype.UUID
	GuestID          pgtype.UUID
	AnonID           pgtype.Text
	AppliedPromoCode pgtype.Text
	AppliedDiscount  int64
	ExpiresAt        pgtype.Timestamptz
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

// BasketItem mirrors a row of the basket_items table.
type BasketItem struct {
	ID        pgtype.UUID
	BasketID  pgtype.UUID
	VillaID   pgtype.UUID
	VillaName string
	BaseRate  int64
	CheckIn   pgtype.Date
	CheckOut  pgtype.Date
	CreatedAt pgtype.Timestamptz
}

const basketColumns = `id, guest_id, anon_id, applied_promo_code, applied_discount, expires_at, created_at, updated_at`
const basketItemColumns = `id, basket_id, villa_id, villa_name, base_rate, check_in, check_out, created_at`

func scanBasket(row pgx.Row) (Basket, error) {
	var b Basket
	err := row.Scan(&b.ID, &b.GuestID, &b.AnonID, &b.AppliedPromoCode, &b.AppliedDiscount,
		&b.ExpiresAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Basket{}, ErrNotFound
	}
	return b, err
}

func scanBasketItem(row pgx.Row) (BasketItem, error) {
	var it BasketItem
	err := row.Scan(&it.ID, &it.BasketID, &it.VillaID, &it.VillaName, &it.BaseRate,
		&it.CheckIn, &it.CheckOut, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BasketItem{}, ErrNotFound
	}
	return it, err
}

// CreateBasket inserts a basket for a guest or an anonymous visitor.
func (s *Store) CreateBasket(ctx context.Context, guestID pgtype.UUID, anonID pgtype.Text, expiresAt time.Time) (Basket, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO baskets (guest_id, anon_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+basketColumns,
		guestID, anonID, pgtype.Timestamptz{Time: expiresAt, Valid: true})
	return scanBasket(row)
}

// GetBasket loads a basket by id.
func (s *Store) GetBasket(ctx context.Context, id pgtype.UUID) (Basket, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+basketColumns+` FROM baskets WHERE id = $1`, id)
	return scanBasket(row)
}

// TouchBasket extends the basket TTL after activity.
func (s *Store) TouchBasket(ctx context.Context, id pgtype.UUID, expiresAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE baskets SET expires_at = $2, updated_at = now() WHERE id = $1`,
		id, pgtype.Timestamptz{Time: expiresAt, Valid: true})
	return err
}

// SetBasketPromo records (or clears) the applied promo snapshot.
func (s *Store) SetBasketPromo(ctx context.Context, id pgtype.UUID, code pgtype.Text, discount int64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE baskets SET applied_promo_code = $2, applied_discount = $3, updated_at = now()
		WHERE id = $1`, id, code, discount)
	return err
}

// AddBasketItemParams holds the insertable basket item fields.
type AddBasketItemParams struct {
	BasketID  pgtype.UUID
	VillaID   pgtype.UUID
	VillaName string
	BaseRate  int64
	CheckIn   time.Time
	CheckOut  time.Time
}

// AddBasketItem inserts one villa stay into the basket.
func (s *Store) AddBasketItem(ctx context.Context, arg AddBasketItemParams) (BasketItem, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO basket_items (basket_id, villa_id, villa_name, base_rate, check_in, check_out)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+basketItemColumns,
		arg.BasketID, arg.VillaID, arg.VillaName, arg.BaseRate,
		pgtype.Date{Time: arg.CheckIn, Valid: true}, pgtype.Date{Time: arg.CheckOut, Valid: true})
	return scanBasketItem(row)
}

// UpdateBasketItemRange replaces the date range of a basket item.
func (s *Store) UpdateBasketItemRange(ctx context.Context, itemID pgtype.UUID, checkIn, checkOut time.Time) (BasketItem, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE basket_items SET check_in = $2, check_out = $3
		WHERE id = $1
		RETURNING `+basketItemColumns,
		itemID, pgtype.Date{Time: checkIn, Valid: true}, pgtype.Date{Time: checkOut, Valid: true})
	return scanBasketItem(row)
}

// GetBasketItem loads one basket item.
func (s *Store) GetBasketItem(ctx context.Context, itemID pgtype.UUID) (BasketItem, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+basketItemColumns+` FROM basket_items WHERE id = $1`, itemID)
	return scanBasketItem(row)
}

// ListBasketItems returns basket items in insertion order.
func (s *Store) ListBasketItems(ctx context.Context, basketID pgtype.UUID) ([]BasketItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+basketItemColumns+` FROM basket_items
		WHERE basket_id = $1 ORDER BY created_at, id`, basketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BasketItem
	for rows.Next() {
		it, err := scanBasketItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// DeleteBasketItem removes one item from the basket.
func (s *Store) DeleteBasketItem(ctx context.Context, basketID, itemID pgtype.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM basket_items WHERE id = $1 AND basket_id = $2`, itemID, basketID)
	return err
}

// ClearBasketItems removes every item, used after a confirmed booking.
func (s *Store) ClearBasketItems(ctx context.Context, basketID pgtype.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM basket_items WHERE basket_id = $1`, basketID)
	return err
}

// AttachBasketToGuest claims an anonymous basket after login.
func (s *Store) AttachBasketToGuest(ctx context.Context, basketID, guestID pgtype.UUID) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE baskets SET guest_id = $2, updated_at = now() WHERE id = $1`, basketID, guestID)
	return err
}
