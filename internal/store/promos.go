package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// PromoCode mirrors a row of the promo_codes table.
type PromoCode struct {
	Code       string
	Kind       string
	PercentBps pgtype.Int4
	Amount     pgtype.Int8
	Active     bool
	CreatedAt  pgtype.Timestamptz
}

// GetPromoCode loads a promo code by its canonical code.
func (s *Store) GetPromoCode(ctx context.Context, code string) (PromoCode, error) {
	var p PromoCode
	err := s.Pool.QueryRow(ctx, `
		SELECT code, kind, percent_bps, amount, active, created_at
		FROM promo_codes WHERE code = $1`, code).
		Scan(&p.Code, &p.Kind, &p.PercentBps, &p.Amount, &p.Active, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PromoCode{}, ErrNotFound
	}
	return p, err
}

// UpsertPromoCodeParams holds the writable promo code fields.
type UpsertPromoCodeParams struct {
	Code       string
	Kind       string
	PercentBps pgtype.Int4
	Amount     pgtype.Int8
	Active     bool
}

// UpsertPromoCode inserts or replaces a promo code definition.
func (s *Store) UpsertPromoCode(ctx context.Context, arg UpsertPromoCodeParams) (PromoCode, error) {
	var p PromoCode
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO promo_codes (code, kind, percent_bps, amount, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE
		SET kind = EXCLUDED.kind, percent_bps = EXCLUDED.percent_bps,
		    amount = EXCLUDED.amount, active = EXCLUDED.active
		RETURNING code, kind, percent_bps, amount, active, created_at`,
		arg.Code, arg.Kind, arg.PercentBps, arg.Amount, arg.Active).
		Scan(&p.Code, &p.Kind, &p.PercentBps, &p.Amount, &p.Active, &p.CreatedAt)
	return p, err
}

// ListPromoCodes returns every promo code definition.
func (s *Store) ListPromoCodes(ctx context.Context) ([]PromoCode, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT code, kind, percent_bps, amount, active, created_at
		FROM promo_codes ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PromoCode
	for rows.Next() {
		var p PromoCode
		if err := rows.Scan(&p.Code, &p.Kind, &p.PercentBps, &p.Amount, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
