package promo

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/amarastays/backend-villa/internal/store"
)

type stubQuerier struct {
	codes map[string]store.PromoCode
	err   error
}

func (s *stubQuerier) GetPromoCode(_ context.Context, code string) (store.PromoCode, error) {
	if s.err != nil {
		return store.PromoCode{}, s.err
	}
	row, ok := s.codes[code]
	if !ok {
		return store.PromoCode{}, store.ErrNotFound
	}
	return row, nil
}

func (s *stubQuerier) UpsertPromoCode(_ context.Context, arg store.UpsertPromoCodeParams) (store.PromoCode, error) {
	row := store.PromoCode{Code: arg.Code, Kind: arg.Kind, PercentBps: arg.PercentBps, Amount: arg.Amount, Active: arg.Active}
	if s.codes == nil {
		s.codes = map[string]store.PromoCode{}
	}
	s.codes[arg.Code] = row
	return row, nil
}

func (s *stubQuerier) ListPromoCodes(context.Context) ([]store.PromoCode, error) {
	var out []store.PromoCode
	for _, row := range s.codes {
		out = append(out, row)
	}
	return out, nil
}

func seededQuerier() *stubQuerier {
	return &stubQuerier{codes: map[string]store.PromoCode{
		"WELCOME20": {Code: "WELCOME20", Kind: "percent", PercentBps: pgtype.Int4{Int32: 2000, Valid: true}, Active: true},
		"SUMMER50":  {Code: "SUMMER50", Kind: "fixed", Amount: pgtype.Int8{Int64: 5000, Valid: true}, Active: true},
		"EXPIRED10": {Code: "EXPIRED10", Kind: "percent", PercentBps: pgtype.Int4{Int32: 1000, Valid: true}, Active: false},
	}}
}

func TestResolveKnownCodes(t *testing.T) {
	svc := NewService(seededQuerier())

	welcome, err := svc.Resolve(context.Background(), "welcome20", 100000)
	require.NoError(t, err)
	require.True(t, welcome.Valid)
	require.Equal(t, int64(20000), int64(welcome.Amount))

	summer, err := svc.Resolve(context.Background(), "SUMMER50", 100000)
	require.NoError(t, err)
	require.True(t, summer.Valid)
	require.Equal(t, int64(5000), int64(summer.Amount))
}

func TestResolveUnknownCode(t *testing.T) {
	svc := NewService(seededQuerier())

	res, err := svc.Resolve(context.Background(), "NOPE", 100000)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Zero(t, res.Amount)
}

func TestResolveInactiveCode(t *testing.T) {
	svc := NewService(seededQuerier())

	res, err := svc.Resolve(context.Background(), "EXPIRED10", 100000)
	require.NoError(t, err)
	require.False(t, res.Valid)
	require.Zero(t, res.Amount)
}

func TestResolveEmptyCode(t *testing.T) {
	svc := NewService(seededQuerier())

	res, err := svc.Resolve(context.Background(), "   ", 100000)
	require.NoError(t, err)
	require.False(t, res.Valid)
}

func TestResolveStoreError(t *testing.T) {
	svc := NewService(&stubQuerier{err: errors.New("connection reset")})

	_, err := svc.Resolve(context.Background(), "WELCOME20", 100000)
	require.Error(t, err)
}

func TestReplacementYieldsLatestDiscountOnly(t *testing.T) {
	svc := NewService(seededQuerier())

	first, err := svc.Resolve(context.Background(), "WELCOME20", 1000*100)
	require.NoError(t, err)
	require.Equal(t, int64(20000), int64(first.Amount))

	// The basket stores only the latest snapshot, so after applying
	// SUMMER50 the effective discount is exactly its flat amount.
	second, err := svc.Resolve(context.Background(), "SUMMER50", 1000*100)
	require.NoError(t, err)
	require.Equal(t, int64(5000), int64(second.Amount))
}
