package promo

import (
	"context"
	"errors"
	"fmt"

	"github.com/amarastays/backend-villa/internal/obs"
	"github.com/amarastays/backend-villa/internal/pricing"
	"github.com/amarastays/backend-villa/internal/store"
)

// Querier is the subset of the store the promo service depends on.
type Querier interface {
	GetPromoCode(ctx context.Context, code string) (store.PromoCode, error)
	UpsertPromoCode(ctx context.Context, arg store.UpsertPromoCodeParams) (store.PromoCode, error)
	ListPromoCodes(ctx context.Context) ([]store.PromoCode, error)
}

// Result is the outcome of resolving a promo code against a subtotal.
type Result struct {
	Code   string
	Kind   Kind
	Amount pricing.Money
	Valid  bool
}

// Service resolves promo codes against stored definitions.
type Service struct {
	Q Querier
}

func NewService(q Querier) *Service {
	return &Service{Q: q}
}

// Resolve looks a code up and computes its discount against the given
// subtotal. Unknown or inactive codes yield Valid=false with a zero
// amount rather than an error; only infrastructure failures error out.
func (s *Service) Resolve(ctx context.Context, rawCode string, subtotal pricing.Money) (Result, error) {
	code := NormalizeCode(rawCode)
	if code == "" {
		return Result{}, nil
	}

	row, err := s.Q.GetPromoCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		countApplication("unknown")
		return Result{Code: code}, nil
	}
	if err != nil {
		countApplication("error")
		return Result{}, fmt.Errorf("load promo code %s: %w", code, err)
	}

	rule := RuleFromRow(row)
	if !rule.Active {
		countApplication("inactive")
		return Result{Code: code, Kind: rule.Kind}, nil
	}

	countApplication("applied")
	return Result{
		Code:   code,
		Kind:   rule.Kind,
		Amount: Compute(rule, subtotal),
		Valid:  true,
	}, nil
}

// RuleFromRow converts a stored promo code into an engine rule.
func RuleFromRow(row store.PromoCode) Rule {
	r := Rule{Code: row.Code, Kind: Kind(row.Kind), Active: row.Active}
	if row.PercentBps.Valid {
		r.PercentBps = row.PercentBps.Int32
	}
	if row.Amount.Valid {
		r.Amount = pricing.Money(row.Amount.Int64)
	}
	return r
}

func countApplication(result string) {
	if obs.PromoApplicationsTotal != nil {
		obs.PromoApplicationsTotal.WithLabelValues(result).Inc()
	}
}
