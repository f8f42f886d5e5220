package promo

import (
	"strings"

	"github.com/amarastays/backend-villa/internal/pricing"
)

// Kind discriminates how a promo code discounts the basket.
type Kind string

const (
	// KindPercent discounts a percentage of the subtotal at apply time.
	KindPercent Kind = "percent"
	// KindFixed discounts a flat amount regardless of subtotal.
	KindFixed Kind = "fixed"
)

// Rule captures the discount behaviour of a single promo code.
type Rule struct {
	Code       string
	Kind       Kind
	PercentBps int32
	Amount     pricing.Money
	Active     bool
}

// Compute determines the discount amount for the rule against the
// current subtotal. Percentage discounts are derived from the subtotal
// passed here and are snapshotted by the caller; they are not re-derived
// when the basket changes later. The result is never negative. A flat
// discount may exceed the subtotal: the total assembler floors the final
// amount at zero.
func Compute(r Rule, subtotal pricing.Money) pricing.Money {
	if !r.Active {
		return 0
	}
	var discount pricing.Money
	switch r.Kind {
	case KindPercent:
		if r.PercentBps <= 0 || subtotal <= 0 {
			return 0
		}
		discount = subtotal * pricing.Money(r.PercentBps) / 10000
	case KindFixed:
		discount = r.Amount
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// NormalizeCode canonicalises user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
