package pricing

import "time"

// Money represents a monetary value stored in minor units.
type Money = int64

// Season multipliers in basis points applied to a villa's nightly base rate.
const (
	peakSeasonBps     = 14000
	shoulderSeasonBps = 12000
	lowSeasonBps      = 10000
)

// Long stays of at least this many nights earn a 10% reduction.
const (
	LongStayNights = 7
	longStayBps    = 9000
)

// SeasonMultiplierBps returns the seasonal multiplier for a calendar day.
// July and August are peak, June and September are shoulder, the rest of
// the year is charged at the base rate.
func SeasonMultiplierBps(day time.Time) int {
	switch day.Month() {
	case time.July, time.August:
		return peakSeasonBps
	case time.June, time.September:
		return shoulderSeasonBps
	default:
		return lowSeasonBps
	}
}

// SeasonalRate adjusts a nightly base rate for the season of the given day.
func SeasonalRate(base Money, day time.Time) Money {
	return base * Money(SeasonMultiplierBps(day)) / 10000
}

// Stay is the priced result of a single villa stay.
type Stay struct {
	Total  Money
	Nights int
}

// ComputeStay sums seasonal nightly rates across the half-open range
// [checkIn, checkOut) and applies the long-stay reduction when the stay
// reaches LongStayNights. A range with checkIn >= checkOut yields a
// zero-value Stay which callers must treat as "no valid stay".
func ComputeStay(base Money, checkIn, checkOut time.Time) Stay {
	var s Stay
	for d := dateOnly(checkIn); d.Before(dateOnly(checkOut)); d = d.AddDate(0, 0, 1) {
		s.Total += SeasonalRate(base, d)
		s.Nights++
	}
	if s.Nights >= LongStayNights {
		s.Total = s.Total * longStayBps / 10000
	}
	return s
}

// Selection pairs a nightly base rate with a requested date range.
type Selection struct {
	BaseRate Money
	CheckIn  time.Time
	CheckOut time.Time
}

// Totals aggregates computed basket pricing components.
type Totals struct {
	Subtotal    Money `json:"subtotal"`
	CleaningFee Money `json:"cleaning_fee"`
	Tax         Money `json:"tax"`
	Discount    Money `json:"discount"`
	Total       Money `json:"total"`
	Nights      int   `json:"nights"`
	LongStay    bool  `json:"long_stay"`
}

// ComputeBasket prices the committed selections plus an optional
// in-progress selection that has not been added to the basket yet.
// The cleaning fee is charged once per priced stay, never per night.
// Tax is computed on the subtotal only. The discount is subtracted last
// and the final total is floored at zero. Selections that price to zero
// nights are excluded entirely: they contribute no subtotal and no
// cleaning fee.
//
// LongStay reflects the combined nights across the basket and exists for
// display only; each stay's own reduction is decided by its own nights
// inside ComputeStay.
func ComputeBasket(items []Selection, inProgress *Selection, cleaningFee Money, taxBps int, discount Money) Totals {
	var t Totals
	priced := 0
	add := func(sel Selection) {
		stay := ComputeStay(sel.BaseRate, sel.CheckIn, sel.CheckOut)
		if stay.Nights == 0 {
			return
		}
		t.Subtotal += stay.Total
		t.Nights += stay.Nights
		priced++
	}
	for _, sel := range items {
		add(sel)
	}
	if inProgress != nil {
		add(*inProgress)
	}
	t.CleaningFee = Money(priced) * cleaningFee
	t.LongStay = t.Nights >= LongStayNights
	t.Tax = t.Subtotal * Money(taxBps) / 10000
	if discount < 0 {
		discount = 0
	}
	t.Discount = discount
	t.Total = t.Subtotal + t.CleaningFee + t.Tax - t.Discount
	if t.Total < 0 {
		t.Total = 0
	}
	return t
}

func dateOnly(v time.Time) time.Time {
	return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
}
