package pricing

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSeasonalRateBoundaries(t *testing.T) {
	cases := []struct {
		day  time.Time
		want Money
	}{
		{day(2026, time.July, 1), 14000},
		{day(2026, time.August, 31), 14000},
		{day(2026, time.June, 15), 12000},
		{day(2026, time.September, 1), 12000},
		{day(2026, time.January, 10), 10000},
		{day(2026, time.May, 31), 10000},
		{day(2026, time.October, 1), 10000},
	}
	for _, tc := range cases {
		if got := SeasonalRate(10000, tc.day); got != tc.want {
			t.Fatalf("SeasonalRate(10000, %s) = %d, want %d", tc.day.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestComputeStayLongStayThreshold(t *testing.T) {
	// Low season, so every night is the bare base rate.
	base := Money(20000)
	start := day(2026, time.February, 1)

	six := ComputeStay(base, start, start.AddDate(0, 0, 6))
	if six.Nights != 6 || six.Total != 6*base {
		t.Fatalf("6 nights: got %+v, want no reduction", six)
	}

	seven := ComputeStay(base, start, start.AddDate(0, 0, 7))
	if seven.Nights != 7 || seven.Total != 7*base*9000/10000 {
		t.Fatalf("7 nights: got %+v, want 10%% reduction", seven)
	}

	eight := ComputeStay(base, start, start.AddDate(0, 0, 8))
	if eight.Nights != 8 || eight.Total != 8*base*9000/10000 {
		t.Fatalf("8 nights: got %+v, want exactly 10%% reduction", eight)
	}
}

func TestComputeStayEmptyRange(t *testing.T) {
	d := day(2026, time.March, 10)
	if got := ComputeStay(15000, d, d); got.Total != 0 || got.Nights != 0 {
		t.Fatalf("same-day range: got %+v, want zero stay", got)
	}
	if got := ComputeStay(15000, d, d.AddDate(0, 0, -2)); got.Total != 0 || got.Nights != 0 {
		t.Fatalf("inverted range: got %+v, want zero stay", got)
	}
}

func TestComputeStayCrossesSeasonBoundary(t *testing.T) {
	// Two nights in June (shoulder) and two in July (peak).
	base := Money(10000)
	got := ComputeStay(base, day(2026, time.June, 29), day(2026, time.July, 3))
	want := Money(2*12000 + 2*14000)
	if got.Nights != 4 || got.Total != want {
		t.Fatalf("cross-season stay: got %+v, want total %d", got, want)
	}
}

func TestComputeBasketIdempotent(t *testing.T) {
	items := []Selection{
		{BaseRate: 20000, CheckIn: day(2026, time.April, 1), CheckOut: day(2026, time.April, 4)},
		{BaseRate: 30000, CheckIn: day(2026, time.August, 10), CheckOut: day(2026, time.August, 17)},
	}
	first := ComputeBasket(items, nil, 8000, 1000, 0)
	second := ComputeBasket(items, nil, 8000, 1000, 0)
	if first != second {
		t.Fatalf("basket totals not stable: %+v vs %+v", first, second)
	}
}

func TestComputeBasketEndToEnd(t *testing.T) {
	// Base 300.00/night, Aug 10-17: 7 peak nights, long-stay reduced,
	// then cleaning fee 80.00 and 10% tax on the subtotal only.
	sel := Selection{BaseRate: 30000, CheckIn: day(2026, time.August, 10), CheckOut: day(2026, time.August, 17)}
	got := ComputeBasket([]Selection{sel}, nil, 8000, 1000, 0)
	if got.Subtotal != 264600 {
		t.Fatalf("subtotal = %d, want 264600", got.Subtotal)
	}
	if got.CleaningFee != 8000 {
		t.Fatalf("cleaning fee = %d, want 8000", got.CleaningFee)
	}
	if got.Tax != 26460 {
		t.Fatalf("tax = %d, want 26460", got.Tax)
	}
	if got.Total != 299060 {
		t.Fatalf("total = %d, want 299060", got.Total)
	}
	if !got.LongStay || got.Nights != 7 {
		t.Fatalf("expected 7-night long stay, got %+v", got)
	}
}

func TestComputeBasketMultiItemWithInProgress(t *testing.T) {
	// Two committed 3-night stays plus a 4-night in-progress selection,
	// all low season at 200.00/night. Combined nights hit the long-stay
	// flag at basket level but no individual stay is reduced.
	base := Money(20000)
	items := []Selection{
		{BaseRate: base, CheckIn: day(2026, time.February, 1), CheckOut: day(2026, time.February, 4)},
		{BaseRate: base, CheckIn: day(2026, time.March, 1), CheckOut: day(2026, time.March, 4)},
	}
	inProgress := &Selection{BaseRate: base, CheckIn: day(2026, time.April, 1), CheckOut: day(2026, time.April, 5)}
	got := ComputeBasket(items, inProgress, 8000, 1000, 0)
	if got.Nights != 10 {
		t.Fatalf("combined nights = %d, want 10", got.Nights)
	}
	if !got.LongStay {
		t.Fatal("expected basket-level long-stay flag")
	}
	if got.Subtotal != 10*base {
		t.Fatalf("subtotal = %d, want undiscounted %d", got.Subtotal, 10*base)
	}
	if got.CleaningFee != 3*8000 {
		t.Fatalf("cleaning fee = %d, want one fee per stay", got.CleaningFee)
	}
}

func TestComputeBasketSkipsInvalidSelections(t *testing.T) {
	valid := Selection{BaseRate: 20000, CheckIn: day(2026, time.May, 1), CheckOut: day(2026, time.May, 3)}
	invalid := Selection{BaseRate: 20000, CheckIn: day(2026, time.May, 5), CheckOut: day(2026, time.May, 5)}
	got := ComputeBasket([]Selection{valid, invalid}, nil, 8000, 1000, 0)
	if got.Nights != 2 {
		t.Fatalf("nights = %d, want 2", got.Nights)
	}
	if got.CleaningFee != 8000 {
		t.Fatalf("cleaning fee = %d, invalid selection must not be charged a fee", got.CleaningFee)
	}
}

func TestComputeBasketNeverNegative(t *testing.T) {
	sel := Selection{BaseRate: 10000, CheckIn: day(2026, time.January, 1), CheckOut: day(2026, time.January, 2)}
	got := ComputeBasket([]Selection{sel}, nil, 8000, 1000, 10_000_000)
	if got.Total != 0 {
		t.Fatalf("total = %d, want clamp at 0", got.Total)
	}
	empty := ComputeBasket(nil, nil, 8000, 1000, 5000)
	if empty.Total != 0 {
		t.Fatalf("empty basket total = %d, want 0", empty.Total)
	}
}
