package core

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", s, err)
	}
	return d
}

func mustDateKey(t *testing.T, s string) DateKey {
	t.Helper()
	d, err := ParseDateKey(s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func TestOrderQuantity_02Rule(t *testing.T) {
	f := &forecaster{}

	cases := []struct {
		name         string
		avgDaily     string
		days         int
		currentStock string
		boxWeight    string
		pending      string
		wantBoxes    int
		wantNoOrder  bool
	}{
		{
			name: "fraction below cutoff rounds down", avgDaily: "10", days: 10, currentStock: "0",
			boxWeight: "24.39", pending: "0", wantBoxes: 4,
			// required = 100, boxesDecimal = 100/24.39 ~= 4.1000 -> integer part 4, frac .1000 <= 0.2
		},
		{
			name: "exact division needs no rounding", avgDaily: "10", days: 10, currentStock: "0",
			boxWeight: "20", pending: "0", wantBoxes: 5,
		},
		{
			name: "below minimum threshold orders nothing", avgDaily: "1", days: 1, currentStock: "0",
			boxWeight: "100", pending: "0", wantNoOrder: true,
			// needed = 1, box*0.3 = 30, 1 < 30 -> no order
		},
		{
			name: "pending weight reduces need to zero", avgDaily: "5", days: 2, currentStock: "5",
			boxWeight: "10", pending: "5", wantNoOrder: true,
			// required=10, available=5+5=10, needed=0
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, boxes := f.OrderQuantity(
				dec(t, tc.avgDaily), tc.days, dec(t, tc.currentStock), dec(t, tc.boxWeight), dec(t, tc.pending), true)
			if tc.wantNoOrder {
				if boxes != 0 {
					t.Fatalf("expected no order, got %d boxes", boxes)
				}
				return
			}
			if boxes != tc.wantBoxes {
				t.Fatalf("expected %d boxes, got %d", tc.wantBoxes, boxes)
			}
		})
	}
}

func TestOrderQuantity_FractionAboveCutoffRoundsUp(t *testing.T) {
	f := &forecaster{}
	// required = 100, boxWeight = 30 -> boxesDecimal = 3.333, frac .333 > 0.2 -> 4
	_, boxes := f.OrderQuantity(dec(t, "10"), 10, dec(t, "0"), dec(t, "30"), dec(t, "0"), true)
	if boxes != 4 {
		t.Fatalf("expected 0.2-rule rounding up to 4 boxes, got %d", boxes)
	}
}

func TestOrderQuantity_CeilingRuleWhenNot02(t *testing.T) {
	f := &forecaster{}
	_, boxes := f.OrderQuantity(dec(t, "10"), 10, dec(t, "0"), dec(t, "24.39"), dec(t, "0"), false)
	// boxesDecimal ~= 4.1000 -> ceiling -> 5
	if boxes != 5 {
		t.Fatalf("expected ceiling rule to produce 5 boxes, got %d", boxes)
	}
}

func TestDaysUntilStockout(t *testing.T) {
	f := &forecaster{}

	if got := f.DaysUntilStockout(dec(t, "0"), dec(t, "0")); got != stockoutSentinelDays {
		t.Fatalf("expected sentinel %d for zero consumption, got %d", stockoutSentinelDays, got)
	}
	if got := f.DaysUntilStockout(dec(t, "100"), dec(t, "-5")); got != stockoutSentinelDays {
		t.Fatalf("expected sentinel for negative consumption, got %d", got)
	}
	if got := f.DaysUntilStockout(dec(t, "100"), dec(t, "10")); got != 10 {
		t.Fatalf("expected 10 days, got %d", got)
	}
}

func TestAverageConsumption_InsufficientHistory(t *testing.T) {
	ledger := &fakeLedger{}
	f := &forecaster{ledger: ledger}

	est, err := f.AverageConsumption(context.Background(), 1, 1, mustDateKey(t, "2026-01-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !est.AverageDailyConsumption.IsZero() {
		t.Fatalf("expected zero average with no history, got %s", est.AverageDailyConsumption)
	}
	if est.Warning == "" {
		t.Fatalf("expected a warning for insufficient history")
	}
}

func TestAverageConsumption_ExcludesAnomalies(t *testing.T) {
	// Ten periods steady at 10/day, then one period where stock drops by
	// 200 in a single day. The preliminary mean (including the outlier)
	// still sits low enough that the outlier exceeds 5x it, so the second
	// pass excludes it and the final average stays close to 10/day.
	dates := []string{
		"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-04", "2026-01-05",
		"2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09", "2026-01-10",
		"2026-01-11", "2026-01-12",
	}
	weights := []string{
		"1000", "990", "980", "970", "960", "950", "940", "930", "920", "910", "900", "700",
	}
	snaps := make([]StockSnapshot, len(dates))
	for i := range dates {
		snaps[i] = StockSnapshot{ProductID: 1, Date: mustDateKey(t, dates[i]), Weight: dec(t, weights[i])}
	}
	ledger := &fakeLedger{history: snaps}
	f := &forecaster{ledger: ledger}

	est, err := f.AverageConsumption(context.Background(), 1, 1, mustDateKey(t, "2025-12-31"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.AnomaliesExcluded != 1 {
		t.Fatalf("expected exactly one anomalous period excluded, got %d (estimate=%+v)", est.AnomaliesExcluded, est)
	}
	if est.AverageDailyConsumption.GreaterThan(dec(t, "15")) {
		t.Fatalf("expected anomaly-filtered average near 10/day, got %s", est.AverageDailyConsumption)
	}
}

// fakeLedger is a minimal in-memory Ledger stand-in so Forecaster's pure
// math can be tested without a database.
type fakeLedger struct {
	history []StockSnapshot
}

func (l *fakeLedger) RecordSnapshot(ctx context.Context, s StockSnapshot) error { return nil }
func (l *fakeLedger) RecordSupply(ctx context.Context, e SupplyEvent) (*SupplyEvent, error) {
	return nil, nil
}
func (l *fakeLedger) SnapshotOn(ctx context.Context, companyID, productID int, date DateKey) (*StockSnapshot, error) {
	return nil, nil
}
func (l *fakeLedger) LatestSnapshotsPerProduct(ctx context.Context, companyID int) (map[int]StockSnapshot, error) {
	return nil, nil
}
func (l *fakeLedger) History(ctx context.Context, companyID, productID int, since DateKey) ([]StockSnapshot, error) {
	return l.history, nil
}
func (l *fakeLedger) SuppliesBetween(ctx context.Context, companyID, productID int, start, end DateKey) ([]SupplyEvent, error) {
	return nil, nil
}
func (l *fakeLedger) ComputePeriodConsumption(ctx context.Context, companyID, productID int, s1, s2 StockSnapshot) (decimal.Decimal, int, bool, error) {
	if s1.Weight.IsZero() || s2.Weight.IsZero() {
		return decimal.Zero, 0, false, nil
	}
	daysDiff := s2.Date.DaysSince(s1.Date)
	if daysDiff <= 0 {
		return decimal.Zero, 0, false, nil
	}
	consumption := s1.Weight.Sub(s2.Weight)
	if consumption.LessThan(decimal.Zero) {
		consumption = decimal.Zero
	}
	return consumption, daysDiff, true, nil
}
