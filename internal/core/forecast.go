package core

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// anomalyMultiple is ANOMALY_THRESHOLD in original_source/utils/calculations.py:
// a period whose daily consumption exceeds the preliminary mean by more than
// this factor is excluded from the final average.
const anomalyMultiple = "5"

// minOrderFraction is MIN_THRESHOLD: an order whose needed weight is under
// this fraction of a single box is not worth placing.
const minOrderFraction = "0.3"

// boxRoundingCutoff is the 0.2 rule's cutoff: a fractional box count at or
// below this value rounds down, above it rounds up.
const boxRoundingCutoff = "0.2"

// stockoutSentinelDays is returned by DaysUntilStockout when consumption is
// zero or negative: "no usable signal, assume a long runway."
const stockoutSentinelDays = 999

// ConsumptionEstimate is the result of averaging consumption over a
// product's history (spec.md §4.3).
type ConsumptionEstimate struct {
	AverageDailyConsumption decimal.Decimal
	PeriodsUsed             int
	AnomaliesExcluded       int
	Warning                 string
}

// OrderLineProposal is one candidate row for an auto-generated order
// (spec.md §4.4/§4.5). Cost is populated by SummarizeOrder once the line is
// priced against the catalog; it is zero beforehand.
type OrderLineProposal struct {
	ProductID               int
	AverageDailyConsumption decimal.Decimal
	DaysUntilStockout       int
	NeededWeight            decimal.Decimal
	Boxes                   int
	Cost                    decimal.Decimal
	Urgent                  bool
}

// OrderSummary aggregates a set of proposals into a notifiable total
// (spec.md §4.5, get_auto_order_with_threshold).
type OrderSummary struct {
	Lines         []OrderLineProposal
	TotalCost     decimal.Decimal
	ShouldNotify  bool
}

// Forecaster is the component named in spec.md §4 ("Forecaster"). It derives
// consumption estimates, stockout horizons, and order quantities purely from
// already-fetched ledger data, so its core math is DB-free and unit-testable
// without a database.
type Forecaster interface {
	// AverageConsumption runs the two-pass trimmed-mean algorithm over the
	// snapshot history of one product (spec.md §4.3).
	AverageConsumption(ctx context.Context, companyID, productID int, since DateKey) (ConsumptionEstimate, error)
	DaysUntilStockout(availableStock, avgDailyConsumption decimal.Decimal) int
	// OrderQuantity computes (neededWeight, boxes) for one product per
	// spec.md §4.4's 0.2 rounding rule.
	OrderQuantity(avgDailyConsumption decimal.Decimal, days int, currentStock, boxWeight, pendingWeight decimal.Decimal, use02Rule bool) (decimal.Decimal, int)
	// SelectItemsToOrder fans out AverageConsumption + OrderQuantity across
	// every active product in the company concurrently (errgroup-bounded)
	// and returns only the ones that should be ordered, sorted ascending by
	// days-until-stockout (spec.md §4.5, get_products_to_order).
	SelectItemsToOrder(ctx context.Context, companyID int, daysThreshold, orderDays int, use02Rule, includePending bool) ([]OrderLineProposal, error)
	// SummarizeOrder prices a proposal set against the catalog and decides
	// whether the total crosses the notify threshold (spec.md §4.5).
	SummarizeOrder(ctx context.Context, companyID int, lines []OrderLineProposal, thresholdAmount decimal.Decimal) (OrderSummary, error)
}

type forecaster struct {
	ledger  Ledger
	catalog Catalog
	books   OrderBook
	clock   Clock
	// maxConcurrentForecasts bounds the errgroup fan-out in SelectItemsToOrder.
	maxConcurrentForecasts int
}

// ForecasterConfig carries the business parameters SelectItemsToOrder and
// SummarizeOrder need, loaded from internal/config (spec.md §9: these are
// operator-tunable, not hardcoded).
type ForecasterConfig struct {
	MaxConcurrentForecasts int
}

func NewForecaster(ledger Ledger, catalog Catalog, books OrderBook, clock Clock, cfg ForecasterConfig) Forecaster {
	concurrency := cfg.MaxConcurrentForecasts
	if concurrency <= 0 {
		concurrency = 8
	}
	return &forecaster{ledger: ledger, catalog: catalog, books: books, clock: clock, maxConcurrentForecasts: concurrency}
}

// consumptionPeriod mirrors one entry of calculate_average_consumption's
// first-pass list: a consecutive snapshot pair with its derived daily rate.
type consumptionPeriod struct {
	dailyConsumption decimal.Decimal
	consumption      decimal.Decimal
	daysDiff         int
}

func (f *forecaster) AverageConsumption(ctx context.Context, companyID, productID int, since DateKey) (ConsumptionEstimate, error) {
	history, err := f.ledger.History(ctx, companyID, productID, since)
	if err != nil {
		return ConsumptionEstimate{}, err
	}
	if len(history) < 2 {
		return ConsumptionEstimate{AverageDailyConsumption: decimal.Zero, Warning: "insufficient snapshot history"}, nil
	}

	// First pass: derive a period for every consecutive snapshot pair.
	var periods []consumptionPeriod
	for i := 0; i < len(history)-1; i++ {
		s1, s2 := history[i], history[i+1]
		consumption, daysDiff, ok, err := f.ledger.ComputePeriodConsumption(ctx, companyID, productID, s1, s2)
		if err != nil {
			return ConsumptionEstimate{}, err
		}
		if !ok {
			continue
		}
		daily := consumption.Div(decimal.NewFromInt(int64(daysDiff)))
		periods = append(periods, consumptionPeriod{dailyConsumption: daily, consumption: consumption, daysDiff: daysDiff})
	}

	if len(periods) == 0 {
		return ConsumptionEstimate{AverageDailyConsumption: decimal.Zero, Warning: "insufficient snapshot history"}, nil
	}

	preliminarySum := decimal.Zero
	for _, p := range periods {
		preliminarySum = preliminarySum.Add(p.dailyConsumption)
	}
	preliminaryMean := preliminarySum.Div(decimal.NewFromInt(int64(len(periods))))

	// Second pass: drop anomalous periods.
	anomalyThreshold, _ := decimal.NewFromString(anomalyMultiple)
	cutoff := preliminaryMean.Mul(anomalyThreshold)
	var filtered []consumptionPeriod
	for _, p := range periods {
		if p.dailyConsumption.GreaterThan(cutoff) {
			continue
		}
		filtered = append(filtered, p)
	}

	if len(filtered) == 0 {
		return ConsumptionEstimate{
			AverageDailyConsumption: preliminaryMean,
			PeriodsUsed:             len(periods),
			AnomaliesExcluded:       len(periods),
			Warning:                 "all periods were anomalous; using unfiltered mean",
		}, nil
	}

	finalSum := decimal.Zero
	for _, p := range filtered {
		finalSum = finalSum.Add(p.dailyConsumption)
	}
	finalMean := finalSum.Div(decimal.NewFromInt(int64(len(filtered))))

	anomalies := len(periods) - len(filtered)
	warning := ""
	switch {
	case len(filtered) < 3:
		warning = "fewer than 3 usable periods; estimate may be unreliable"
	case anomalies > 0:
		warning = "excluded anomalous consumption periods from the average"
	}

	return ConsumptionEstimate{
		AverageDailyConsumption: finalMean,
		PeriodsUsed:             len(filtered),
		AnomaliesExcluded:       anomalies,
		Warning:                 warning,
	}, nil
}

func (f *forecaster) DaysUntilStockout(availableStock, avgDailyConsumption decimal.Decimal) int {
	if avgDailyConsumption.LessThanOrEqual(decimal.Zero) {
		return stockoutSentinelDays
	}
	ratio := availableStock.Div(avgDailyConsumption)
	return int(ratio.IntPart())
}

func (f *forecaster) OrderQuantity(avgDailyConsumption decimal.Decimal, days int, currentStock, boxWeight, pendingWeight decimal.Decimal, use02Rule bool) (decimal.Decimal, int) {
	if boxWeight.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, 0
	}
	requiredWeight := avgDailyConsumption.Mul(decimal.NewFromInt(int64(days)))
	availableWeight := currentStock.Add(pendingWeight)
	neededWeight := requiredWeight.Sub(availableWeight)
	if neededWeight.LessThan(decimal.Zero) {
		neededWeight = decimal.Zero
	}

	minFraction, _ := decimal.NewFromString(minOrderFraction)
	if neededWeight.LessThan(boxWeight.Mul(minFraction)) {
		return decimal.Zero, 0
	}

	boxesDecimal := neededWeight.Div(boxWeight)
	integerPart := boxesDecimal.Truncate(0)
	fractional := boxesDecimal.Sub(integerPart)

	var boxes decimal.Decimal
	if use02Rule {
		cutoff, _ := decimal.NewFromString(boxRoundingCutoff)
		if fractional.LessThanOrEqual(cutoff) {
			boxes = integerPart
		} else {
			boxes = integerPart.Add(decimal.NewFromInt(1))
		}
	} else {
		boxes = boxesDecimal.Ceil()
	}

	boxesInt := int(boxes.IntPart())
	if boxesInt == 0 {
		return decimal.Zero, 0
	}
	return neededWeight, boxesInt
}

func (f *forecaster) SelectItemsToOrder(ctx context.Context, companyID int, daysThreshold, orderDays int, use02Rule, includePending bool) ([]OrderLineProposal, error) {
	products, err := f.catalog.ListProducts(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	latest, err := f.ledger.LatestSnapshotsPerProduct(ctx, companyID)
	if err != nil {
		return nil, err
	}

	results := make([]*OrderLineProposal, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxConcurrentForecasts)

	for i, p := range products {
		i, p := i, p
		g.Go(func() error {
			snap, ok := latest[p.ID]
			if !ok {
				return nil // never counted; nothing to project
			}

			since := snap.Date.AddDays(-30)
			estimate, err := f.AverageConsumption(gctx, companyID, p.ID, since)
			if err != nil {
				return err
			}

			pendingWeight := decimal.Zero
			if includePending && f.books != nil {
				w, err := f.books.InTransitWeight(gctx, companyID, p.ID)
				if err != nil {
					return err
				}
				pendingWeight = w
			}

			daysLeft := f.DaysUntilStockout(snap.Weight.Add(pendingWeight), estimate.AverageDailyConsumption)
			if daysLeft > daysThreshold {
				return nil
			}

			neededWeight, boxes := f.OrderQuantity(estimate.AverageDailyConsumption, orderDays, snap.Weight, p.BoxWeight, pendingWeight, use02Rule)
			if boxes == 0 {
				return nil
			}

			results[i] = &OrderLineProposal{
				ProductID:               p.ID,
				AverageDailyConsumption: estimate.AverageDailyConsumption,
				DaysUntilStockout:       daysLeft,
				NeededWeight:            neededWeight,
				Boxes:                   boxes,
				Urgent:                  daysLeft <= 3,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []OrderLineProposal
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntilStockout < out[j].DaysUntilStockout
	})
	return out, nil
}

func (f *forecaster) SummarizeOrder(ctx context.Context, companyID int, lines []OrderLineProposal, thresholdAmount decimal.Decimal) (OrderSummary, error) {
	total := decimal.Zero
	priced := make([]OrderLineProposal, len(lines))
	for i, line := range lines {
		p, err := f.catalog.GetProduct(ctx, companyID, line.ProductID)
		if err != nil {
			return OrderSummary{}, err
		}
		boxesDec := decimal.NewFromInt(int64(line.Boxes))
		line.Cost = boxesDec.Mul(p.PricePerBox)
		total = total.Add(line.Cost)
		priced[i] = line
	}
	return OrderSummary{
		Lines:        priced,
		TotalCost:    total,
		ShouldNotify: total.GreaterThanOrEqual(thresholdAmount),
	}, nil
}
