package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// supplyBoundaryFactor is the "already reflected in the opening snapshot"
// heuristic from original_source/utils/calculations.py: a supply dated
// exactly on the period's start day is excluded from that period's inflow
// if the opening stock already covers at least 90% of the delivered weight
// (it was most likely counted into the snapshot already).
const supplyBoundaryFactor = "0.9"

// StockSnapshot is a point-in-time stock count for one product (spec.md §3).
// Invariant: Weight == Quantity * product.PackageWeight (enforced on write
// by the caller, since StockSnapshot itself doesn't carry the product).
type StockSnapshot struct {
	CompanyID  int
	ProductID  int
	Date       DateKey
	Quantity   decimal.Decimal
	Weight     decimal.Decimal
	RecordedBy int64
}

// SupplyEvent is an append-only record of stock arriving (spec.md §3).
// Invariant: Weight == Boxes * product.BoxWeight; Cost == Boxes * product.PricePerBox
// at the time of entry.
type SupplyEvent struct {
	ID        int64
	CompanyID int
	ProductID int
	Date      DateKey
	Boxes     int
	Weight    decimal.Decimal
	Cost      decimal.Decimal
	Source    string // "order" | "manual"
}

// Ledger is the component named in spec.md §4 ("Ledger"): it stores
// snapshots and supply events and derives consumption between two
// snapshots via the accounting identity in spec.md §4.2.
type Ledger interface {
	RecordSnapshot(ctx context.Context, s StockSnapshot) error
	RecordSupply(ctx context.Context, e SupplyEvent) (*SupplyEvent, error)
	SnapshotOn(ctx context.Context, companyID, productID int, date DateKey) (*StockSnapshot, error)
	// LatestSnapshotsPerProduct returns, for every product in the company,
	// its most recent snapshot (or none if the product has never been
	// counted).
	LatestSnapshotsPerProduct(ctx context.Context, companyID int) (map[int]StockSnapshot, error)
	// History returns every snapshot for productID in the half-open window
	// (since, latest snapshot date], ordered ascending by date.
	History(ctx context.Context, companyID, productID int, since DateKey) ([]StockSnapshot, error)
	// SuppliesBetween returns supplies in the half-open interval
	// start < date <= end for productID (or every product if productID == 0).
	SuppliesBetween(ctx context.Context, companyID, productID int, start, end DateKey) ([]SupplyEvent, error)
	// ComputePeriodConsumption implements the identity in spec.md §4.2:
	// consumption(s1 -> s2) = weight(s1) + sum(supplies in [s1.date, s2.date])
	//                          - weight(s2), clipped at zero.
	// The supply window is inclusive on both ends: a same-day supply is
	// either folded into s1's opening weight (the 0.9 boundary heuristic) or
	// counted as inflow, it is never silently dropped. It returns
	// (consumption, daysDiff, ok); ok is false when the period should be
	// skipped entirely (s1 or s2 is a zero snapshot, or daysDiff <= 0),
	// matching calculate_average_consumption's first pass.
	ComputePeriodConsumption(ctx context.Context, companyID, productID int, s1, s2 StockSnapshot) (decimal.Decimal, int, bool, error)
}

type ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) Ledger {
	return &ledger{pool: pool}
}

func (l *ledger) RecordSnapshot(ctx context.Context, s StockSnapshot) error {
	if s.Weight.LessThan(decimal.Zero) {
		return Validation("snapshot weight cannot be negative")
	}
	if s.Quantity.LessThan(decimal.Zero) {
		return Validation("snapshot quantity cannot be negative")
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO stock_snapshots (company_id, product_id, date, quantity, weight, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id, product_id, date) DO UPDATE SET
			quantity = EXCLUDED.quantity, weight = EXCLUDED.weight, recorded_by = EXCLUDED.recorded_by`,
		s.CompanyID, s.ProductID, s.Date.Time(), s.Quantity, s.Weight, s.RecordedBy)
	if err != nil {
		return translateDBError(err, "")
	}
	return nil
}

func (l *ledger) RecordSupply(ctx context.Context, e SupplyEvent) (*SupplyEvent, error) {
	if e.Weight.LessThanOrEqual(decimal.Zero) {
		return nil, Validation("supply weight must be positive")
	}
	if e.Boxes <= 0 {
		return nil, Validation("supply boxes must be positive")
	}
	if e.Cost.LessThan(decimal.Zero) {
		return nil, Validation("supply cost cannot be negative")
	}
	row := l.pool.QueryRow(ctx, `
		INSERT INTO supply_events (company_id, product_id, date, boxes, weight, cost, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, company_id, product_id, date, boxes, weight, cost, source`,
		e.CompanyID, e.ProductID, e.Date.Time(), e.Boxes, e.Weight, e.Cost, e.Source)
	out, err := scanSupplyEvent(row)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	return out, nil
}

func scanSnapshot(row pgx.Row) (*StockSnapshot, error) {
	s := &StockSnapshot{}
	var date time.Time
	if err := row.Scan(&s.CompanyID, &s.ProductID, &date, &s.Quantity, &s.Weight, &s.RecordedBy); err != nil {
		return nil, err
	}
	s.Date = NewDateKey(date)
	return s, nil
}

func scanSupplyEvent(row pgx.Row) (*SupplyEvent, error) {
	e := &SupplyEvent{}
	var date time.Time
	if err := row.Scan(&e.ID, &e.CompanyID, &e.ProductID, &date, &e.Boxes, &e.Weight, &e.Cost, &e.Source); err != nil {
		return nil, err
	}
	e.Date = NewDateKey(date)
	return e, nil
}

func (l *ledger) SnapshotOn(ctx context.Context, companyID, productID int, date DateKey) (*StockSnapshot, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT company_id, product_id, date, quantity, weight, recorded_by
		FROM stock_snapshots WHERE company_id = $1 AND product_id = $2 AND date = $3`,
		companyID, productID, date.Time())
	s, err := scanSnapshot(row)
	if err != nil {
		return nil, translateDBError(err, "no snapshot for product %d on %s", productID, date)
	}
	return s, nil
}

func (l *ledger) LatestSnapshotsPerProduct(ctx context.Context, companyID int) (map[int]StockSnapshot, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT DISTINCT ON (product_id) company_id, product_id, date, quantity, weight, recorded_by
		FROM stock_snapshots WHERE company_id = $1
		ORDER BY product_id, date DESC`, companyID)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	out := map[int]StockSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out[s.ProductID] = *s
	}
	return out, rows.Err()
}

func (l *ledger) History(ctx context.Context, companyID, productID int, since DateKey) ([]StockSnapshot, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT company_id, product_id, date, quantity, weight, recorded_by
		FROM stock_snapshots
		WHERE company_id = $1 AND product_id = $2 AND date > $3
		ORDER BY date ASC`, companyID, productID, since.Time())
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []StockSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (l *ledger) SuppliesBetween(ctx context.Context, companyID, productID int, start, end DateKey) ([]SupplyEvent, error) {
	var rows pgx.Rows
	var err error
	if productID == 0 {
		rows, err = l.pool.Query(ctx, `
			SELECT id, company_id, product_id, date, boxes, weight, cost, source
			FROM supply_events
			WHERE company_id = $1 AND date > $2 AND date <= $3
			ORDER BY product_id, date ASC`, companyID, start.Time(), end.Time())
	} else {
		rows, err = l.pool.Query(ctx, `
			SELECT id, company_id, product_id, date, boxes, weight, cost, source
			FROM supply_events
			WHERE company_id = $1 AND product_id = $2 AND date > $3 AND date <= $4
			ORDER BY date ASC`, companyID, productID, start.Time(), end.Time())
	}
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []SupplyEvent
	for rows.Next() {
		e, err := scanSupplyEvent(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// suppliesInclusive returns supplies for productID in [start, end], both
// ends inclusive. Only ComputePeriodConsumption uses this window; every
// other caller wants SuppliesBetween's half-open (start, end] semantics.
func (l *ledger) suppliesInclusive(ctx context.Context, companyID, productID int, start, end DateKey) ([]SupplyEvent, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, company_id, product_id, date, boxes, weight, cost, source
		FROM supply_events
		WHERE company_id = $1 AND product_id = $2 AND date >= $3 AND date <= $4
		ORDER BY date ASC`, companyID, productID, start.Time(), end.Time())
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []SupplyEvent
	for rows.Next() {
		e, err := scanSupplyEvent(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (l *ledger) ComputePeriodConsumption(ctx context.Context, companyID, productID int, s1, s2 StockSnapshot) (decimal.Decimal, int, bool, error) {
	if s1.Weight.IsZero() || s2.Weight.IsZero() {
		return decimal.Zero, 0, false, nil
	}
	daysDiff := s2.Date.DaysSince(s1.Date)
	if daysDiff <= 0 {
		return decimal.Zero, 0, false, nil
	}

	// Unlike SuppliesBetween (half-open, used for the public reporting
	// operation), the consumption identity needs the start day inclusive so
	// a same-day supply reaches the 0.9 boundary heuristic below instead of
	// being dropped by the SQL filter before the heuristic ever runs.
	supplies, err := l.suppliesInclusive(ctx, companyID, productID, s1.Date, s2.Date)
	if err != nil {
		return decimal.Zero, 0, false, err
	}

	boundaryFactor, _ := decimal.NewFromString(supplyBoundaryFactor)
	inflow := decimal.Zero
	for _, sup := range supplies {
		if sup.Date.Equal(s1.Date) && s1.Weight.GreaterThanOrEqual(sup.Weight.Mul(boundaryFactor)) {
			// already reflected in the opening snapshot; skip
			continue
		}
		inflow = inflow.Add(sup.Weight)
	}

	consumption := s1.Weight.Add(inflow).Sub(s2.Weight)
	if consumption.LessThan(decimal.Zero) {
		consumption = decimal.Zero
	}
	return consumption, daysDiff, true, nil
}
