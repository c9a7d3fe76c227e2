package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PendingOrder is an order raised against suppliers, pending delivery
// (spec.md §3/§4.6). TotalCost is the sum of every line's Cost at creation
// time; Notes is a free-form field set by whoever placed the order.
type PendingOrder struct {
	ID        int64
	CompanyID int
	Status    OrderStatus
	TotalCost decimal.Decimal
	Notes     string
	CreatedBy int64
	CreatedAt DateKey
}

// PendingOrderLine is one product/quantity row of a PendingOrder. Cost is
// BoxesOrdered * product.PricePerBox at the time the order was created.
type PendingOrderLine struct {
	ID            int64
	OrderID       int64
	ProductID     int
	BoxesOrdered  int
	WeightOrdered decimal.Decimal
	Cost          decimal.Decimal
}

// OrderBook is the component named in spec.md §4 ("OrderBook"): the
// PendingOrder state machine (pending -> completed | cancelled).
type OrderBook interface {
	// CreateOrder opens a pending order atomically with all lines and
	// computes total_cost = sum(line.Cost) (spec.md §4.4 create).
	CreateOrder(ctx context.Context, companyID int, createdBy int64, lines []PendingOrderLine, notes string) (*PendingOrder, error)
	GetOrder(ctx context.Context, companyID int, orderID int64) (*PendingOrder, error)
	GetOrderItems(ctx context.Context, companyID int, orderID int64) ([]PendingOrderLine, error)
	ListPending(ctx context.Context, companyID int) ([]PendingOrder, error)
	// CompleteOrder transitions a pending order to completed and, inside the
	// same transaction, emits one SupplyEvent per line dated today — the
	// only place a PendingOrder feeds the Ledger (spec.md §4.6).
	CompleteOrder(ctx context.Context, companyID int, orderID int64, today DateKey) error
	// CancelOrder transitions a pending order to cancelled. No ledger effect.
	CancelOrder(ctx context.Context, companyID int, orderID int64) error
	// InTransitWeight sums the weight of productID across every order still
	// pending for companyID, used by Forecaster when includePending is set.
	InTransitWeight(ctx context.Context, companyID, productID int) (decimal.Decimal, error)
}

type orderBook struct {
	pool *pgxpool.Pool
}

func NewOrderBook(pool *pgxpool.Pool) OrderBook {
	return &orderBook{pool: pool}
}

func (b *orderBook) CreateOrder(ctx context.Context, companyID int, createdBy int64, lines []PendingOrderLine, notes string) (*PendingOrder, error) {
	if len(lines) == 0 {
		return nil, Validation("an order must contain at least one line")
	}
	totalCost := decimal.Zero
	for _, line := range lines {
		if line.BoxesOrdered <= 0 {
			return nil, Validation("order line for product %d must have a positive box count", line.ProductID)
		}
		totalCost = totalCost.Add(line.Cost)
	}

	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO pending_orders (company_id, status, total_cost, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, company_id, status, total_cost, notes, created_by, created_at`,
		companyID, string(OrderPending), totalCost, notes, createdBy)

	order, err := scanOrder(row)
	if err != nil {
		return nil, translateDBError(err, "")
	}

	for _, line := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO pending_order_items (order_id, product_id, boxes_ordered, weight_ordered, cost)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, line.ProductID, line.BoxesOrdered, line.WeightOrdered, line.Cost)
		if err != nil {
			return nil, translateDBError(err, "")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(err, "")
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*PendingOrder, error) {
	o := &PendingOrder{}
	var status string
	var createdAt time.Time
	if err := row.Scan(&o.ID, &o.CompanyID, &status, &o.TotalCost, &o.Notes, &o.CreatedBy, &createdAt); err != nil {
		return nil, err
	}
	o.Status = OrderStatus(status)
	o.CreatedAt = NewDateKey(createdAt)
	return o, nil
}

func (b *orderBook) GetOrder(ctx context.Context, companyID int, orderID int64) (*PendingOrder, error) {
	row := b.pool.QueryRow(ctx, `
		SELECT id, company_id, status, total_cost, notes, created_by, created_at
		FROM pending_orders WHERE company_id = $1 AND id = $2`, companyID, orderID)
	o, err := scanOrder(row)
	if err != nil {
		return nil, translateDBError(err, "order %d not found in company %d", orderID, companyID)
	}
	return o, nil
}

func (b *orderBook) GetOrderItems(ctx context.Context, companyID int, orderID int64) ([]PendingOrderLine, error) {
	// Confirm tenant ownership before returning line items.
	if _, err := b.GetOrder(ctx, companyID, orderID); err != nil {
		return nil, err
	}
	rows, err := b.pool.Query(ctx, `
		SELECT id, order_id, product_id, boxes_ordered, weight_ordered, cost
		FROM pending_order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []PendingOrderLine
	for rows.Next() {
		var l PendingOrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.BoxesOrdered, &l.WeightOrdered, &l.Cost); err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (b *orderBook) ListPending(ctx context.Context, companyID int) ([]PendingOrder, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id, company_id, status, total_cost, notes, created_by, created_at
		FROM pending_orders WHERE company_id = $1 AND status = $2
		ORDER BY created_at`, companyID, string(OrderPending))
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []PendingOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (b *orderBook) CompleteOrder(ctx context.Context, companyID int, orderID int64, today DateKey) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return translateDBError(err, "")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE pending_orders SET status = $3 WHERE company_id = $1 AND id = $2 AND status = $4`,
		companyID, orderID, string(OrderCompleted), string(OrderPending))
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return Conflict("order %d is not pending (already completed or cancelled)", orderID)
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, boxes_ordered, weight_ordered, cost
		FROM pending_order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return translateDBError(err, "")
	}
	type line struct {
		productID int
		boxes     int
		weight    decimal.Decimal
		cost      decimal.Decimal
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.boxes, &l.weight, &l.cost); err != nil {
			rows.Close()
			return translateDBError(err, "")
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return translateDBError(err, "")
	}

	for _, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO supply_events (company_id, product_id, date, boxes, weight, cost, source)
			VALUES ($1, $2, $3, $4, $5, $6, 'order')`,
			companyID, l.productID, today.Time(), l.boxes, l.weight, l.cost)
		if err != nil {
			return translateDBError(err, "")
		}
	}

	return translateDBError(tx.Commit(ctx), "")
}

func (b *orderBook) CancelOrder(ctx context.Context, companyID int, orderID int64) error {
	tag, err := b.pool.Exec(ctx, `
		UPDATE pending_orders SET status = $3 WHERE company_id = $1 AND id = $2 AND status = $4`,
		companyID, orderID, string(OrderCancelled), string(OrderPending))
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return Conflict("order %d is not pending (already completed or cancelled)", orderID)
	}
	return nil
}

func (b *orderBook) InTransitWeight(ctx context.Context, companyID, productID int) (decimal.Decimal, error) {
	row := b.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(i.weight_ordered), 0)
		FROM pending_order_items i
		JOIN pending_orders o ON o.id = i.order_id
		WHERE o.company_id = $1 AND o.status = $2 AND i.product_id = $3`,
		companyID, string(OrderPending), productID)
	var total decimal.Decimal
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, translateDBError(err, "")
	}
	return total, nil
}
