package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockSubmission is an employee-reported stock count awaiting admin
// moderation (spec.md §3/§4.6 — "StockSubmission").
type StockSubmission struct {
	ID           int64
	CompanyID    int
	SubmittedBy  int64
	Date         DateKey
	Status       SubmissionStatus
	ReviewedBy   *int64
	ReviewedAt   *time.Time
	RejectReason string
}

// StockSubmissionItem is one product/quantity row within a submission. An
// admin may edit Quantity/Weight before approving; EditedQuantity/
// EditedWeight (when non-nil) win over Quantity/Weight at approval time,
// exactly like original_source/database_pg.py's approve_submission COALESCE.
type StockSubmissionItem struct {
	ID              int64
	SubmissionID    int64
	ProductID       int
	Quantity        decimal.Decimal
	Weight          decimal.Decimal
	EditedQuantity  *decimal.Decimal
	EditedWeight    *decimal.Decimal
}

// SubmissionQueue is the component named in spec.md §4 ("SubmissionQueue"):
// the StockSubmission state machine (pending -> approved | rejected).
type SubmissionQueue interface {
	// SubmitStock creates a new pending submission. It is a Conflict for the
	// same user to submit twice for the same date while a prior submission
	// for that date is still pending (spec.md §4.6 edge case).
	SubmitStock(ctx context.Context, companyID int, submittedBy int64, date DateKey, items []StockSubmissionItem) (*StockSubmission, error)
	EditItem(ctx context.Context, companyID int, submissionID int64, productID int, quantity, weight decimal.Decimal) error
	GetSubmission(ctx context.Context, companyID int, submissionID int64) (*StockSubmission, error)
	GetSubmissionItems(ctx context.Context, submissionID int64) ([]StockSubmissionItem, error)
	ListPendingForCompany(ctx context.Context, companyID int) ([]StockSubmission, error)
	UserSubmissions(ctx context.Context, companyID int, userID int64) ([]StockSubmission, error)
	// Approve applies each item's (possibly edited) quantity/weight as a
	// RecordSnapshot upsert and transitions the submission to approved,
	// inside one transaction. Returns the submitter's id so the caller can
	// notify them.
	Approve(ctx context.Context, companyID int, submissionID int64, reviewedBy int64) (submittedBy int64, err error)
	// Reject transitions the submission to rejected; reason is mandatory
	// (spec.md §4.6).
	Reject(ctx context.Context, companyID int, submissionID int64, reviewedBy int64, reason string) (submittedBy int64, err error)
}

type submissionQueue struct {
	pool *pgxpool.Pool
}

func NewSubmissionQueue(pool *pgxpool.Pool) SubmissionQueue {
	return &submissionQueue{pool: pool}
}

func scanSubmission(row pgx.Row) (*StockSubmission, error) {
	s := &StockSubmission{}
	var status string
	var date time.Time
	var rejectReason *string
	if err := row.Scan(&s.ID, &s.CompanyID, &s.SubmittedBy, &date, &status,
		&s.ReviewedBy, &s.ReviewedAt, &rejectReason); err != nil {
		return nil, err
	}
	s.Date = NewDateKey(date)
	s.Status = SubmissionStatus(status)
	if rejectReason != nil {
		s.RejectReason = *rejectReason
	}
	return s, nil
}

func (q *submissionQueue) SubmitStock(ctx context.Context, companyID int, submittedBy int64, date DateKey, items []StockSubmissionItem) (*StockSubmission, error) {
	if len(items) == 0 {
		return nil, Validation("a submission must contain at least one item")
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer tx.Rollback(ctx)

	var existingCount int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_submissions
		WHERE company_id = $1 AND submitted_by = $2 AND date = $3 AND status = $4`,
		companyID, submittedBy, date.Time(), string(SubmissionPending),
	).Scan(&existingCount); err != nil {
		return nil, translateDBError(err, "")
	}
	if existingCount > 0 {
		return nil, Conflict("user %d already has a pending submission for %s", submittedBy, date)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO stock_submissions (company_id, submitted_by, date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, submitted_by, date, status, reviewed_by, reviewed_at, reject_reason`,
		companyID, submittedBy, date.Time(), string(SubmissionPending))
	submission, err := scanSubmission(row)
	if err != nil {
		return nil, translateDBError(err, "")
	}

	for _, item := range items {
		if item.Quantity.LessThan(decimal.Zero) || item.Weight.LessThan(decimal.Zero) {
			return nil, Validation("submission item for product %d cannot carry a negative quantity/weight", item.ProductID)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_submission_items (submission_id, product_id, quantity, weight)
			VALUES ($1, $2, $3, $4)`,
			submission.ID, item.ProductID, item.Quantity, item.Weight)
		if err != nil {
			return nil, translateDBError(err, "")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(err, "")
	}
	return submission, nil
}

func (q *submissionQueue) EditItem(ctx context.Context, companyID int, submissionID int64, productID int, quantity, weight decimal.Decimal) error {
	sub, err := q.GetSubmission(ctx, companyID, submissionID)
	if err != nil {
		return err
	}
	if sub.Status != SubmissionPending {
		return Conflict("submission %d is no longer pending", submissionID)
	}
	tag, err := q.pool.Exec(ctx, `
		UPDATE stock_submission_items SET edited_quantity = $3, edited_weight = $4
		WHERE submission_id = $1 AND product_id = $2`,
		submissionID, productID, quantity, weight)
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return NotFound("product %d not found on submission %d", productID, submissionID)
	}
	return nil
}

func (q *submissionQueue) GetSubmission(ctx context.Context, companyID int, submissionID int64) (*StockSubmission, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, company_id, submitted_by, date, status, reviewed_by, reviewed_at, reject_reason
		FROM stock_submissions WHERE company_id = $1 AND id = $2`, companyID, submissionID)
	s, err := scanSubmission(row)
	if err != nil {
		return nil, translateDBError(err, "submission %d not found in company %d", submissionID, companyID)
	}
	return s, nil
}

func (q *submissionQueue) GetSubmissionItems(ctx context.Context, submissionID int64) ([]StockSubmissionItem, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, submission_id, product_id, quantity, weight, edited_quantity, edited_weight
		FROM stock_submission_items WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []StockSubmissionItem
	for rows.Next() {
		var it StockSubmissionItem
		if err := rows.Scan(&it.ID, &it.SubmissionID, &it.ProductID, &it.Quantity, &it.Weight,
			&it.EditedQuantity, &it.EditedWeight); err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (q *submissionQueue) ListPendingForCompany(ctx context.Context, companyID int) ([]StockSubmission, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, company_id, submitted_by, date, status, reviewed_by, reviewed_at, reject_reason
		FROM stock_submissions WHERE company_id = $1 AND status = $2
		ORDER BY date`, companyID, string(SubmissionPending))
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []StockSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (q *submissionQueue) UserSubmissions(ctx context.Context, companyID int, userID int64) ([]StockSubmission, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, company_id, submitted_by, date, status, reviewed_by, reviewed_at, reject_reason
		FROM stock_submissions WHERE company_id = $1 AND submitted_by = $2
		ORDER BY date DESC`, companyID, userID)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []StockSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (q *submissionQueue) Approve(ctx context.Context, companyID int, submissionID int64, reviewedBy int64) (int64, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return 0, translateDBError(err, "")
	}
	defer tx.Rollback(ctx)

	var submittedBy int64
	var date time.Time
	if err := tx.QueryRow(ctx, `
		SELECT submitted_by, date FROM stock_submissions
		WHERE company_id = $1 AND id = $2 AND status = $3
		FOR UPDATE`,
		companyID, submissionID, string(SubmissionPending),
	).Scan(&submittedBy, &date); err != nil {
		if err == pgx.ErrNoRows {
			return 0, Conflict("submission %d is not pending (already reviewed)", submissionID)
		}
		return 0, translateDBError(err, "")
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity, weight, edited_quantity, edited_weight
		FROM stock_submission_items WHERE submission_id = $1`, submissionID)
	if err != nil {
		return 0, translateDBError(err, "")
	}
	type finalItem struct {
		productID int
		quantity  decimal.Decimal
		weight    decimal.Decimal
	}
	var items []finalItem
	for rows.Next() {
		var productID int
		var quantity, weight decimal.Decimal
		var editedQuantity, editedWeight *decimal.Decimal
		if err := rows.Scan(&productID, &quantity, &weight, &editedQuantity, &editedWeight); err != nil {
			rows.Close()
			return 0, translateDBError(err, "")
		}
		finalQuantity := quantity
		if editedQuantity != nil {
			finalQuantity = *editedQuantity
		}
		finalWeight := weight
		if editedWeight != nil {
			finalWeight = *editedWeight
		}
		items = append(items, finalItem{productID: productID, quantity: finalQuantity, weight: finalWeight})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, translateDBError(err, "")
	}

	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_snapshots (company_id, product_id, date, quantity, weight, recorded_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (company_id, product_id, date) DO UPDATE SET
				quantity = EXCLUDED.quantity, weight = EXCLUDED.weight, recorded_by = EXCLUDED.recorded_by`,
			companyID, it.productID, date, it.quantity, it.weight, reviewedBy)
		if err != nil {
			return 0, translateDBError(err, "")
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE stock_submissions SET status = $3, reviewed_by = $4, reviewed_at = NOW()
		WHERE company_id = $1 AND id = $2`,
		companyID, submissionID, string(SubmissionApproved), reviewedBy); err != nil {
		return 0, translateDBError(err, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, translateDBError(err, "")
	}
	return submittedBy, nil
}

func (q *submissionQueue) Reject(ctx context.Context, companyID int, submissionID int64, reviewedBy int64, reason string) (int64, error) {
	if reason == "" {
		return 0, Validation("a rejection reason is required")
	}

	var submittedBy int64
	row := q.pool.QueryRow(ctx, `
		UPDATE stock_submissions SET status = $3, reviewed_by = $4, reviewed_at = NOW(), reject_reason = $5
		WHERE company_id = $1 AND id = $2 AND status = $6
		RETURNING submitted_by`,
		companyID, submissionID, string(SubmissionRejected), reviewedBy, reason, string(SubmissionPending))
	if err := row.Scan(&submittedBy); err != nil {
		if err == pgx.ErrNoRows {
			return 0, Conflict("submission %d is not pending (already reviewed)", submissionID)
		}
		return 0, translateDBError(err, "")
	}
	return submittedBy, nil
}
