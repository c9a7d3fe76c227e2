package core

import (
	"context"
	"testing"
)

func TestSubmissionQueue_SubmitConflictsOnDuplicatePendingForSameDate(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	seedUser(t, pool, 1, companyID, RoleEmployee)
	catalog := NewCatalog(pool)
	queue := NewSubmissionQueue(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "syrup", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "10"), BoxWeight: dec(t, "10"), PricePerBox: dec(t, "500"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	date := mustDateKey(t, "2026-05-01")
	items := []StockSubmissionItem{{ProductID: p.ID, Quantity: dec(t, "10"), Weight: dec(t, "10")}}

	if _, err := queue.SubmitStock(ctx, companyID, 1, date, items); err != nil {
		t.Fatalf("first SubmitStock: %v", err)
	}
	if _, err := queue.SubmitStock(ctx, companyID, 1, date, items); !IsKind(err, KindConflict) {
		t.Fatalf("expected Conflict on duplicate pending submission for same date, got %v", err)
	}
}

func TestSubmissionQueue_ApproveAppliesEditedWeightAsSnapshot(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	seedUser(t, pool, 1, companyID, RoleEmployee)
	seedUser(t, pool, 2, companyID, RoleAdmin)
	catalog := NewCatalog(pool)
	queue := NewSubmissionQueue(pool)
	ledger := NewLedger(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "syrup", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "10"), BoxWeight: dec(t, "10"), PricePerBox: dec(t, "500"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	date := mustDateKey(t, "2026-05-02")
	submission, err := queue.SubmitStock(ctx, companyID, 1, date, []StockSubmissionItem{
		{ProductID: p.ID, Quantity: dec(t, "10"), Weight: dec(t, "10")},
	})
	if err != nil {
		t.Fatalf("SubmitStock: %v", err)
	}

	// admin corrects the reported weight before approving
	if err := queue.EditItem(ctx, companyID, submission.ID, p.ID, dec(t, "12"), dec(t, "12")); err != nil {
		t.Fatalf("EditItem: %v", err)
	}

	submittedBy, err := queue.Approve(ctx, companyID, submission.ID, 2)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if submittedBy != 1 {
		t.Fatalf("expected submittedBy 1, got %d", submittedBy)
	}

	snap, err := ledger.SnapshotOn(ctx, companyID, p.ID, date)
	if err != nil {
		t.Fatalf("SnapshotOn: %v", err)
	}
	if !snap.Weight.Equal(dec(t, "12")) {
		t.Fatalf("expected edited weight 12 to win over reported weight 10, got %s", snap.Weight)
	}

	got, err := queue.GetSubmission(ctx, companyID, submission.ID)
	if err != nil {
		t.Fatalf("GetSubmission: %v", err)
	}
	if got.Status != SubmissionApproved {
		t.Fatalf("expected status approved, got %s", got.Status)
	}
}

func TestSubmissionQueue_RejectRequiresReason(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	seedUser(t, pool, 1, companyID, RoleEmployee)
	seedUser(t, pool, 2, companyID, RoleAdmin)
	catalog := NewCatalog(pool)
	queue := NewSubmissionQueue(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "syrup", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "10"), BoxWeight: dec(t, "10"), PricePerBox: dec(t, "500"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	submission, err := queue.SubmitStock(ctx, companyID, 1, mustDateKey(t, "2026-05-03"), []StockSubmissionItem{
		{ProductID: p.ID, Quantity: dec(t, "1"), Weight: dec(t, "1")},
	})
	if err != nil {
		t.Fatalf("SubmitStock: %v", err)
	}

	if _, err := queue.Reject(ctx, companyID, submission.ID, 2, ""); !IsKind(err, KindValidationError) {
		t.Fatalf("expected validation error for missing rejection reason, got %v", err)
	}

	submittedBy, err := queue.Reject(ctx, companyID, submission.ID, 2, "weights look wrong")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if submittedBy != 1 {
		t.Fatalf("expected submittedBy 1, got %d", submittedBy)
	}

	if _, err := queue.Reject(ctx, companyID, submission.ID, 2, "again"); !IsKind(err, KindConflict) {
		t.Fatalf("expected Conflict rejecting an already-reviewed submission, got %v", err)
	}
}
