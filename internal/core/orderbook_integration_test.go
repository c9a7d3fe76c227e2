package core

import (
	"context"
	"testing"
)

func TestOrderBook_CompleteOrder_EmitsSupplyAndTransitions(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	seedUser(t, pool, 1, companyID, RoleAdmin)
	catalog := NewCatalog(pool)
	ledger := NewLedger(pool)
	books := NewOrderBook(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "cups", Unit: UnitPiece,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "100"), BoxWeight: dec(t, "100"), PricePerBox: dec(t, "200"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	order, err := books.CreateOrder(ctx, companyID, 1, []PendingOrderLine{
		{ProductID: p.ID, BoxesOrdered: 3, WeightOrdered: dec(t, "300"), Cost: dec(t, "600")},
	}, "restock cups")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.TotalCost.Equal(dec(t, "600")) {
		t.Fatalf("expected total cost 600, got %s", order.TotalCost)
	}
	if order.Notes != "restock cups" {
		t.Fatalf("expected notes to round-trip, got %q", order.Notes)
	}

	today := mustDateKey(t, "2026-04-01")
	if err := books.CompleteOrder(ctx, companyID, order.ID, today); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	got, err := books.GetOrder(ctx, companyID, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != OrderCompleted {
		t.Fatalf("expected order status completed, got %s", got.Status)
	}

	supplies, err := ledger.SuppliesBetween(ctx, companyID, p.ID, today.AddDays(-1), today)
	if err != nil {
		t.Fatalf("SuppliesBetween: %v", err)
	}
	if len(supplies) != 1 || !supplies[0].Weight.Equal(dec(t, "300")) ||
		supplies[0].Boxes != 3 || !supplies[0].Cost.Equal(dec(t, "600")) {
		t.Fatalf("expected one 3-box/300-weight/600-cost supply event dated today, got %+v", supplies)
	}
}

func TestOrderBook_CompleteOrder_RejectsNonPending(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	seedUser(t, pool, 1, companyID, RoleAdmin)
	catalog := NewCatalog(pool)
	books := NewOrderBook(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "cups", Unit: UnitPiece,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "100"), BoxWeight: dec(t, "100"), PricePerBox: dec(t, "200"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	order, err := books.CreateOrder(ctx, companyID, 1, []PendingOrderLine{{ProductID: p.ID, BoxesOrdered: 1, WeightOrdered: dec(t, "100"), Cost: dec(t, "200")}}, "")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if err := books.CancelOrder(ctx, companyID, order.ID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	if err := books.CompleteOrder(ctx, companyID, order.ID, mustDateKey(t, "2026-04-01")); !IsKind(err, KindConflict) {
		t.Fatalf("expected Conflict completing an already-cancelled order, got %v", err)
	}
}

func TestOrderBook_InTransitWeight(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	seedUser(t, pool, 1, companyID, RoleAdmin)
	catalog := NewCatalog(pool)
	books := NewOrderBook(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "cups", Unit: UnitPiece,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "100"), BoxWeight: dec(t, "100"), PricePerBox: dec(t, "200"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	if _, err := books.CreateOrder(ctx, companyID, 1, []PendingOrderLine{{ProductID: p.ID, BoxesOrdered: 2, WeightOrdered: dec(t, "200"), Cost: dec(t, "400")}}, ""); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	total, err := books.InTransitWeight(ctx, companyID, p.ID)
	if err != nil {
		t.Fatalf("InTransitWeight: %v", err)
	}
	if !total.Equal(dec(t, "200")) {
		t.Fatalf("expected in-transit weight 200, got %s", total)
	}
}
