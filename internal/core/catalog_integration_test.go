package core

import (
	"context"
	"testing"
)

func TestCatalog_AddAndGetProduct(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	catalog := NewCatalog(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyID, NameInternal: "matcha", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "10"), BoxWeight: dec(t, "10"), PricePerBox: dec(t, "4200"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	got, err := catalog.GetByInternalName(ctx, companyID, "matcha")
	if err != nil {
		t.Fatalf("GetByInternalName: %v", err)
	}
	if got.ID != p.ID || !got.BoxWeight.Equal(dec(t, "10")) {
		t.Fatalf("unexpected product round-trip: %+v", got)
	}
}

func TestCatalog_RejectsInconsistentBoxWeight(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	catalog := NewCatalog(pool)

	_, err := catalog.AddProduct(context.Background(), Product{
		CompanyID: companyID, NameInternal: "bad", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "10"), BoxWeight: dec(t, "999"), PricePerBox: dec(t, "1"),
	})
	if !IsKind(err, KindValidationError) {
		t.Fatalf("expected validation error for inconsistent box_weight, got %v", err)
	}
}

func TestCatalog_PieceUnitRequiresPackageWeightOne(t *testing.T) {
	pool := setupTestDB(t)
	companyID := seedCompany(t, pool)
	catalog := NewCatalog(pool)

	_, err := catalog.AddProduct(context.Background(), Product{
		CompanyID: companyID, NameInternal: "cup", Unit: UnitPiece,
		PackageWeight: dec(t, "2"), UnitsPerBox: dec(t, "100"), BoxWeight: dec(t, "200"), PricePerBox: dec(t, "1"),
	})
	if !IsKind(err, KindValidationError) {
		t.Fatalf("expected validation error for шт unit with package_weight != 1, got %v", err)
	}
}

func TestCatalog_TenantIsolation(t *testing.T) {
	pool := setupTestDB(t)
	companyA := seedCompany(t, pool)
	companyB := seedCompany(t, pool)
	catalog := NewCatalog(pool)
	ctx := context.Background()

	p, err := catalog.AddProduct(ctx, Product{
		CompanyID: companyA, NameInternal: "only_a", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "1"), BoxWeight: dec(t, "1"), PricePerBox: dec(t, "1"),
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	if _, err := catalog.GetProduct(ctx, companyB, p.ID); !IsKind(err, KindNotFound) {
		t.Fatalf("expected NotFound fetching company A's product from company B, got %v", err)
	}
}
