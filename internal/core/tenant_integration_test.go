package core

import (
	"context"
	"testing"
)

func TestTenantStore_CreateAndDeleteCompany(t *testing.T) {
	pool := setupTestDB(t)
	store := NewTenantStore(pool)
	ctx := context.Background()

	c, err := store.CreateCompany(ctx, "New Franchise")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	if c.SubscriptionStatus != SubscriptionTrial {
		t.Fatalf("expected new companies to start in trial, got %s", c.SubscriptionStatus)
	}

	if err := store.DeleteCompany(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCompany: %v", err)
	}
	if _, err := store.GetCompany(ctx, c.ID); !IsKind(err, KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}

func TestTenantStore_SystemCompanyCannotBeDeleted(t *testing.T) {
	pool := setupTestDB(t)
	store := NewTenantStore(pool)

	err := store.DeleteCompany(context.Background(), SystemCompanyID)
	if !IsKind(err, KindForbidden) {
		t.Fatalf("expected Forbidden deleting the system tenant, got %v", err)
	}
}

func TestTenantStore_CloneCatalogFromSystem(t *testing.T) {
	pool := setupTestDB(t)
	store := NewTenantStore(pool)
	catalog := NewCatalog(pool)
	ctx := context.Background()

	if _, err := catalog.AddProduct(ctx, Product{
		CompanyID: SystemCompanyID, NameInternal: "template_product", Unit: UnitKg,
		PackageWeight: dec(t, "1"), UnitsPerBox: dec(t, "5"), BoxWeight: dec(t, "5"), PricePerBox: dec(t, "100"),
	}); err != nil {
		t.Fatalf("seeding system template product: %v", err)
	}

	newCompany, err := store.CreateCompany(ctx, "Franchisee")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	cloned, err := store.CloneCatalogFromSystem(ctx, newCompany.ID)
	if err != nil {
		t.Fatalf("CloneCatalogFromSystem: %v", err)
	}
	if cloned != 1 {
		t.Fatalf("expected 1 product cloned, got %d", cloned)
	}

	got, err := catalog.GetByInternalName(ctx, newCompany.ID, "template_product")
	if err != nil {
		t.Fatalf("expected cloned product to exist in new tenant: %v", err)
	}
	if !got.BoxWeight.Equal(dec(t, "5")) {
		t.Fatalf("expected cloned product to preserve packaging, got %+v", got)
	}
}

func TestTenantStore_UserCannotBeRebound(t *testing.T) {
	pool := setupTestDB(t)
	store := NewTenantStore(pool)
	ctx := context.Background()

	companyA := seedCompany(t, pool)
	companyB := seedCompany(t, pool)

	u, err := store.UpsertUser(ctx, User{ID: 42, CompanyID: &companyA, Username: "alice"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if u.CompanyID == nil || *u.CompanyID != companyA {
		t.Fatalf("expected user bound to company A")
	}

	_, err = store.UpsertUser(ctx, User{ID: 42, CompanyID: &companyB, Username: "alice"})
	if !IsKind(err, KindForbidden) {
		t.Fatalf("expected Forbidden re-binding a user to a different company, got %v", err)
	}
}
