package core

import "testing"

func TestAuthorize_TenantIsolation(t *testing.T) {
	p := &accessPolicy{}
	actor := Actor{UserID: 1, CompanyID: 10, Role: RoleAdmin}

	if err := p.Authorize(actor, ActionViewCatalog, 20); err == nil {
		t.Fatalf("expected forbidden when resource company differs from actor company")
	} else if !IsKind(err, KindForbidden) {
		t.Fatalf("expected Forbidden kind, got %v", err)
	}

	if err := p.Authorize(actor, ActionViewCatalog, 10); err != nil {
		t.Fatalf("expected same-company access to be allowed, got %v", err)
	}
}

func TestAuthorize_RoleGating(t *testing.T) {
	p := &accessPolicy{}
	employee := Actor{UserID: 1, CompanyID: 10, Role: RoleEmployee}
	manager := Actor{UserID: 2, CompanyID: 10, Role: RoleManager}
	admin := Actor{UserID: 3, CompanyID: 10, Role: RoleAdmin}

	if err := p.Authorize(employee, ActionManageCatalog, 10); err == nil {
		t.Fatalf("expected employee to be forbidden from managing catalog")
	}
	if err := p.Authorize(manager, ActionManageCatalog, 10); err != nil {
		t.Fatalf("expected manager to manage catalog, got %v", err)
	}

	// Submission moderation is open to both managers and admins.
	if err := p.Authorize(manager, ActionModerateSubmission, 10); err != nil {
		t.Fatalf("expected manager to moderate submissions, got %v", err)
	}
	if err := p.Authorize(admin, ActionModerateSubmission, 10); err != nil {
		t.Fatalf("expected admin to moderate submissions, got %v", err)
	}

	if err := p.Authorize(employee, ActionSubmitStock, 10); err != nil {
		t.Fatalf("expected any active role to submit stock, got %v", err)
	}
}

func TestAuthorize_PlatformAction(t *testing.T) {
	p := &accessPolicy{}
	platformAdmin := Actor{UserID: 1, CompanyID: SystemCompanyID, Role: RoleAdmin, IsPlatformAdmin: true}
	tenantAdmin := Actor{UserID: 2, CompanyID: 10, Role: RoleAdmin}

	if err := p.Authorize(tenantAdmin, ActionManagePlatform, SystemCompanyID); err == nil {
		t.Fatalf("expected tenant admin to be forbidden from platform actions")
	}
	if err := p.Authorize(platformAdmin, ActionManagePlatform, 999); err != nil {
		t.Fatalf("expected platform admin to manage platform regardless of resourceCompanyID, got %v", err)
	}
}
