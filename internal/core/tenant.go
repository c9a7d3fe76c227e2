package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Company is the tenant root (spec.md §3).
type Company struct {
	ID                 int
	Name               string
	SubscriptionStatus SubscriptionStatus
	SubscriptionEndsAt *time.Time
	CreatedAt          time.Time
}

// User is a person authorized to act for a company (spec.md §3).
type User struct {
	ID        int64 // Telegram user id
	CompanyID *int
	Username  string
	FirstName string
	LastName  string
	Role      Role
	IsActive  bool
	LastSeen  *time.Time
}

// TenantStore is the company lifecycle component (spec.md §4, component
// "TenantStore").
type TenantStore interface {
	// CreateCompany is a super-admin operation: only an actor resolved as the
	// platform super-admin (AccessPolicy) may call it successfully end to end,
	// but the store itself trusts the caller already checked that.
	CreateCompany(ctx context.Context, name string) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	GetCompany(ctx context.Context, companyID int) (*Company, error)
	UpdateSubscription(ctx context.Context, companyID int, status SubscriptionStatus, endsAt *time.Time) error
	// DeleteCompany cascades across every dependent entity of companyID.
	// Company id=1 (the system tenant) can never be deleted.
	DeleteCompany(ctx context.Context, companyID int) error
	// CloneCatalogFromSystem copies every active product of the system
	// tenant (id=1) into companyID, preserving names/packaging/pricing/unit
	// but assigning fresh product ids. See SPEC_FULL.md.
	CloneCatalogFromSystem(ctx context.Context, companyID int) (int, error)

	// GetUser backs AccessPolicy.ResolveActor. ListAdmins returns the ids of
	// a company's active admins; nothing in this module calls it, and the
	// new-submission notification receives only the company id.
	GetUser(ctx context.Context, userID int64) (*User, error)
	// UpsertUser creates the user on first contact or updates profile fields
	// on subsequent ones. A user already bound to a company cannot be
	// re-bound to a different one (spec.md §3 invariant).
	UpsertUser(ctx context.Context, u User) (*User, error)
	SetRole(ctx context.Context, userID int64, role Role) error
	ListUsers(ctx context.Context, companyID int) ([]User, error)
	ListAdmins(ctx context.Context, companyID int) ([]int64, error)
}

type tenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) TenantStore {
	return &tenantStore{pool: pool}
}

func scanCompany(row pgx.Row) (*Company, error) {
	c := &Company{}
	var status string
	if err := row.Scan(&c.ID, &c.Name, &status, &c.SubscriptionEndsAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.SubscriptionStatus = SubscriptionStatus(status)
	return c, nil
}

func (s *tenantStore) CreateCompany(ctx context.Context, name string) (*Company, error) {
	if name == "" {
		return nil, Validation("company name is required")
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO companies (name, subscription_status, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, subscription_status, subscription_ends_at, created_at`,
		name, string(SubscriptionTrial),
	)
	c, err := scanCompany(row)
	if err != nil {
		return nil, translateDBError(err, "company not found")
	}
	return c, nil
}

func (s *tenantStore) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, subscription_status, subscription_ends_at, created_at
		FROM companies ORDER BY id`)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *tenantStore) GetCompany(ctx context.Context, companyID int) (*Company, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, subscription_status, subscription_ends_at, created_at
		FROM companies WHERE id = $1`, companyID)
	c, err := scanCompany(row)
	if err != nil {
		return nil, translateDBError(err, "company %d not found", companyID)
	}
	return c, nil
}

func (s *tenantStore) UpdateSubscription(ctx context.Context, companyID int, status SubscriptionStatus, endsAt *time.Time) error {
	if !status.Valid() {
		return Validation("unknown subscription status %q", status)
	}
	// Open Question resolution (see DESIGN.md): expired/cancelled subscriptions
	// may not carry a future end date — that would be self-contradictory.
	if endsAt != nil && (status == SubscriptionExpired || status == SubscriptionCancelled) && endsAt.After(time.Now()) {
		return Validation("subscription_ends_at cannot be in the future for status %q", status)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE companies SET subscription_status = $2, subscription_ends_at = $3 WHERE id = $1`,
		companyID, string(status), endsAt)
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return NotFound("company %d not found", companyID)
	}
	return nil
}

func (s *tenantStore) DeleteCompany(ctx context.Context, companyID int) error {
	if companyID == SystemCompanyID {
		return Forbidden("company %d is the system tenant and cannot be deleted", SystemCompanyID)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, companyID)
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return NotFound("company %d not found", companyID)
	}
	return nil
}

func (s *tenantStore) CloneCatalogFromSystem(ctx context.Context, companyID int) (int, error) {
	if companyID == SystemCompanyID {
		return 0, Validation("cannot clone the system tenant's catalog into itself")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, translateDBError(err, "")
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT name_internal, name_russian, name_chinese, package_weight, units_per_box,
		       box_weight, price_per_box, unit
		FROM products WHERE company_id = $1 AND is_active = true`, SystemCompanyID)
	if err != nil {
		return 0, translateDBError(err, "")
	}

	type tmplProduct struct {
		nameInternal, nameRussian, nameChinese string
		packageWeight, unitsPerBox, boxWeight  string
		pricePerBox                            string
		unit                                   string
	}
	var templates []tmplProduct
	for rows.Next() {
		var p tmplProduct
		if err := rows.Scan(&p.nameInternal, &p.nameRussian, &p.nameChinese, &p.packageWeight,
			&p.unitsPerBox, &p.boxWeight, &p.pricePerBox, &p.unit); err != nil {
			rows.Close()
			return 0, translateDBError(err, "")
		}
		templates = append(templates, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, translateDBError(err, "")
	}

	cloned := 0
	for _, p := range templates {
		_, err := tx.Exec(ctx, `
			INSERT INTO products (company_id, name_internal, name_russian, name_chinese,
			                      package_weight, units_per_box, box_weight, price_per_box, unit, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, NOW())
			ON CONFLICT (company_id, name_internal) DO NOTHING`,
			companyID, p.nameInternal, p.nameRussian, p.nameChinese,
			p.packageWeight, p.unitsPerBox, p.boxWeight, p.pricePerBox, p.unit)
		if err != nil {
			return 0, translateDBError(err, "")
		}
		cloned++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, translateDBError(err, "")
	}
	return cloned, nil
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	var role string
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Username, &u.FirstName, &u.LastName, &role, &u.IsActive, &u.LastSeen); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return u, nil
}

func (s *tenantStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, company_id, username, first_name, last_name, role, is_active, last_seen
		FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, translateDBError(err, "user %d not found", userID)
	}
	return u, nil
}

func (s *tenantStore) UpsertUser(ctx context.Context, u User) (*User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err == nil && existing.CompanyID != nil && u.CompanyID != nil && *existing.CompanyID != *u.CompanyID {
		return nil, Forbidden("user %d is already bound to company %d and cannot be re-bound to company %d",
			u.ID, *existing.CompanyID, *u.CompanyID)
	}

	role := u.Role
	if role == "" {
		role = RoleEmployee
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, company_id, username, first_name, last_name, role, is_active, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, true, NOW())
		ON CONFLICT (id) DO UPDATE SET
			company_id = COALESCE(users.company_id, EXCLUDED.company_id),
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			last_seen = NOW()
		RETURNING id, company_id, username, first_name, last_name, role, is_active, last_seen`,
		u.ID, u.CompanyID, u.Username, u.FirstName, u.LastName, string(role))
	out, err := scanUser(row)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	return out, nil
}

func (s *tenantStore) SetRole(ctx context.Context, userID int64, role Role) error {
	if !role.Valid() {
		return Validation("unknown role %q", role)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE id = $1`, userID, string(role))
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return NotFound("user %d not found", userID)
	}
	return nil
}

func (s *tenantStore) ListUsers(ctx context.Context, companyID int) ([]User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, username, first_name, last_name, role, is_active, last_seen
		FROM users WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *tenantStore) ListAdmins(ctx context.Context, companyID int) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM users WHERE company_id = $1 AND role = $2 AND is_active = true`,
		companyID, string(RoleAdmin))
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
