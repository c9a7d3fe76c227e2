package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Product is a trackable SKU within a company's catalog (spec.md §3).
type Product struct {
	ID            int
	CompanyID     int
	NameInternal  string
	NameRussian   string
	NameChinese   string
	PackageWeight decimal.Decimal
	UnitsPerBox   decimal.Decimal
	BoxWeight     decimal.Decimal
	PricePerBox   decimal.Decimal
	Unit          Unit
	IsActive      bool
}

// Catalog is the component named in spec.md §4 ("Catalog"): it owns
// Product lifecycle within a company.
type Catalog interface {
	AddProduct(ctx context.Context, p Product) (*Product, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeactivateProduct(ctx context.Context, companyID, productID int) error
	GetProduct(ctx context.Context, companyID, productID int) (*Product, error)
	GetByInternalName(ctx context.Context, companyID int, nameInternal string) (*Product, error)
	ListProducts(ctx context.Context, companyID int, activeOnly bool) ([]Product, error)
}

type catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) Catalog {
	return &catalog{pool: pool}
}

// validateProduct enforces spec.md §3's packaging invariants: box_weight
// must equal package_weight * units_per_box exactly (no rounding tolerance),
// and a "шт" (piece) unit always carries package_weight == 1.
func validateProduct(p Product) error {
	if p.NameInternal == "" {
		return Validation("product name_internal is required")
	}
	if !p.Unit.Valid() {
		return Validation("unknown unit %q", p.Unit)
	}
	if p.PackageWeight.LessThanOrEqual(decimal.Zero) {
		return Validation("package_weight must be positive")
	}
	if p.UnitsPerBox.LessThanOrEqual(decimal.Zero) {
		return Validation("units_per_box must be positive")
	}
	if p.Unit == UnitPiece && !p.PackageWeight.Equal(decimal.NewFromInt(1)) {
		return Validation("unit %q requires package_weight == 1", UnitPiece)
	}
	expectedBoxWeight := p.PackageWeight.Mul(p.UnitsPerBox)
	if !p.BoxWeight.Equal(expectedBoxWeight) {
		return Validation("box_weight %s does not match package_weight * units_per_box (%s)",
			p.BoxWeight, expectedBoxWeight)
	}
	if p.PricePerBox.LessThan(decimal.Zero) {
		return Validation("price_per_box cannot be negative")
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	var unit string
	if err := row.Scan(&p.ID, &p.CompanyID, &p.NameInternal, &p.NameRussian, &p.NameChinese,
		&p.PackageWeight, &p.UnitsPerBox, &p.BoxWeight, &p.PricePerBox, &unit, &p.IsActive); err != nil {
		return nil, err
	}
	p.Unit = Unit(unit)
	return p, nil
}

func (c *catalog) AddProduct(ctx context.Context, p Product) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	row := c.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, name_internal, name_russian, name_chinese,
		                      package_weight, units_per_box, box_weight, price_per_box, unit, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, NOW())
		RETURNING id, company_id, name_internal, name_russian, name_chinese,
		          package_weight, units_per_box, box_weight, price_per_box, unit, is_active`,
		p.CompanyID, p.NameInternal, p.NameRussian, p.NameChinese,
		p.PackageWeight, p.UnitsPerBox, p.BoxWeight, p.PricePerBox, string(p.Unit))
	out, err := scanProduct(row)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	return out, nil
}

func (c *catalog) UpdateProduct(ctx context.Context, p Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE products SET name_internal = $3, name_russian = $4, name_chinese = $5,
		       package_weight = $6, units_per_box = $7, box_weight = $8, price_per_box = $9, unit = $10
		WHERE company_id = $1 AND id = $2`,
		p.CompanyID, p.ID, p.NameInternal, p.NameRussian, p.NameChinese,
		p.PackageWeight, p.UnitsPerBox, p.BoxWeight, p.PricePerBox, string(p.Unit))
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return NotFound("product %d not found in company %d", p.ID, p.CompanyID)
	}
	return nil
}

func (c *catalog) DeactivateProduct(ctx context.Context, companyID, productID int) error {
	tag, err := c.pool.Exec(ctx, `
		UPDATE products SET is_active = false WHERE company_id = $1 AND id = $2`,
		companyID, productID)
	if err != nil {
		return translateDBError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return NotFound("product %d not found in company %d", productID, companyID)
	}
	return nil
}

func (c *catalog) GetProduct(ctx context.Context, companyID, productID int) (*Product, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT id, company_id, name_internal, name_russian, name_chinese,
		       package_weight, units_per_box, box_weight, price_per_box, unit, is_active
		FROM products WHERE company_id = $1 AND id = $2`, companyID, productID)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translateDBError(err, "product %d not found in company %d", productID, companyID)
	}
	return p, nil
}

func (c *catalog) GetByInternalName(ctx context.Context, companyID int, nameInternal string) (*Product, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT id, company_id, name_internal, name_russian, name_chinese,
		       package_weight, units_per_box, box_weight, price_per_box, unit, is_active
		FROM products WHERE company_id = $1 AND name_internal = $2`, companyID, nameInternal)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translateDBError(err, "product %q not found in company %d", nameInternal, companyID)
	}
	return p, nil
}

func (c *catalog) ListProducts(ctx context.Context, companyID int, activeOnly bool) ([]Product, error) {
	query := `
		SELECT id, company_id, name_internal, name_russian, name_chinese,
		       package_weight, units_per_box, box_weight, price_per_box, unit, is_active
		FROM products WHERE company_id = $1`
	if activeOnly {
		query += ` AND is_active = true`
	}
	query += ` ORDER BY name_internal`

	rows, err := c.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, translateDBError(err, "")
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, translateDBError(err, "")
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
