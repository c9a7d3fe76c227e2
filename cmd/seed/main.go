// Command seed creates the system/template tenant (core.SystemCompanyID)
// if it does not already exist, and loads its product catalog from the
// small built-in set in defaultCatalog. Run once after migrate, against a
// fresh database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Muahhidun/zakupwedrink/internal/config"
	"github.com/Muahhidun/zakupwedrink/internal/core"
	"github.com/Muahhidun/zakupwedrink/internal/db"
)

func main() {
	ctx := context.Background()

	secrets, err := config.LoadSecrets()
	if err != nil {
		fail("loading secrets: %v", err)
	}
	pool, err := db.NewPool(ctx, secrets.DatabaseURL)
	if err != nil {
		fail("connecting to database: %v", err)
	}
	defer pool.Close()

	tenants := core.NewTenantStore(pool)
	catalog := core.NewCatalog(pool)

	if _, err := tenants.GetCompany(ctx, core.SystemCompanyID); err == nil {
		fmt.Println("system tenant already exists, nothing to do")
		return
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO companies (id, name, subscription_status)
		VALUES ($1, 'System Template', 'active')
		ON CONFLICT (id) DO NOTHING`, core.SystemCompanyID); err != nil {
		fail("seeding system company: %v", err)
	}
	// The explicit id insert does not advance the SERIAL sequence; move it
	// past the system id so later CreateCompany calls get fresh ids.
	if _, err := pool.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('companies', 'id'), GREATEST((SELECT MAX(id) FROM companies), $1))`,
		core.SystemCompanyID); err != nil {
		fail("advancing companies id sequence: %v", err)
	}

	for _, p := range defaultCatalog() {
		p.CompanyID = core.SystemCompanyID
		if _, err := catalog.AddProduct(ctx, p); err != nil && !core.IsKind(err, core.KindConflict) {
			fail("seeding product %s: %v", p.NameInternal, err)
		}
	}

	fmt.Println("system tenant and template catalog seeded")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// defaultCatalog is a small starter set mirroring the product families the
// original bot's operators configured by hand (spec.md §3 examples:
// powders and syrups tracked by weight, cups/lids tracked by piece).
func defaultCatalog() []core.Product {
	kg := func(s string) decimal.Decimal { d, _ := decimal.NewFromString(s); return d }
	return []core.Product{
		{
			NameInternal: "milk_powder", NameRussian: "Молочный порошок", Unit: core.UnitKg,
			PackageWeight: kg("20"), UnitsPerBox: kg("1"), BoxWeight: kg("20"), PricePerBox: kg("1800"),
		},
		{
			NameInternal: "matcha_powder", NameRussian: "Матча", Unit: core.UnitKg,
			PackageWeight: kg("1"), UnitsPerBox: kg("10"), BoxWeight: kg("10"), PricePerBox: kg("4200"),
		},
		{
			NameInternal: "cup_500ml", NameRussian: "Стакан 500мл", Unit: core.UnitPiece,
			PackageWeight: kg("1"), UnitsPerBox: kg("1000"), BoxWeight: kg("1000"), PricePerBox: kg("2500"),
		},
	}
}
