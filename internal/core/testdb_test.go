package core

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// setupTestDB connects to TEST_DATABASE_URL and truncates every table this
// package touches, the way the teacher's integration tests isolate each
// run. Tests using it are skipped entirely when the env var is absent, so
// `go test ./...` stays usable without a database.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE
			stock_submission_items, stock_submissions,
			pending_order_items, pending_orders,
			supply_events, stock_snapshots,
			products, users, companies
		RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncating test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO companies (id, name, subscription_status) VALUES (1, 'System Template', 'active')`)
	if err != nil {
		t.Fatalf("seeding system company: %v", err)
	}
	// The explicit id=1 insert does not advance the SERIAL sequence; move it
	// past 1 so seedCompany and CreateCompany get fresh ids.
	if _, err := pool.Exec(ctx, `SELECT setval(pg_get_serial_sequence('companies', 'id'), 1)`); err != nil {
		t.Fatalf("advancing companies id sequence: %v", err)
	}

	return pool
}

// seedCompany inserts a throwaway tenant and returns its id.
func seedCompany(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var id int
	err := pool.QueryRow(context.Background(), `
		INSERT INTO companies (name, subscription_status) VALUES ('Test Co', 'active') RETURNING id`).Scan(&id)
	if err != nil {
		t.Fatalf("seeding company: %v", err)
	}
	return id
}

// seedUser inserts a user bound to companyID with the given role.
func seedUser(t *testing.T, pool *pgxpool.Pool, id int64, companyID int, role Role) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (id, company_id, role) VALUES ($1, $2, $3)`, id, companyID, string(role))
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
}
