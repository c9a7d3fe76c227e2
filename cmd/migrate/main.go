// Command migrate applies every *.sql file under migrations/ in order,
// tracking applied versions and their checksums in a schema_migrations
// table, the way the teacher's cmd/verify-db does it. An advisory lock
// keeps two concurrent deploys from racing the same migration.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Muahhidun/zakupwedrink/internal/config"
)

// migrationLockKey is an arbitrary constant distinguishing this advisory
// lock from any other pg_advisory_lock user in the same database.
const migrationLockKey = 7462839

var versionPattern = regexp.MustCompile(`^(\d+)_`)

type migration struct {
	version  int
	name     string
	path     string
	checksum string
}

func main() {
	ctx := context.Background()

	secrets, err := config.LoadSecrets()
	if err != nil {
		fail("loading secrets: %v", err)
	}

	pool, err := pgxpool.New(ctx, secrets.DatabaseURL)
	if err != nil {
		fail("connecting to database: %v", err)
	}
	defer pool.Close()

	if err := acquireLock(ctx, pool); err != nil {
		fail("acquiring migration lock: %v", err)
	}

	if err := setupSchemaMigrations(ctx, pool); err != nil {
		fail("setting up schema_migrations: %v", err)
	}

	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	migrations, err := discoverMigrations(dir)
	if err != nil {
		fail("discovering migrations: %v", err)
	}

	applied := 0
	for _, m := range migrations {
		didApply, err := applyMigration(ctx, pool, m)
		if err != nil {
			fail("applying %s: %v", m.name, err)
		}
		if didApply {
			applied++
			fmt.Printf("applied %s\n", m.name)
		}
	}
	fmt.Printf("done: %d migration(s) applied, %d already up to date\n", applied, len(migrations)-applied)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool) error {
	var ok bool
	if err := pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, migrationLockKey).Scan(&ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("another migration is already running")
	}
	return nil
}

func setupSchemaMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			checksum   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func discoverMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, err := extractVersion(e.Name())
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())
		checksum, err := checksumFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, migration{version: version, name: e.Name(), path: path, checksum: checksum})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })

	for i := 1; i < len(out); i++ {
		if out[i].version == out[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)", out[i].version, out[i-1].name, out[i].name)
		}
	}
	return out, nil
}

func extractVersion(name string) (int, error) {
	m := versionPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("migration file %q has no numeric prefix", name)
	}
	return strconv.Atoi(m[1])
}

func checksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m migration) (bool, error) {
	var existingChecksum string
	err := pool.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE version = $1`, m.version).Scan(&existingChecksum)
	switch {
	case err == nil:
		if existingChecksum != m.checksum {
			return false, fmt.Errorf("checksum mismatch for already-applied migration %s: file has changed since it was applied", m.name)
		}
		return false, nil
	case err == pgx.ErrNoRows:
		// not yet applied; fall through
	default:
		return false, err
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return false, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
		m.version, m.name, m.checksum); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
