package entity

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialect is the placeholder style of a driver.
type Dialect int

// Placeholder styles.
const (
	PlaceholderQuestion Dialect = iota
	PlaceholderDollar
)

// Open connects to driver at dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	switch driver {
	case DriverPostgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, 0, fmt.Errorf("parse postgres dsn: %w", err)
		}
		db := stdlib.OpenDB(*cfg)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, 0, fmt.Errorf("ping postgres: %w", err)
		}
		return db, PlaceholderDollar, nil
	case DriverSQLite, "":
		db, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, 0, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, 0, fmt.Errorf("ping sqlite: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, 0, fmt.Errorf("enable foreign keys: %w", err)
		}
		return db, PlaceholderQuestion, nil
	default:
		return nil, 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind rewrites ? placeholders for the dialect. Quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != PlaceholderDollar || !strings.Contains(query, "?") {
		return query
	}
	var (
		b      strings.Builder
		n      int
		quoted bool
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
