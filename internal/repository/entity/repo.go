// Package entity is the relational store of indexable domain objects. Writes
// run in a transaction; registered hooks fire only after COMMIT.
package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownEntity is returned for entities without a registered mapping.
var ErrUnknownEntity = errors.New("unknown entity")

// Change is the kind of committed write.
type Change string

// Change kinds.
const (
	Created Change = "created"
	Updated Change = "updated"
	Deleted Change = "deleted"
)

// Hook observes committed writes. It cannot affect the committed transaction.
type Hook func(ctx context.Context, obj any, change Change)

// Querier runs rebound read queries.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer runs rebound statements inside a transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Mapping binds an entity name to its tables. Queries use ? placeholders.
type Mapping struct {
	Entity string
	// Query selects every row ordered by primary key.
	Query string
	Scan  func(rows *sql.Rows) (any, error)
	// Hydrate loads relations of the scanned objects. Optional.
	Hydrate func(ctx context.Context, q Querier, objs []any) error
	// Exists selects a row by ID(obj).
	Exists string
	Write  func(ctx context.Context, tx Execer, obj any) error
	Delete func(ctx context.Context, tx Execer, obj any) error
	ID     func(obj any) any
}

// Repo reads and writes mapped entities.
type Repo struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger

	mu       sync.RWMutex
	mappings map[string]Mapping
	hooks    []Hook
}

// New creates a repository over db.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{db: db, dialect: dialect, logger: logger, mappings: map[string]Mapping{}}
}

// Register adds a mapping.
func (r *Repo) Register(m Mapping) error {
	if m.Entity == "" || m.Query == "" || m.Scan == nil || m.Write == nil || m.Delete == nil || m.ID == nil {
		return fmt.Errorf("mapping %q is incomplete", m.Entity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.mappings[m.Entity]; dup {
		return fmt.Errorf("mapping %q is already registered", m.Entity)
	}
	r.mappings[m.Entity] = m
	return nil
}

// OnCommit registers a post-commit hook.
func (r *Repo) OnCommit(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// DB returns the underlying handle.
func (r *Repo) DB() *sql.DB { return r.db }

// Dialect returns the placeholder style.
func (r *Repo) Dialect() Dialect { return r.dialect }

// Ping checks database availability.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx) //nolint:wrapcheck // passthrough
}

// Close closes the database.
func (r *Repo) Close() error {
	return r.db.Close() //nolint:wrapcheck // passthrough
}

// QueryContext runs a rebound query.
func (r *Repo) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.Rebind(query), args...) //nolint:wrapcheck // passthrough
}

// FindAll loads every object of entity in primary key order.
func (r *Repo) FindAll(ctx context.Context, entity string) ([]any, error) {
	m, err := r.mapping(entity)
	if err != nil {
		return nil, err
	}

	rows, err := r.QueryContext(ctx, m.Query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entity, err)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		obj, err := m.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		out = append(out, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", entity, err)
	}
	rows.Close()

	if m.Hydrate != nil && len(out) > 0 {
		if err := m.Hydrate(ctx, r, out); err != nil {
			return nil, fmt.Errorf("hydrate %s: %w", entity, err)
		}
	}
	return out, nil
}

// Save inserts or updates obj and fires hooks after commit.
func (r *Repo) Save(ctx context.Context, entity string, obj any) error {
	m, err := r.mapping(entity)
	if err != nil {
		return err
	}

	change := Created
	err = r.inTx(ctx, func(tx Execer) error {
		if m.Exists != "" {
			var one int
			switch err := tx.QueryRowContext(ctx, m.Exists, m.ID(obj)).Scan(&one); {
			case err == nil:
				change = Updated
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("check %s: %w", entity, err)
			}
		}
		return m.Write(ctx, tx, obj)
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", entity, err)
	}

	r.fire(ctx, obj, change)
	return nil
}

// Remove deletes obj and fires hooks after commit.
func (r *Repo) Remove(ctx context.Context, entity string, obj any) error {
	m, err := r.mapping(entity)
	if err != nil {
		return err
	}
	if err := r.inTx(ctx, func(tx Execer) error { return m.Delete(ctx, tx, obj) }); err != nil {
		return fmt.Errorf("remove %s: %w", entity, err)
	}
	r.fire(ctx, obj, Deleted)
	return nil
}

func (r *Repo) mapping(entity string) (Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[entity]
	if !ok {
		return Mapping{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return m, nil
}

func (r *Repo) inTx(ctx context.Context, fn func(tx Execer) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&rebindTx{tx: tx, dialect: r.dialect}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// fire runs hooks after commit. A panicking hook is logged and the rest still run.
func (r *Repo) fire(ctx context.Context, obj any, change Change) {
	r.mu.RLock()
	hooks := append([]Hook(nil), r.hooks...)
	r.mu.RUnlock()

	for _, h := range hooks {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("Post-commit hook panicked",
						zap.String("change", string(change)),
						zap.Any("panic", p),
					)
				}
			}()
			h(ctx, obj, change)
		}()
	}
}

type rebindTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *rebindTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.Rebind(query), args...) //nolint:wrapcheck // passthrough
}

func (t *rebindTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}
