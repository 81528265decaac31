package entity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID   int64
	Body string
}

func noteMapping() Mapping {
	return Mapping{
		Entity: "note",
		Query:  "SELECT id, body FROM notes ORDER BY id",
		Scan: func(rows *sql.Rows) (any, error) {
			n := &note{}
			return n, rows.Scan(&n.ID, &n.Body)
		},
		Exists: "SELECT 1 FROM notes WHERE id = ?",
		Write: func(ctx context.Context, tx Execer, obj any) error {
			n := obj.(*note)
			if n.Body == "" {
				return errors.New("body is required")
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO notes (id, body) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET body = excluded.body",
				n.ID, n.Body)
			return err
		},
		Delete: func(ctx context.Context, tx Execer, obj any) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", obj.(*note).ID)
			return err
		},
		ID: func(obj any) any { return obj.(*note).ID },
	}
}

func newRepo(t *testing.T) *Repo {
	t.Helper()
	ctx := context.Background()
	db, dialect, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)")
	require.NoError(t, err)

	r := New(db, dialect, nil)
	require.NoError(t, r.Register(noteMapping()))
	return r
}

type recorded struct {
	id     int64
	change Change
}

func TestRepo_SaveFindRemove(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	var events []recorded
	r.OnCommit(func(_ context.Context, obj any, c Change) {
		events = append(events, recorded{obj.(*note).ID, c})
	})

	require.NoError(t, r.Save(ctx, "note", &note{ID: 2, Body: "second"}))
	require.NoError(t, r.Save(ctx, "note", &note{ID: 1, Body: "first"}))
	require.NoError(t, r.Save(ctx, "note", &note{ID: 2, Body: "second, edited"}))

	all, err := r.FindAll(ctx, "note")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, &note{ID: 1, Body: "first"}, all[0])
	assert.Equal(t, &note{ID: 2, Body: "second, edited"}, all[1])

	require.NoError(t, r.Remove(ctx, "note", &note{ID: 1}))

	assert.Equal(t, []recorded{
		{2, Created}, {1, Created}, {2, Updated}, {1, Deleted},
	}, events)
}

func TestRepo_FailedWriteSkipsHooks(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	fired := 0
	r.OnCommit(func(context.Context, any, Change) { fired++ })

	err := r.Save(ctx, "note", &note{ID: 1})
	require.Error(t, err)
	assert.Zero(t, fired)

	all, err := r.FindAll(ctx, "note")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepo_HookPanicDoesNotFailWrite(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	after := false
	r.OnCommit(func(context.Context, any, Change) { panic("index unavailable") })
	r.OnCommit(func(context.Context, any, Change) { after = true })

	require.NoError(t, r.Save(ctx, "note", &note{ID: 1, Body: "kept"}))
	assert.True(t, after, "later hooks still run")

	all, err := r.FindAll(ctx, "note")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepo_UnknownEntity(t *testing.T) {
	r := newRepo(t)
	_, err := r.FindAll(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestRepo_RegisterValidation(t *testing.T) {
	r := newRepo(t)
	assert.Error(t, r.Register(Mapping{Entity: "empty"}))
	assert.Error(t, r.Register(noteMapping()), "duplicate mapping")
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		d    Dialect
		in   string
		want string
	}{
		{PlaceholderQuestion, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = ? AND b = ?"},
		{PlaceholderDollar, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = $1 AND b = $2"},
		{PlaceholderDollar, "SELECT '?' WHERE a = ?", "SELECT '?' WHERE a = $1"},
		{PlaceholderDollar, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.Rebind(tt.in))
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, _, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}
