package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesMigrations(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "expenses", "events", "recurring_entries"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	assert.NoError(t, Ping(context.Background(), db))
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, Migrate(db))
}

func TestSchemaConstraints(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ('A', 'a@x.com', 'h', datetime('now'), datetime('now'))")
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ('B', 'a@x.com', 'h', datetime('now'), datetime('now'))")
	assert.Error(t, err, "email must be unique")

	_, err = db.Exec("INSERT INTO expenses (user_id, amount_cents, category, created_at) VALUES (999, 100, 'Income', datetime('now'))")
	assert.Error(t, err, "owner must exist")

	_, err = db.Exec("INSERT INTO expenses (user_id, amount_cents, category, created_at) VALUES (1, 0, 'Income', datetime('now'))")
	assert.Error(t, err, "amount must be positive")

	_, err = db.Exec("INSERT INTO expenses (user_id, amount_cents, category, created_at) VALUES (1, 100, 'Food', datetime('now'))")
	assert.Error(t, err, "category must be Income or Expense")

	_, err = db.Exec("INSERT INTO expenses (user_id, amount_cents, category, created_at) VALUES (1, 100, 'Expense', datetime('now'))")
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM expenses").Scan(&count))
	assert.Equal(t, 0, count, "expenses cascade with their owner")
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, ":memory:?_pragma=foreign_keys(1)", withForeignKeys(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared&_pragma=foreign_keys(1)", withForeignKeys("file:x.db?cache=shared"))
	assert.Equal(t, "x.db?_pragma=foreign_keys(0)", withForeignKeys("x.db?_pragma=foreign_keys(0)"))
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "fk.db"))
	require.NoError(t, err)
	defer db.Close()

	// No idle connections: every query below runs on a freshly opened one.
	db.SetMaxIdleConns(0)
	for i := 0; i < 3; i++ {
		var fk int
		require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
	}

	_, err = db.Exec("INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ('A', 'a@x.com', 'h', datetime('now'), datetime('now'))")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO expenses (user_id, amount_cents, category, created_at) VALUES (1, 100, 'Expense', datetime('now'))")
	require.NoError(t, err)
	_, err = db.Exec("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM expenses").Scan(&n))
	assert.Zero(t, n)
}
