package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// New opens the SQLite database at dataSourceName, enables foreign keys and
// applies pending migrations.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", withForeignKeys(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time, and every connection to ":memory:"
	// is a separate database.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err = Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// withForeignKeys adds the driver's _pragma parameter so every connection the
// pool opens enforces foreign keys, not just the first one.
func withForeignKeys(dataSourceName string) string {
	if strings.Contains(dataSourceName, "foreign_keys") {
		return dataSourceName
	}
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	return dataSourceName + sep + "_pragma=foreign_keys(1)"
}

// Ping checks that the database is reachable.
func Ping(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}
