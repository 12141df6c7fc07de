// Package migrations carries the schema for the watermark store and the
// seen-item ledger as embedded goose SQL, so a binary can bring its own
// database up to date without shipping loose files.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// Run brings db up to the latest schema version. Safe to call on every
// startup; already-applied migrations are skipped.
func Run(db *sql.DB) error {
	goose.SetBaseFS(FS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
