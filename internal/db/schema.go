// Package db keeps the build journal in sqlite.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
)

//go:embed migration/*.sql
var migrationFiles embed.FS

// InitSchema applies the embedded migration. It is idempotent.
func InitSchema(ctx context.Context, amethystDB *sql.DB) error {
	schema, err := migrationFiles.ReadFile("migration/001_initial.sql")
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	_, err = amethystDB.ExecContext(ctx, string(schema))
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}
