package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// NewDB opens the sqlite database at path, creating its directory if needed.
func NewDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	amethystDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	amethystDB.SetMaxOpenConns(1)

	if err := amethystDB.Ping(); err != nil {
		_ = amethystDB.Close()
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return amethystDB, nil
}

// Open is NewDB followed by InitSchema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	amethystDB, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	if err := InitSchema(ctx, amethystDB); err != nil {
		_ = amethystDB.Close()
		return nil, err
	}
	return amethystDB, nil
}
