// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/applicant-pipeline/db/migrations"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

const migrationTable = "schema_migrations"

// Open connects to the configured database and verifies the connection.
// SQLite paths get foreign keys, WAL and a busy timeout enabled.
func Open(dbType, url string) (*sql.DB, error) {
	var driver, dsn string
	switch dbType {
	case TypePostgres:
		driver, dsn = "postgres", url
	case TypeSQLite, "":
		driver, dsn = "sqlite", sqliteDSN(url)
		if path := sqlitePath(url); path != "" && path != ":memory:" {
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("failed to create database dir: %w", err)
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

func sqlitePath(url string) string {
	path := strings.TrimPrefix(url, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

func sqliteDSN(url string) string {
	if strings.Contains(url, "_pragma=") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// CreateSchema applies every embedded migration that has not run yet.
// Safe to call multiple times - each file is recorded in schema_migrations.
func CreateSchema(db *sql.DB) error {
	return ApplyMigrations(db, migrations.FS, ".")
}

// ApplyMigrations executes the -- +migrate Up section of each .sql file in
// root, in name order, at most once per file.
func ApplyMigrations(db *sql.DB, migrationFS fs.FS, root string) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}

	entries, err := fs.ReadDir(migrationFS, root)
	if err != nil {
		return fmt.Errorf("failed to read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	for _, name := range files {
		applied, err := isApplied(db, name)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrationFS, filepath.ToSlash(filepath.Join(root, name)))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		upSQL := ExtractUpMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(upSQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		_, err = tx.Exec(
			`INSERT INTO `+migrationTable+` (name, applied_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			name, time.Now().UTC().UnixMilli(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", name, err)
		}
	}

	return nil
}

// ExtractUpMigration returns the SQL between -- +migrate Up and -- +migrate Down.
func ExtractUpMigration(content string) string {
	upIdx := strings.Index(content, "-- +migrate Up")
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len("-- +migrate Up"):]
	if downIdx := strings.Index(body, "-- +migrate Down"); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}

func isApplied(db *sql.DB, name string) (bool, error) {
	var found int
	err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = $1`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
