// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestCreateSchemaIdempotent(t *testing.T) {
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := CreateSchema(conn); err != nil {
		t.Fatalf("first CreateSchema() error = %v", err)
	}
	if err := CreateSchema(conn); err != nil {
		t.Fatalf("second CreateSchema() error = %v", err)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 recorded migrations, got %d", count)
	}

	for _, table := range []string{"pipeline", "pipeline_stage", "applicant", "applicant_stage_history", "applicant_document", "election_package", "member"} {
		if _, err := conn.Exec(`SELECT COUNT(*) FROM ` + table); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestApplyMigrationsRunsUpOnly(t *testing.T) {
	conn, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "up.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n")},
		"0002_b.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
		"notes.txt":  {Data: []byte("ignored")},
	}
	if err := ApplyMigrations(conn, fsys, "."); err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO a (id) VALUES ('x')`); err != nil {
		t.Errorf("table a should exist: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO b (id) VALUES ('x')`); err != nil {
		t.Errorf("table b should exist: %v", err)
	}
}

func TestExtractUpMigration(t *testing.T) {
	got := ExtractUpMigration("-- +migrate Up\nCREATE TABLE x;\n-- +migrate Down\nDROP TABLE x;")
	if strings.Contains(got, "DROP") || !strings.Contains(got, "CREATE TABLE x") {
		t.Errorf("ExtractUpMigration() = %q", got)
	}
	if got := ExtractUpMigration("SELECT 1"); got != "SELECT 1" {
		t.Errorf("ExtractUpMigration() without markers = %q", got)
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := sqliteDSN("data/x.db"); !strings.HasPrefix(got, "data/x.db?_pragma=foreign_keys(1)") {
		t.Errorf("sqliteDSN() = %q", got)
	}
	custom := "file:x.db?_pragma=foreign_keys(1)"
	if got := sqliteDSN(custom); got != custom {
		t.Errorf("sqliteDSN() should keep explicit pragmas, got %q", got)
	}
}
