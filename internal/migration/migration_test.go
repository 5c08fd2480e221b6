package migration

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApplyMigrations(t *testing.T) {
	db := openTestDB(t)
	migrations := fstest.MapFS{
		"001_init.sql":    {Data: []byte(`CREATE TABLE sheets (name TEXT PRIMARY KEY);`)},
		"002_cells.sql":   {Data: []byte(`CREATE TABLE cells (sheet TEXT, value TEXT);`)},
		"README.md":       {Data: []byte(`not a migration`)},
		"notes/003_x.sql": {Data: []byte(`ignored`)},
	}

	runner := NewRunner(db, migrations, DialectSQLite)

	var logs []string
	count, err := runner.ApplyMigrations(func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations applied, got %d", count)
	}
	if len(logs) == 0 {
		t.Error("expected progress messages")
	}

	// Second run is a no-op
	count, err = runner.ApplyMigrations(nil)
	if err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations on second run, got %d", count)
	}

	if _, err := db.Exec(`INSERT INTO cells (sheet, value) VALUES ('training', 'x')`); err != nil {
		t.Errorf("migrated table unusable: %v", err)
	}
}

func TestApplyMigrationsRollsBackFailure(t *testing.T) {
	db := openTestDB(t)
	migrations := fstest.MapFS{
		"001_init.sql":   {Data: []byte(`CREATE TABLE sheets (name TEXT PRIMARY KEY);`)},
		"002_broken.sql": {Data: []byte(`CREATE TABLE oops (;`)},
	}

	runner := NewRunner(db, migrations, DialectSQLite)
	count, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", count)
	}
	if version, _ := runner.GetCurrentVersion(); version != 1 {
		t.Errorf("expected version 1 after failure, got %d", version)
	}
}

func TestReadMigrationFilesRejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr string
	}{
		{
			name:    "missing underscore",
			files:   fstest.MapFS{"001init.sql": {Data: []byte(``)}},
			wantErr: "invalid migration filename",
		},
		{
			name:    "non numeric version",
			files:   fstest.MapFS{"abc_init.sql": {Data: []byte(``)}},
			wantErr: "invalid version number",
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"001_a.sql":  {Data: []byte(``)},
				"0001_b.sql": {Data: []byte(``)},
			},
			wantErr: "duplicate migration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(openTestDB(t), tt.files, DialectSQLite)
			_, err := runner.ReadMigrationFiles()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ReadMigrationFiles() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersionNewerDatabase(t *testing.T) {
	db := openTestDB(t)
	migrations := fstest.MapFS{
		"001_init.sql": {Data: []byte(`CREATE TABLE sheets (name TEXT);`)},
	}
	runner := NewRunner(db, migrations, DialectSQLite)

	if err := runner.SetVersion(5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	if err := runner.ValidateVersion(); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("ValidateVersion() = %v, want %v", err, ErrSchemaTooNew)
	}
	if _, err := runner.ApplyMigrations(nil); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("ApplyMigrations() = %v, want %v", err, ErrSchemaTooNew)
	}
}
