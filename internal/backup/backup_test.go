package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trainsync.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE cells (row_idx INTEGER, value TEXT)`); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO cells (row_idx, value) VALUES (1, 'T1|E1'), (2, 'T2|E2')`); err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}
	return dbPath
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM cells").Scan(&n); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}

func fixedClock(m *Manager, start time.Time) {
	n := 0
	m.now = func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Minute)
	}
}

func TestCreate(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	path, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Dir(path) != mgr.Dir() {
		t.Errorf("backup written to %s, want %s", filepath.Dir(path), mgr.Dir())
	}
	if got := countRows(t, path); got != 2 {
		t.Errorf("backup has %d rows, want 2", got)
	}
}

func TestCreateSameSecondGetsCounter(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	at := time.Date(2024, 6, 10, 8, 0, 0, 0, time.Local)
	mgr.now = func() time.Time { return at }

	first, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if first == second {
		t.Error("backups taken in the same second must not collide")
	}
	backups, _ := mgr.List()
	if len(backups) != 2 {
		t.Errorf("List() returned %d backups, want 2", len(backups))
	}
}

func TestCreateMissingDatabase(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(context.Background()); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestRotation(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	mgr.keep = 3
	fixedClock(mgr, time.Date(2024, 6, 10, 8, 0, 0, 0, time.Local))

	var paths []string
	for i := 0; i < 5; i++ {
		p, err := mgr.Create(context.Background())
		if err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
		paths = append(paths, p)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("expected 3 backups after rotation, got %d", len(backups))
	}
	if backups[0].Path != paths[4] {
		t.Errorf("newest backup = %s, want %s", backups[0].Path, paths[4])
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Error("oldest backup should have been removed")
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	if err := os.MkdirAll(mgr.Dir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "trainsync-bad.db", "other-20240610-080000.db"} {
		os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0600)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 0 {
		t.Errorf("List() = %v, want none", backups)
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	fixedClock(mgr, time.Date(2024, 6, 10, 8, 0, 0, 0, time.Local))

	backupPath, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	db, _ := sql.Open("sqlite", dbPath)
	db.Exec("DELETE FROM cells")
	db.Close()

	resolved, err := mgr.Resolve(filepath.Base(backupPath))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	previous, err := mgr.Restore(context.Background(), resolved)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if previous == "" {
		t.Error("expected a safety backup of the replaced database")
	}
	if got := countRows(t, dbPath); got != 2 {
		t.Errorf("restored database has %d rows, want 2", got)
	}
	if got := countRows(t, previous); got != 0 {
		t.Errorf("safety backup has %d rows, want 0", got)
	}
}

func TestRestoreRejectsInvalidFile(t *testing.T) {
	mgr := NewManager(setupTestDB(t))
	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("this is not sqlite at all, just text padding to fill a header"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.Restore(context.Background(), bogus); err == nil {
		t.Error("expected error restoring an invalid file")
	}
	if _, err := mgr.Resolve("nope.db"); err == nil {
		t.Error("expected error resolving a missing backup")
	}
}
