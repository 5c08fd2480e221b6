package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/julianstephens/trainsync/internal/rowstore"
)

// TestStore_Integration runs against a real database.
// Set POSTGRES_TEST_URL to run it, e.g.
// POSTGRES_TEST_URL="postgres://trainsync_user@localhost:5432/trainsync_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	store := New(connStr, "integration_"+time.Now().Format("20060102150405"))
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	defer func() {
		store.DB().Exec("DELETE FROM sheets WHERE name = $1", store.sheet)
		store.DB().Exec("DELETE FROM sweep_runs WHERE sheet = $1", store.sheet)
		store.Close()
	}()
	ctx := context.Background()

	t.Run("Rows", func(t *testing.T) {
		grid := []rowstore.Row{{"Date", "Action"}, {time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), "Add"}}
		if err := store.ReplaceRows(ctx, grid); err != nil {
			t.Fatalf("ReplaceRows failed: %v", err)
		}
		if err := store.WriteCells(ctx, []rowstore.CellWrite{{Row: 1, Col: 1, Value: ""}, {Row: 1, Col: 2, Value: "T1|E1"}}); err != nil {
			t.Fatalf("WriteCells failed: %v", err)
		}
		got, err := store.ReadAllRows(ctx)
		if err != nil {
			t.Fatalf("ReadAllRows failed: %v", err)
		}
		if got[1][1] != "" || got[1][2] != "T1|E1" {
			t.Errorf("unexpected row %#v", got[1])
		}
	})

	t.Run("Runs", func(t *testing.T) {
		now := time.Now().UTC()
		if err := store.RecordRun(ctx, rowstore.RunRecord{Kind: "sync", StartedAt: now, FinishedAt: now, Processed: 1}); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
		runs, err := store.RecentRuns(ctx, 5)
		if err != nil {
			t.Fatalf("RecentRuns failed: %v", err)
		}
		if len(runs) != 1 || runs[0].Processed != 1 {
			t.Errorf("unexpected runs %+v", runs)
		}
	})
}
