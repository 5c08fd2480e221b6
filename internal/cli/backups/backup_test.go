package backups

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/rowstore"
	"github.com/julianstephens/trainsync/internal/rowstore/sqlite"
)

func setupTestContext(t *testing.T) (*cli.Context, *sqlite.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trainsync.db")
	cfg := config.Default()
	cfg.Store.Path = dbPath

	store := sqlite.New(dbPath, cfg.Store.Sheet)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &cli.Context{Config: cfg, Store: store, Out: &bytes.Buffer{}}, store
}

func output(ctx *cli.Context) string {
	return ctx.Out.(*bytes.Buffer).String()
}

func TestBackupCreateAndList(t *testing.T) {
	ctx, _ := setupTestContext(t)

	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(output(ctx), "No backups found.") {
		t.Errorf("unexpected list output:\n%s", output(ctx))
	}

	ctx.Out = &bytes.Buffer{}
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(output(ctx), "✓ Backup created: trainsync-") {
		t.Errorf("unexpected create output:\n%s", output(ctx))
	}

	ctx.Out = &bytes.Buffer{}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(output(ctx), "Available backups (1 total") {
		t.Errorf("unexpected list output:\n%s", output(ctx))
	}
}

func TestBackupRestore(t *testing.T) {
	ctx, store := setupTestContext(t)
	bg := context.Background()

	if err := store.ReplaceRows(bg, []rowstore.Row{{"Data"}, {"2024-06-10"}}); err != nil {
		t.Fatalf("failed to seed rows: %v", err)
	}
	backupPath, err := ctx.BackupManager().Create(bg)
	if err != nil {
		t.Fatalf("failed to create backup: %v", err)
	}
	if err := store.ReplaceRows(bg, []rowstore.Row{{"Data"}}); err != nil {
		t.Fatalf("failed to overwrite rows: %v", err)
	}

	t.Run("cancelled", func(t *testing.T) {
		prev := confirm
		confirm = func(string) (bool, error) { return false, nil }
		t.Cleanup(func() { confirm = prev })

		ctx.Out = &bytes.Buffer{}
		if err := (&BackupRestoreCmd{BackupFile: filepath.Base(backupPath)}).Run(ctx); err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if !strings.Contains(output(ctx), "Restore cancelled.") {
			t.Errorf("unexpected output:\n%s", output(ctx))
		}
	})

	t.Run("confirmed", func(t *testing.T) {
		ctx.Out = &bytes.Buffer{}
		if err := (&BackupRestoreCmd{BackupFile: filepath.Base(backupPath), Yes: true}).Run(ctx); err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if err := store.Load(); err != nil {
			t.Fatalf("failed to reload store: %v", err)
		}
		rows, err := store.ReadAllRows(bg)
		if err != nil {
			t.Fatalf("failed to read rows: %v", err)
		}
		if len(rows) != 2 {
			t.Errorf("restored %d rows, want 2", len(rows))
		}
		if !strings.Contains(output(ctx), "Previous database saved as") {
			t.Errorf("unexpected output:\n%s", output(ctx))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		err := (&BackupRestoreCmd{BackupFile: "nope.db", Yes: true}).Run(ctx)
		if err == nil {
			t.Error("expected an error for a missing backup")
		}
	})
}

type memStore struct {
	*rowstore.Memory
}

func (memStore) Init() error { return nil }
func (memStore) Load() error { return nil }

func TestBackupRequiresSQLite(t *testing.T) {
	ctx := &cli.Context{Store: memStore{rowstore.NewMemory("training", nil)}, Out: os.Stdout}
	for name, run := range map[string]func(*cli.Context) error{
		"create":  (&BackupCreateCmd{}).Run,
		"list":    (&BackupListCmd{}).Run,
		"restore": (&BackupRestoreCmd{BackupFile: "x.db", Yes: true}).Run,
	} {
		if err := run(ctx); err != errNotSQLite {
			t.Errorf("%s: error = %v, want %v", name, err, errNotSQLite)
		}
	}
}
