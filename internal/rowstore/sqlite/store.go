// Package sqlite keeps training sheets in a local SQLite database, one row
// per non-empty cell.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/migration"
	"github.com/julianstephens/trainsync/internal/rowstore"
	"github.com/julianstephens/trainsync/migrations"
)

type Store struct {
	path  string
	sheet string
	db    *sql.DB
}

var (
	_ rowstore.Sheets = (*Store)(nil)
	_ rowstore.RunLog = (*Store)(nil)
)

func New(path, sheet string) *Store {
	if sheet == "" {
		sheet = constants.DefaultSheetName
	}
	return &Store{
		path:  path,
		sheet: sheet,
	}
}

// Init creates the database if needed, applies migrations and registers the sheet.
func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return s.ensureSheet(context.Background())
}

// Load opens an initialized database without creating anything.
func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return errors.New(errors.KindStoreAccess, "sqlite.load", "storage not initialized, run '%s init' first", constants.AppName)
	}

	if err := s.open(); err != nil {
		return err
	}

	if err := s.validateSchemaVersion(); err != nil {
		return errors.Wrap(errors.KindStoreAccess, "sqlite.load", err)
	}

	var exists int
	if err := s.db.QueryRow("SELECT count(*) FROM sheets WHERE name = ?", s.sheet).Scan(&exists); err != nil {
		return errors.Wrap(errors.KindStoreAccess, "sqlite.load", err)
	}
	if exists == 0 {
		return errors.New(errors.KindStoreAccess, "sqlite.load", "sheet %q not found, run '%s init' first", s.sheet, constants.AppName)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps the foreign key pragma applied.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) runMigrations() error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}

	runner := migration.NewRunner(s.db, subFS, migration.DialectSQLite)
	_, err = runner.ApplyMigrations(func(msg string) {
		logger.Info(msg, "store", s.Identity())
	})
	return err
}

func (s *Store) validateSchemaVersion() error {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, subFS, migration.DialectSQLite).ValidateVersion()
}

func (s *Store) ensureSheet(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sheets (name, created_at) VALUES (?, ?)",
		s.sheet, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to register sheet %q: %w", s.sheet, err)
	}
	return nil
}

func (s *Store) Identity() string {
	return "sqlite:" + s.path + "#" + s.sheet
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying connection, nil before Init or Load.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ReadAllRows(ctx context.Context) ([]rowstore.Row, error) {
	const op = "sqlite.read"
	if s.db == nil {
		return nil, errors.New(errors.KindStoreAccess, op, "store not loaded")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT row_idx, col_idx, kind, value FROM cells WHERE sheet = ? ORDER BY row_idx, col_idx", s.sheet)
	if err != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, op, err)
	}
	defer rows.Close()

	var cells []rowstore.StoredCell
	for rows.Next() {
		var c rowstore.StoredCell
		if err := rows.Scan(&c.Row, &c.Col, &c.Kind, &c.Value); err != nil {
			return nil, errors.Wrap(errors.KindStoreAccess, op, err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, op, err)
	}
	return rowstore.Assemble(cells), nil
}

// WriteCells applies the batch in one transaction. Empty values delete the cell.
func (s *Store) WriteCells(ctx context.Context, writes []rowstore.CellWrite) error {
	const op = "sqlite.write"
	if s.db == nil {
		return errors.New(errors.KindStoreAccess, op, "store not loaded")
	}
	if err := rowstore.ValidateWrites(op, writes); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, w := range writes {
		if err := writeCell(ctx, tx, s.sheet, w, now); err != nil {
			return errors.Wrap(errors.KindStoreAccess, op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	return nil
}

func writeCell(ctx context.Context, tx *sql.Tx, sheet string, w rowstore.CellWrite, now string) error {
	if rowstore.IsEmpty(w.Value) {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM cells WHERE sheet = ? AND row_idx = ? AND col_idx = ?", sheet, w.Row, w.Col)
		return err
	}
	kind, value := rowstore.Encode(w.Value)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cells (sheet, row_idx, col_idx, kind, value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sheet, row_idx, col_idx) DO UPDATE SET
			kind = excluded.kind,
			value = excluded.value,
			updated_at = excluded.updated_at`,
		sheet, w.Row, w.Col, kind, value, now)
	return err
}

func (s *Store) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sheets ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, "sqlite.sheets", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.KindStoreAccess, "sqlite.sheets", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ReplaceRows overwrites the whole sheet.
func (s *Store) ReplaceRows(ctx context.Context, grid []rowstore.Row) error {
	const op = "sqlite.replace"
	if err := s.ensureSheet(ctx); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cells WHERE sheet = ?", s.sheet); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range rowstore.Flatten(grid) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO cells (sheet, row_idx, col_idx, kind, value, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			s.sheet, c.Row, c.Col, c.Kind, c.Value, now)
		if err != nil {
			return errors.Wrap(errors.KindStoreAccess, op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	return nil
}

func (s *Store) RecordRun(ctx context.Context, run rowstore.RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Sheet == "" {
		run.Sheet = s.sheet
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, sheet, kind, started_at, finished_at, processed, failed, changed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Sheet, run.Kind,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Processed, run.Failed, run.Changed, run.Error)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, "sqlite.record_run", err)
	}
	return nil
}

func (s *Store) RecentRuns(ctx context.Context, limit int) ([]rowstore.RunRecord, error) {
	const op = "sqlite.recent_runs"
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sheet, kind, started_at, finished_at, processed, failed, changed, error
		FROM sweep_runs WHERE sheet = ?
		ORDER BY started_at DESC LIMIT ?`, s.sheet, limit)
	if err != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, op, err)
	}
	defer rows.Close()

	var runs []rowstore.RunRecord
	for rows.Next() {
		var r rowstore.RunRecord
		var id, started, finished string
		if err := rows.Scan(&id, &r.Sheet, &r.Kind, &started, &finished, &r.Processed, &r.Failed, &r.Changed, &r.Error); err != nil {
			return nil, errors.Wrap(errors.KindStoreAccess, op, err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			logger.Warn("Skipping sweep run with invalid id", "id", id, "error", err)
			continue
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
