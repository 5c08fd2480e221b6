// Package postgres keeps training sheets in a PostgreSQL schema named after
// the application.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/migration"
	"github.com/julianstephens/trainsync/internal/rowstore"
	"github.com/julianstephens/trainsync/migrations"
)

type Store struct {
	connStr string
	sheet   string
	db      *sql.DB
}

var (
	_ rowstore.Sheets = (*Store)(nil)
	_ rowstore.RunLog = (*Store)(nil)
)

var (
	ErrInvalidConnectionString = stderrors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = stderrors.New("connection string must not contain a password")
)

func New(connStr, sheet string) *Store {
	if sheet == "" {
		sheet = constants.DefaultSheetName
	}
	s := &Store{
		connStr: connStr,
		sheet:   sheet,
	}
	s.ensureSearchPath()
	return s
}

func (s *Store) ensureSearchPath() {
	if strings.HasPrefix(s.connStr, "postgres://") || strings.HasPrefix(s.connStr, "postgresql://") {
		u, err := url.Parse(s.connStr)
		if err != nil {
			logger.Warn("Failed to parse Postgres connection string", "error", err)
			return
		}
		q := u.Query()
		if q.Get("search_path") == "" {
			q.Set("search_path", constants.AppName)
			u.RawQuery = q.Encode()
			s.connStr = u.String()
		}
	} else if !hasSearchPathParam(s.connStr) {
		s.connStr = strings.TrimSpace(s.connStr) + " search_path=" + constants.AppName
	}
}

// hasSearchPathParam reports whether a DSN-style connection string sets
// search_path (case-insensitive).
func hasSearchPathParam(connStr string) bool {
	return hasDSNKey(connStr, "search_path")
}

// hasSSLMode reports whether a URL or DSN connection string sets sslmode.
func hasSSLMode(connStr string) bool {
	if u, err := url.Parse(connStr); err == nil && u.Scheme != "" {
		for key := range u.Query() {
			if strings.EqualFold(key, "sslmode") {
				return true
			}
		}
	}
	return hasDSNKey(connStr, "sslmode")
}

func hasDSNKey(connStr, key string) bool {
	for _, part := range strings.Fields(connStr) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), key) {
			return true
		}
	}
	return false
}

// ValidateConnString checks that connStr is a PostgreSQL URI or DSN without
// an embedded password. Passwords belong in the system keyring.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}

	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: invalid connection string format: %v", ErrInvalidConnectionString, err)
	}

	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false, fmt.Errorf("%w: failed to parse connection URL: %v", ErrInvalidConnectionString, err)
		}
		if _, isSet := parsedURL.User.Password(); isSet {
			return false, ErrEmbeddedCredentials
		}
		if parsedURL.Host == "" && parsedURL.User == nil && (parsedURL.Path == "" || parsedURL.Path == "/") {
			return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
		}
	} else if hasDSNKey(connStr, "password") {
		return false, ErrEmbeddedCredentials
	}

	return true, nil
}

func (s *Store) open() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	s.db = db
	return nil
}

func (s *Store) ping() error {
	if err := s.db.Ping(); err != nil {
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// Init creates the schema, applies migrations and registers the sheet.
func (s *Store) Init() error {
	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if _, err := s.db.Exec("CREATE SCHEMA IF NOT EXISTS " + constants.AppName); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := s.ping(); err != nil {
		return err
	}

	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	runner := migration.NewRunner(s.db, subFS, migration.DialectPostgres)
	if _, err := runner.ApplyMigrations(func(msg string) {
		logger.Info(msg, "store", s.Identity())
	}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return s.ensureSheet(context.Background())
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if err := s.open(); err != nil {
		return err
	}
	if err := s.ping(); err != nil {
		return errors.Wrap(errors.KindStoreAccess, "postgres.load", err)
	}

	subFS, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	if err := migration.NewRunner(s.db, subFS, migration.DialectPostgres).ValidateVersion(); err != nil {
		return errors.Wrap(errors.KindStoreAccess, "postgres.load", err)
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

func (s *Store) ensureSheet(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sheets (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", s.sheet)
	if err != nil {
		return fmt.Errorf("failed to register sheet %q: %w", s.sheet, err)
	}
	return nil
}

// Identity never includes the connection string.
func (s *Store) Identity() string {
	return "postgresql#" + s.sheet
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ReadAllRows(ctx context.Context) ([]rowstore.Row, error) {
	const op = "postgres.read"
	if s.db == nil {
		return nil, errors.New(errors.KindStoreAccess, op, "store not loaded")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT row_idx, col_idx, kind, value FROM cells WHERE sheet = $1 ORDER BY row_idx, col_idx", s.sheet)
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

func (s *Store) WriteCells(ctx context.Context, writes []rowstore.CellWrite) error {
	const op = "postgres.write"
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

	for _, w := range writes {
		if rowstore.IsEmpty(w.Value) {
			_, err = tx.ExecContext(ctx,
				"DELETE FROM cells WHERE sheet = $1 AND row_idx = $2 AND col_idx = $3", s.sheet, w.Row, w.Col)
		} else {
			kind, value := rowstore.Encode(w.Value)
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cells (sheet, row_idx, col_idx, kind, value, updated_at)
				VALUES ($1, $2, $3, $4, $5, now())
				ON CONFLICT (sheet, row_idx, col_idx) DO UPDATE SET
					kind = EXCLUDED.kind,
					value = EXCLUDED.value,
					updated_at = EXCLUDED.updated_at`,
				s.sheet, w.Row, w.Col, kind, value)
		}
		if err != nil {
			return errors.Wrap(errors.KindStoreAccess, op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	return nil
}

func (s *Store) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sheets ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, "postgres.sheets", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(errors.KindStoreAccess, "postgres.sheets", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) ReplaceRows(ctx context.Context, grid []rowstore.Row) error {
	const op = "postgres.replace"
	if err := s.ensureSheet(ctx); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cells WHERE sheet = $1", s.sheet); err != nil {
		return errors.Wrap(errors.KindStoreAccess, op, err)
	}
	for _, c := range rowstore.Flatten(grid) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO cells (sheet, row_idx, col_idx, kind, value) VALUES ($1, $2, $3, $4, $5)",
			s.sheet, c.Row, c.Col, c.Kind, c.Value)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID.String(), run.Sheet, run.Kind, run.StartedAt, run.FinishedAt,
		run.Processed, run.Failed, run.Changed, run.Error)
	if err != nil {
		return errors.Wrap(errors.KindStoreAccess, "postgres.record_run", err)
	}
	return nil
}

func (s *Store) RecentRuns(ctx context.Context, limit int) ([]rowstore.RunRecord, error) {
	const op = "postgres.recent_runs"
	query := `
		SELECT id, sheet, kind, started_at, finished_at, processed, failed, changed, error
		FROM sweep_runs WHERE sheet = $1
		ORDER BY started_at DESC`
	args := []interface{}{s.sheet}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.KindStoreAccess, op, err)
	}
	defer rows.Close()

	var runs []rowstore.RunRecord
	for rows.Next() {
		var r rowstore.RunRecord
		var id string
		if err := rows.Scan(&id, &r.Sheet, &r.Kind, &r.StartedAt, &r.FinishedAt, &r.Processed, &r.Failed, &r.Changed, &r.Error); err != nil {
			return nil, errors.Wrap(errors.KindStoreAccess, op, err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, errors.Wrap(errors.KindStoreAccess, op, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
