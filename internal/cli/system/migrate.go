package system

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/migration"
	"github.com/julianstephens/trainsync/internal/rowstore/postgres"
	"github.com/julianstephens/trainsync/internal/rowstore/sqlite"
	"github.com/julianstephens/trainsync/migrations"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	runner, err := migrationRunner(ctx)
	if err != nil {
		return err
	}

	count, err := runner.ApplyMigrations(func(msg string) {
		ctx.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		ctx.Println("No migrations to apply. Database is up to date.")
	} else {
		ctx.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

// migrationRunner opens the store's database without validating its schema
// version and returns a runner over the matching embedded migrations.
func migrationRunner(ctx *cli.Context) (*migration.Runner, error) {
	var (
		db      *sql.DB
		dir     string
		dialect migration.Dialect
	)
	switch s := ctx.Store.(type) {
	case *sqlite.Store:
		if s.DB() == nil {
			if err := s.Init(); err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}
		}
		db, dir, dialect = s.DB(), "sqlite", migration.DialectSQLite
	case *postgres.Store:
		if s.DB() == nil {
			if err := s.Init(); err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}
		}
		db, dir, dialect = s.DB(), "postgres", migration.DialectPostgres
	default:
		return nil, fmt.Errorf("migrate is not supported for %s", ctx.Store.Identity())
	}
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	sub, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s migrations: %w", dir, err)
	}
	return migration.NewRunner(db, sub, dialect), nil
}
