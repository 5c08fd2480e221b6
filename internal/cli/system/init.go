package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/rowstore/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Overwrite an existing config file and delete an existing SQLite database before initialization."`
	Source string `help:"SQLite path or PostgreSQL connection string of a store whose sheets are copied into the new one."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if err := config.WriteDefault(ctx.ConfigPath, c.Force); err != nil {
		if c.Force {
			return err
		}
		fmt.Fprintf(os.Stderr, "ℹ %v\n", err)
	} else {
		ctx.Printf("✓ Wrote default config to: %s\n", config.ExpandPath(ctx.ConfigPath))
	}

	if c.Force {
		if err := c.deleteDatabase(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.Printf("✓ Initialized %s\n", ctx.Store.Identity())

	if c.Source != "" {
		ctx.Printf("Copying sheets from: %s\n", c.Source)
		if err := c.copySheets(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Println("Migration completed successfully!")
	}
	return nil
}

func (c *InitCmd) deleteDatabase(ctx *cli.Context) error {
	store, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return nil
	}
	dbPath := store.Path()
	if c.Source != "" {
		absDB, err := filepath.Abs(dbPath)
		if err == nil {
			dbPath = absDB
		}
		if absSource, err := filepath.Abs(c.Source); err == nil && absSource == dbPath {
			return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
		}
	}
	if _, err := os.Stat(dbPath); err == nil {
		if err := ctx.Store.Close(); err != nil {
			return fmt.Errorf("failed to close existing database: %w", err)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to delete existing database: %w", err)
		}
		ctx.Printf("Deleted existing database at: %s\n", dbPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to access existing database: %w", err)
	}
	return nil
}

// copySheets copies every sheet of the source store into the destination,
// replacing same-named sheets.
func (c *InitCmd) copySheets(ctx *cli.Context) error {
	srcCfg := ctx.Config
	srcCfg.Store.Path = c.Source
	source, err := cli.OpenStore(srcCfg)
	if err != nil {
		return err
	}
	if err := source.Load(); err != nil {
		return fmt.Errorf("failed to load source database: %w", err)
	}
	defer source.Close()

	bg := context.Background()
	names, err := source.ListSheets(bg)
	if err != nil {
		return fmt.Errorf("failed to list source sheets: %w", err)
	}
	for _, name := range names {
		srcCfg.Store.Sheet = name
		from, err := cli.OpenStore(srcCfg)
		if err != nil {
			return err
		}
		if err := from.Load(); err != nil {
			return fmt.Errorf("failed to open source sheet %q: %w", name, err)
		}
		rows, err := from.ReadAllRows(bg)
		from.Close()
		if err != nil {
			return fmt.Errorf("failed to read source sheet %q: %w", name, err)
		}

		dstCfg := ctx.Config
		dstCfg.Store.Sheet = name
		to, err := cli.OpenStore(dstCfg)
		if err != nil {
			return err
		}
		if err := to.Init(); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		err = to.ReplaceRows(bg, rows)
		to.Close()
		if err != nil {
			return fmt.Errorf("failed to write sheet %q: %w", name, err)
		}
		ctx.Printf("    Migrated sheet %s (%d rows)\n", name, len(rows))
	}
	return nil
}
