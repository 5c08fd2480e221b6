package system

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/keyring"
	"github.com/julianstephens/trainsync/internal/models"
	"github.com/julianstephens/trainsync/internal/services/google"
)

type DoctorCmd struct {
	Remote bool `help:"Also check that the configured Google task list is reachable."`
}

type check struct {
	name string
	run  func(ctx *cli.Context) error
	// needsStore checks are skipped when the store cannot be opened.
	needsStore bool
	// warnOnly failures do not fail the command.
	warnOnly bool
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	checks := []check{
		{name: "Store reachable", run: checkStoreReachable},
		{name: "Schema version", run: checkSchemaVersion, needsStore: true},
		{name: "Migrations complete", run: checkMigrationsComplete, needsStore: true},
		{name: "Sheet layout", run: checkSheetLayout, needsStore: true},
		{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
		{name: "Clock/timezone", run: checkClockTimezone},
		{name: "OS keyring", run: checkKeyring, warnOnly: true},
		{name: "Google sign-in", run: checkGoogleAuth, warnOnly: true},
	}
	if cmd.Remote {
		checks = append(checks, check{name: "Task list reachable", run: checkTaskList})
	}

	hasError := false
	storeOK := true
	for i, c := range checks {
		if c.needsStore && !storeOK {
			ctx.Printf("⊘ %s: SKIPPED (store not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
		if i == 0 && err != nil {
			storeOK = false
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.Println("All diagnostics passed!")
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}
	if _, err := ctx.Store.ReadAllRows(context.Background()); err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}
	return nil
}

func versions(ctx *cli.Context) (current, latest int, err error) {
	runner, err := migrationRunner(ctx)
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.GetCurrentVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	if latest, err = runner.GetLatestVersion(); err != nil {
		return 0, 0, fmt.Errorf("failed to get latest schema version: %w", err)
	}
	return current, latest, nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := versions(ctx)
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	current, latest, err := versions(ctx)
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run '%s migrate')", current, latest, constants.AppName)
	}
	return nil
}

// checkSheetLayout verifies the header covers every configured column.
func checkSheetLayout(ctx *cli.Context) error {
	rows, err := ctx.Store.ReadAllRows(context.Background())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	cols := ctx.Config.Columns
	if width := len(rows[0]); width > 0 && width < cols.Width() {
		var missing []string
		for _, c := range cols.Named() {
			if c.Index >= width {
				missing = append(missing, fmt.Sprintf("%s (%s)", c.Name, models.Letter(c.Index)))
			}
		}
		slices.Sort(missing)
		return fmt.Errorf("header has %d columns, missing %v", width, missing)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := ctx.BackupManager()
	if mgr == nil {
		return errors.New("backups are only taken for SQLite stores")
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if _, err := ctx.Config.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", ctx.Config.Schedule.Timezone, err)
	}
	return nil
}

func checkKeyring(_ *cli.Context) error {
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkGoogleAuth(ctx *cli.Context) error {
	if ctx.Config.Google.CredentialsFile == "" {
		return errors.New("google.credentials_file is not set")
	}
	if _, err := (google.KeyringTokenStore{}).Load(); err != nil {
		return fmt.Errorf("%w (run '%s auth login')", err, constants.AppName)
	}
	if ctx.Config.Google.TaskListID == "" {
		return fmt.Errorf("google.task_list_id is not set (run '%s tasklists --select')", constants.AppName)
	}
	return nil
}

func checkTaskList(ctx *cli.Context) error {
	bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opt, err := google.ClientOption(bg, ctx.Config.Google.CredentialsFile, google.KeyringTokenStore{})
	if err != nil {
		return err
	}
	lists, err := google.ListTaskLists(bg, opt)
	if err != nil {
		return err
	}
	for _, l := range lists {
		if l.ID == ctx.Config.Google.TaskListID {
			return nil
		}
	}
	return fmt.Errorf("task list %q not found in the signed-in account", ctx.Config.Google.TaskListID)
}
