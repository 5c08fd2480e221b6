package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/trainsync/internal/cli"
	"github.com/julianstephens/trainsync/internal/cli/auth"
	"github.com/julianstephens/trainsync/internal/cli/backups"
	"github.com/julianstephens/trainsync/internal/cli/sheets"
	"github.com/julianstephens/trainsync/internal/cli/sweeps"
	"github.com/julianstephens/trainsync/internal/cli/system"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"${config}"`

	Init      system.InitCmd      `cmd:"" help:"Write the default config and initialize the row store."`
	Migrate   system.MigrateCmd   `cmd:"" help:"Run database migrations."`
	Doctor    system.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	Sync      sweeps.SyncCmd      `cmd:"" help:"Apply the pending row actions to Google Tasks and Calendar." default:"1"`
	Reconcile sweeps.ReconcileCmd `cmd:"" help:"Update row statuses from the remote task state."`
	Serve     sweeps.ServeCmd     `cmd:"" help:"Run sweeps on a schedule and expose health and metrics endpoints."`
	History   sweeps.HistoryCmd   `cmd:"" help:"Show recent sweep runs."`
	Auth      auth.AuthCmd        `cmd:"" help:"Manage the Google sign-in."`
	Tasklists auth.TasklistsCmd   `cmd:"" help:"List the Google task lists of the signed-in account."`
	Import    sheets.ImportCmd    `cmd:"" help:"Replace the sheet with the contents of a CSV file."`
	Export    sheets.ExportCmd    `cmd:"" help:"Write the sheet as CSV."`
	Debug     system.DebugCmd     `cmd:"" help:"Debug commands for troubleshooting."`
	Backup    struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage SQLite store backups."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Show what is stored in the OS keyring." default:"1"`
	} `cmd:"" help:"Manage secrets kept in the OS keyring."`
	Notify system.NotifyCmd `cmd:"" help:"Re-send the webhook notification for the latest sweep."`
}

// unloaded commands open the store themselves or never touch it.
var unloaded = map[string]bool{
	"init":      true,
	"migrate":   true,
	"doctor":    true,
	"auth":      true,
	"tasklists": true,
	"keyring":   true,
}

// storeless commands run even when no store can be configured.
var storeless = map[string]bool{
	"auth":      true,
	"tasklists": true,
	"keyring":   true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Sync a training sheet with Google Tasks and Google Calendar."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": constants.Version,
			"config":  config.DefaultPath(),
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, ConfigDir: config.ConfigDir(), JSON: cfg.Log.JSON}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	command := strings.Fields(ctx.Command())[0]
	appCtx, err := cli.NewContext(cfg, CLI.Config)
	if err != nil {
		if !storeless[command] {
			errors.Fatal(err)
		}
		// keyring and auth setup must work before a store is configured
		appCtx = &cli.Context{Config: cfg, ConfigPath: CLI.Config, StateDir: config.ConfigDir(), Services: cli.GoogleServices}
	}
	defer appCtx.Close()

	if !unloaded[command] {
		if err := appCtx.Store.Load(); err != nil {
			appCtx.Close()
			errors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		appCtx.Close()
		errors.Fatal(err)
	}
}
