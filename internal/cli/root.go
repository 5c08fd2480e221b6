package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/trainsync/internal/backup"
	"github.com/julianstephens/trainsync/internal/config"
	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/errors"
	"github.com/julianstephens/trainsync/internal/keyring"
	"github.com/julianstephens/trainsync/internal/lock"
	"github.com/julianstephens/trainsync/internal/logger"
	"github.com/julianstephens/trainsync/internal/notifier"
	"github.com/julianstephens/trainsync/internal/render"
	"github.com/julianstephens/trainsync/internal/rowstore"
	"github.com/julianstephens/trainsync/internal/rowstore/postgres"
	"github.com/julianstephens/trainsync/internal/rowstore/sqlite"
	"github.com/julianstephens/trainsync/internal/services"
	"github.com/julianstephens/trainsync/internal/services/google"
)

// Store is a row store the CLI can create and open.
type Store interface {
	rowstore.Sheets
	Init() error
	Load() error
}

// ServiceFactory builds the remote task and calendar clients.
type ServiceFactory func(ctx context.Context, cfg config.Config) (services.TaskService, services.CalendarService, error)

type Context struct {
	Config     config.Config
	ConfigPath string
	// StateDir holds logs, locks and other per-user runtime files.
	StateDir string
	Store    Store
	Services ServiceFactory
	Out      io.Writer
}

// NewContext wires the default collaborators for cfg. The store is created
// but not loaded.
func NewContext(cfg config.Config, configPath string) (*Context, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Context{
		Config:     cfg,
		ConfigPath: configPath,
		StateDir:   config.ConfigDir(),
		Store:      store,
		Services:   GoogleServices,
		Out:        os.Stdout,
	}, nil
}

// OpenStore picks the backend for cfg.Store.Path. An empty path means the
// PostgreSQL connection string kept in the OS keyring.
func OpenStore(cfg config.Config) (Store, error) {
	path := cfg.Store.Path
	if path == "" {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			return nil, errors.New(errors.KindStoreAccess, "cli.open_store",
				"store.path is empty and no connection string is stored in the keyring (run '%s keyring set')", constants.AppName)
		}
		// keyring entries may carry a password; the keyring is the secure place for it
		return postgres.New(connStr, cfg.Store.Sheet), nil
	}

	if config.IsPostgresConnString(path) {
		if _, err := postgres.ValidateConnString(path); err != nil {
			return nil, fmt.Errorf("invalid store.path: %w", err)
		}
		return postgres.New(path, cfg.Store.Sheet), nil
	}
	return sqlite.New(path, cfg.Store.Sheet), nil
}

// GoogleServices is the production ServiceFactory.
func GoogleServices(ctx context.Context, cfg config.Config) (services.TaskService, services.CalendarService, error) {
	if cfg.Google.CredentialsFile == "" {
		return nil, nil, fmt.Errorf("google.credentials_file is not set")
	}
	if cfg.Google.TaskListID == "" {
		return nil, nil, fmt.Errorf("google.task_list_id is not set (run '%s tasklists --select')", constants.AppName)
	}
	tasks, cal, err := google.NewServices(ctx, google.Options{
		CredentialsFile:   cfg.Google.CredentialsFile,
		TaskListID:        cfg.Google.TaskListID,
		CalendarID:        cfg.Google.CalendarID,
		RequestsPerSecond: cfg.Google.RequestsPerSecond,
	}, google.KeyringTokenStore{})
	if err != nil {
		return nil, nil, err
	}
	return tasks, cal, nil
}

// Orchestrator builds the sweep orchestrator over the loaded store.
func (c *Context) Orchestrator(ctx context.Context, opts ...engine.Option) (*engine.Orchestrator, error) {
	factory := c.Services
	if factory == nil {
		factory = GoogleServices
	}
	tasks, cal, err := factory(ctx, c.Config)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(c.Config.Templates, c.Config.Schedule.Locale)
	if err != nil {
		return nil, err
	}

	base := []engine.Option{engine.WithLock(lock.New(c.StateDir))}
	if n := notifier.New(c.Config.Notify); n != nil {
		base = append(base, engine.WithHooks(n.Hook()))
	}
	if mgr := c.BackupManager(); mgr != nil && c.Config.Store.Backup {
		base = append(base, engine.WithBeforeSync(mgr.BeforeSync))
	}

	return engine.New(c.Config, c.Store,
		engine.NewProcessor(c.Config, tasks, cal, renderer),
		engine.NewReconciler(c.Config, tasks),
		append(base, opts...)...)
}

// BackupManager returns nil for stores without a local database file.
func (c *Context) BackupManager() *backup.Manager {
	s, ok := c.Store.(*sqlite.Store)
	if !ok {
		return nil
	}
	return backup.NewManager(s.Path())
}

// Printf writes to the command output.
func (c *Context) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Writer(), format, args...)
}

func (c *Context) Println(args ...interface{}) {
	fmt.Fprintln(c.Writer(), args...)
}

// Writer is the command output, stdout unless Out is set.
func (c *Context) Writer() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Close releases the store, logging failures.
func (c *Context) Close() {
	if c.Store == nil {
		return
	}
	if err := c.Store.Close(); err != nil {
		logger.Warn("Failed to close store", "error", err)
	}
}
