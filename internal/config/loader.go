package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/julianstephens/trainsync/internal/constants"
)

// Load reads the config file at path over the compiled defaults and applies
// TRAINSYNC_* environment overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	path = ExpandPath(path)

	v := newViper()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if !IsPostgresConnString(cfg.Store.Path) {
		cfg.Store.Path = ExpandPath(cfg.Store.Path)
	}
	cfg.Google.CredentialsFile = ExpandPath(cfg.Google.CredentialsFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper()
	v.SetConfigType("yaml")
	if force {
		return v.WriteConfigAs(path)
	}
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
		return err
	}
	return nil
}

// Set updates a single key in the config file at path, creating the file from
// the defaults when it does not exist yet.
func Set(path, key string, value interface{}) error {
	path = ExpandPath(path)
	v := newViper()
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	v.Set(key, value)
	return v.WriteConfigAs(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.sheet", d.Store.Sheet)
	v.SetDefault("store.backup", d.Store.Backup)

	v.SetDefault("google.credentials_file", d.Google.CredentialsFile)
	v.SetDefault("google.task_list_id", d.Google.TaskListID)
	v.SetDefault("google.calendar_id", d.Google.CalendarID)
	v.SetDefault("google.requests_per_second", d.Google.RequestsPerSecond)

	v.SetDefault("schedule.duration_minutes", d.Schedule.DurationMinutes)
	v.SetDefault("schedule.timezone", d.Schedule.Timezone)
	v.SetDefault("schedule.reminder_minutes", d.Schedule.ReminderMinutes)
	v.SetDefault("schedule.location", d.Schedule.Location)
	v.SetDefault("schedule.locale", d.Schedule.Locale)

	v.SetDefault("status.pending", d.Status.Pending)
	v.SetDefault("status.completed", d.Status.Completed)
	v.SetDefault("status.expired", d.Status.Expired)
	v.SetDefault("status.not_found", d.Status.NotFound)
	v.SetDefault("status.tolerance_days", d.Status.ToleranceDays)

	for _, col := range d.Columns.Named() {
		v.SetDefault("columns."+col.Name, col.Index)
	}

	v.SetDefault("colors.intense", d.Colors.Intense)
	v.SetDefault("colors.long", d.Colors.Long)
	v.SetDefault("colors.recovery", d.Colors.Recovery)
	v.SetDefault("colors.default", d.Colors.Default)

	v.SetDefault("templates.task_title", d.Templates.TaskTitle)
	v.SetDefault("templates.event_title", d.Templates.EventTitle)
	v.SetDefault("templates.task_notes", d.Templates.TaskNotes)
	v.SetDefault("templates.event_description", d.Templates.EventDescription)

	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("notify.only_failures", d.Notify.OnlyFailures)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.sync_interval", d.Server.SyncInterval.String())
	v.SetDefault("server.reconcile_interval", d.Server.ReconcileInterval.String())

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.json", d.Log.JSON)
}
