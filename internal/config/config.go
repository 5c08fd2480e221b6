// Package config loads the trainsync configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/julianstephens/trainsync/internal/classify"
	"github.com/julianstephens/trainsync/internal/constants"
	"github.com/julianstephens/trainsync/internal/models"
	"github.com/julianstephens/trainsync/internal/render"
	"github.com/julianstephens/trainsync/internal/utils"
)

type Config struct {
	Store     StoreConfig      `mapstructure:"store"`
	Google    GoogleConfig     `mapstructure:"google"`
	Schedule  ScheduleConfig   `mapstructure:"schedule"`
	Status    StatusConfig     `mapstructure:"status"`
	Columns   models.Columns   `mapstructure:"columns"`
	Colors    classify.Palette `mapstructure:"colors"`
	Templates render.Templates `mapstructure:"templates"`
	Notify    NotifyConfig     `mapstructure:"notify"`
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
}

type StoreConfig struct {
	// Path is a SQLite file path or a PostgreSQL connection string without a password.
	// Empty means the connection string stored in the OS keyring.
	Path  string `mapstructure:"path"`
	Sheet string `mapstructure:"sheet"`
	// Backup takes a SQLite backup before each sync sweep.
	Backup bool `mapstructure:"backup"`
}

type GoogleConfig struct {
	CredentialsFile   string  `mapstructure:"credentials_file"`
	TaskListID        string  `mapstructure:"task_list_id"`
	CalendarID        string  `mapstructure:"calendar_id"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type ScheduleConfig struct {
	DurationMinutes int    `mapstructure:"duration_minutes"`
	Timezone        string `mapstructure:"timezone"`
	ReminderMinutes []int  `mapstructure:"reminder_minutes"`
	Location        string `mapstructure:"location"`
	Locale          string `mapstructure:"locale"`
}

type StatusConfig struct {
	models.StatusLabels `mapstructure:",squash"`
	ToleranceDays       int `mapstructure:"tolerance_days"`
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	// OnlyFailures suppresses summaries of sweeps that had no failed rows.
	OnlyFailures bool `mapstructure:"only_failures"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	SyncInterval      time.Duration `mapstructure:"sync_interval"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

type LogConfig struct {
	Debug bool `mapstructure:"debug"`
	// JSON writes one JSON object per log line.
	JSON bool `mapstructure:"json"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path:   constants.DefaultStorePath,
			Sheet:  constants.DefaultSheetName,
			Backup: true,
		},
		Google: GoogleConfig{
			CalendarID:        constants.DefaultCalendarID,
			RequestsPerSecond: constants.DefaultRequestsPerSecond,
		},
		Schedule: ScheduleConfig{
			DurationMinutes: constants.DefaultDurationMin,
			Timezone:        constants.DefaultTimezone,
			ReminderMinutes: append([]int(nil), constants.DefaultReminderMinutes...),
			Location:        constants.DefaultLocation,
			Locale:          constants.DefaultLocale,
		},
		Status: StatusConfig{
			StatusLabels:  models.DefaultStatusLabels(),
			ToleranceDays: constants.DefaultToleranceDays,
		},
		Columns:   models.DefaultColumns(),
		Colors:    classify.DefaultPalette(),
		Templates: render.DefaultTemplates(),
		Server: ServerConfig{
			Addr:              constants.DefaultServeAddr,
			SyncInterval:      constants.DefaultSyncInterval,
			ReconcileInterval: constants.DefaultReconcileInterval,
		},
	}
}

// Validate checks the configuration once after loading.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Store.Sheet) == "" {
		return fmt.Errorf("store.sheet cannot be empty")
	}
	if c.Schedule.DurationMinutes <= 0 {
		return fmt.Errorf("schedule.duration_minutes must be positive, got %d", c.Schedule.DurationMinutes)
	}
	if !utils.ValidateTimezone(c.Schedule.Timezone) {
		return fmt.Errorf("schedule.timezone: unknown timezone %q", c.Schedule.Timezone)
	}
	for _, m := range c.Schedule.ReminderMinutes {
		// Google Calendar accepts reminders up to four weeks ahead
		if m < 0 || m > 40320 {
			return fmt.Errorf("schedule.reminder_minutes: %d is out of range (0-40320)", m)
		}
	}
	if _, err := render.LookupLocale(c.Schedule.Locale); err != nil {
		return fmt.Errorf("schedule.locale: %w", err)
	}
	if c.Status.ToleranceDays < 0 {
		return fmt.Errorf("status.tolerance_days must be >= 0, got %d", c.Status.ToleranceDays)
	}
	if err := c.validateLabels(); err != nil {
		return err
	}
	if err := c.Columns.Validate(); err != nil {
		return fmt.Errorf("columns: %w", err)
	}
	for name, id := range map[string]string{
		"intense": c.Colors.Intense, "long": c.Colors.Long,
		"recovery": c.Colors.Recovery, "default": c.Colors.Default,
	} {
		if id != "" && !classify.ValidColor(id) {
			return fmt.Errorf("colors.%s: %q is not a calendar colour id (1-11)", name, id)
		}
	}
	if c.Google.RequestsPerSecond <= 0 {
		return fmt.Errorf("google.requests_per_second must be positive")
	}
	if c.Notify.WebhookURL != "" {
		u, err := url.Parse(c.Notify.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("notify.webhook_url must be an http(s) URL")
		}
	}
	if c.Server.SyncInterval <= 0 || c.Server.ReconcileInterval <= 0 {
		return fmt.Errorf("server intervals must be positive")
	}
	return nil
}

func (c Config) validateLabels() error {
	labels := []struct{ key, value string }{
		{"pending", c.Status.Pending},
		{"completed", c.Status.Completed},
		{"expired", c.Status.Expired},
		{"not_found", c.Status.NotFound},
	}
	seen := make(map[string]string)
	for _, l := range labels {
		if strings.TrimSpace(l.value) == "" {
			return fmt.Errorf("status.%s cannot be empty", l.key)
		}
		if other, ok := seen[l.value]; ok {
			return fmt.Errorf("status.%s and status.%s share the label %q", other, l.key, l.value)
		}
		seen[l.value] = l.key
	}
	return nil
}

// Duration is the length of one training session.
func (c Config) Duration() time.Duration {
	return time.Duration(c.Schedule.DurationMinutes) * time.Minute
}

// Location loads the configured timezone.
func (c Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Schedule.Timezone)
}

// IsPostgres reports whether the store path is a PostgreSQL connection string.
func (c Config) IsPostgres() bool {
	return IsPostgresConnString(c.Store.Path)
}

func IsPostgresConnString(s string) bool {
	return strings.HasPrefix(s, "postgres://") ||
		strings.HasPrefix(s, "postgresql://") ||
		strings.Contains(s, "host=")
}

// ConfigDir is the directory holding the config file, logs, backups and locks.
func ConfigDir() string {
	return ExpandPath(constants.DefaultConfigDir)
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), constants.DefaultConfigFile)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
