package constants

import "time"

const (
	AppName            = "trainsync"
	Version            = "v0.1.0"
	DefaultConfigDir   = "~/.config/trainsync"
	DefaultConfigFile  = "config.yaml"
	DefaultStorePath   = "~/.config/trainsync/trainsync.db"
	DefaultSheetName   = "training"
	EnvPrefix          = "TRAINSYNC"
	DefaultKeyringUser = "database-connection"
	TokenKeyringUser   = "google-oauth-token"

	// IdentifierSeparator joins the task and event halves of a combined identifier.
	IdentifierSeparator = "|"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "trainsync-"
	BackupFileSuffix = ".db"

	// Sweep lock constants
	SweepLockfileName = "trainsync-sweep.lock"

	// Webhook constants
	NotifyTimeout = 10 * time.Second

	// Serve constants
	DefaultServeAddr         = "127.0.0.1:8089"
	DefaultSyncInterval      = 15 * time.Minute
	DefaultReconcileInterval = time.Hour
	SweepJitter              = 30 * time.Second

	// Google API constants
	DefaultCalendarID        = "primary"
	DefaultRequestsPerSecond = 5.0
	PopupReminderMethod      = "popup"
)
