package constants

import "time"

const (
	AppName            = "eyecare"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/eyecare"
	DefaultStorePath   = "~/.config/eyecare/eyecare.db"
	DefaultConfigFile  = "~/.config/eyecare/config.yaml"
	DefaultSocketName  = "eyecare.sock"
	Version            = "v0.1.0"

	// DateFormat is the day key format used for statistics (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the short time format used in CLI output (HH:MM)
	TimeFormat = "15:04"

	// Environment overrides
	EnvDBConnection = "EYECARE_DB_CONNECTION"
	EnvConfigFile   = "EYECARE_CONFIG"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "eyecare-"
	BackupFileSuffix = ".db"

	// Notify constants
	NotifierLockfileName   = "eyecare-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.eyecare"
	TrayExecutable         = "eyecare-tray"
	TraySecretHeader       = "X-Eyecare-Secret"

	// IPC timeouts
	IPCDialTimeout = 2 * time.Second
	IPCCallTimeout = 10 * time.Second
)
