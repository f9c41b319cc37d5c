package constants

const (
	// Settings keys, as stored in the key/value settings table
	SettingReminderInterval = "reminder_interval"
	SettingTrackingEnabled  = "tracking_enabled"
	SettingFocusModeEnabled = "focus_mode_enabled"
	SettingFocusDuration    = "focus_duration"
	SettingBlocklist        = "blocklist"
	SettingAllowlist        = "allowlist"
	SettingUseAllowlistMode = "use_allowlist_mode"
	SettingSoundEnabled     = "sound_enabled"
	SettingNotes            = "notes"
	SettingTheme            = "theme"

	// Default Settings Values
	DefaultReminderInterval = 20 // minutes
	DefaultTrackingEnabled  = true
	DefaultFocusModeEnabled = false
	DefaultFocusDuration    = 25 // minutes
	DefaultUseAllowlistMode = false
	DefaultSoundEnabled     = true
	DefaultTheme            = "system"
)

// DefaultBlocklist is seeded into a fresh settings document.
var DefaultBlocklist = []string{
	"instagram.com", "youtube.com", "twitter.com", "x.com",
	"linkedin.com", "facebook.com", "tiktok.com",
}

// DefaultAllowlist is seeded into a fresh settings document.
var DefaultAllowlist = []string{"github.com", "stackoverflow.com", "docs.google.com"}
