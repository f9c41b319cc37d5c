package constants

import "time"

const (
	// Alarm names owned by the agent
	AlarmReminder = "eyeCareReminder"
	AlarmFocusEnd = "focusModeEnd"

	// Rule id range reserved for focus blocking rules: [RuleIDBase, RuleIDBase+RuleIDRangeSize)
	RuleIDBase      = 10000
	RuleIDRangeSize = 5000
	RulePriority    = 1

	// BlockPagePath is the extension page blocked navigations are redirected to
	BlockPagePath = "/focus-mode.html"

	// ResourceMainFrame is the top-level navigation resource type
	ResourceMainFrame = "main_frame"

	// Attention tracking
	FlushInterval     = 30 * time.Second
	MinCreditDuration = time.Second

	// Store document keys, as reported by change notifications
	KeySettings  = "settings"
	KeyStats     = "stats"
	KeyFocusMode = "focusMode"

	// Idle states reported by the browser
	IdleStateActive = "active"
	IdleStateIdle   = "idle"
	IdleStateLocked = "locked"
)

// ReferenceCatalog is the closed set of distracting domains blocked in
// allowlist mode. Allowlist mode blocks the catalog minus the allowlist;
// anything outside the catalog is never blocked.
var ReferenceCatalog = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com", "youtube.com",
	"tiktok.com", "linkedin.com", "reddit.com", "netflix.com", "twitch.tv",
}

// Notification texts
const (
	ReminderTitle       = "EyeCare Focus Reminder"
	ReminderMessage     = "Look 20 feet away for 20 seconds to rest your eyes."
	FocusStartedTitle   = "Focus Mode Started"
	FocusStartedMessage = "Focus mode active for %d minutes. Stay focused!"
	FocusEndedTitle     = "Focus Mode Complete"
	FocusEndedMessage   = "Great job! Focus session completed."
)
