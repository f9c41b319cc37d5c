package models

// Settings represents the user's configuration document
type Settings struct {
	ReminderInterval int               `json:"reminderInterval"` // minutes between 20-20-20 reminders
	TrackingEnabled  bool              `json:"trackingEnabled"`  // whether attention time is credited and reminders fire
	FocusModeEnabled bool              `json:"focusModeEnabled"` // UI preference, does not start a session by itself
	FocusDuration    int               `json:"focusDuration"`    // default focus session length in minutes
	Blocklist        []string          `json:"blocklist"`        // domains blocked in blocklist mode
	Allowlist        []string          `json:"allowlist"`        // domains exempt in allowlist mode
	UseAllowlistMode bool              `json:"useAllowlistMode"` // block the reference catalog minus the allowlist
	SoundEnabled     bool              `json:"soundEnabled"`     // passed through to notifications
	Notes            map[string]string `json:"notes,omitempty"`  // free-form note per domain
	Theme            string            `json:"theme,omitempty"`  // presentation only
}

// ActiveList returns the list the current mode edits.
func (s Settings) ActiveList() []string {
	if s.UseAllowlistMode {
		return s.Allowlist
	}
	return s.Blocklist
}

// ActiveListName returns "allowlist" or "blocklist" depending on the mode.
func (s Settings) ActiveListName() string {
	if s.UseAllowlistMode {
		return ListAllow
	}
	return ListBlock
}

// Clone returns a deep copy so callers can mutate lists and notes freely.
func (s Settings) Clone() Settings {
	out := s
	out.Blocklist = append([]string(nil), s.Blocklist...)
	out.Allowlist = append([]string(nil), s.Allowlist...)
	if s.Notes != nil {
		out.Notes = make(map[string]string, len(s.Notes))
		for k, v := range s.Notes {
			out.Notes[k] = v
		}
	}
	return out
}
