package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/models"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	ReminderInterval *int  `help:"Minutes between eye-rest reminders."`
	Tracking         *bool `help:"Enable or disable attention tracking and reminders."`
	FocusDuration    *int  `help:"Default focus session length in minutes."`
	FocusMode        *bool `help:"Show focus controls in the browser."`
	AllowlistMode    *bool `help:"Block the reference catalog except the allowlist instead of blocking the blocklist."`
	Sound            *bool `help:"Play a sound with notifications."`
}

func (c *SettingsCmd) Run(ctx *Context) error {
	bg := context.Background()

	if c.List || !c.hasChanges() {
		s, err := ctx.Settings(bg)
		if err != nil {
			return err
		}
		printSettings(ctx.out(), s)
		if !c.List {
			fmt.Fprintln(ctx.out(), "\nUse flags to change settings, see --help.")
		}
		return nil
	}

	_, err := ctx.UpdateSettings(bg, func(s *models.Settings) error {
		if c.ReminderInterval != nil {
			if *c.ReminderInterval < 1 {
				return fmt.Errorf("%w: reminder interval must be at least 1 minute", apperrors.ErrInvalidDuration)
			}
			s.ReminderInterval = *c.ReminderInterval
		}
		if c.FocusDuration != nil {
			if *c.FocusDuration < 1 {
				return fmt.Errorf("%w: focus duration must be at least 1 minute", apperrors.ErrInvalidDuration)
			}
			s.FocusDuration = *c.FocusDuration
		}
		if c.Tracking != nil {
			s.TrackingEnabled = *c.Tracking
		}
		if c.FocusMode != nil {
			s.FocusModeEnabled = *c.FocusMode
		}
		if c.AllowlistMode != nil {
			s.UseAllowlistMode = *c.AllowlistMode
		}
		if c.Sound != nil {
			s.SoundEnabled = *c.Sound
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.out(), "Settings updated successfully.")
	return nil
}

func (c *SettingsCmd) hasChanges() bool {
	return c.ReminderInterval != nil || c.Tracking != nil || c.FocusDuration != nil ||
		c.FocusMode != nil || c.AllowlistMode != nil || c.Sound != nil
}

func printSettings(w io.Writer, s models.Settings) {
	mode := "blocklist"
	if s.UseAllowlistMode {
		mode = "allowlist"
	}
	fmt.Fprintln(w, "Current Settings:")
	fmt.Fprintf(w, "  Reminder Interval:  %d min\n", s.ReminderInterval)
	fmt.Fprintf(w, "  Tracking Enabled:   %v\n", s.TrackingEnabled)
	fmt.Fprintf(w, "  Focus Duration:     %d min\n", s.FocusDuration)
	fmt.Fprintf(w, "  Focus Mode Enabled: %v\n", s.FocusModeEnabled)
	fmt.Fprintf(w, "  Sound Enabled:      %v\n", s.SoundEnabled)
	fmt.Fprintf(w, "  Blocking Mode:      %s\n", mode)
	fmt.Fprintf(w, "\nBlocklist (%d): %s\n", len(s.Blocklist), joinOrNone(s.Blocklist))
	fmt.Fprintf(w, "Allowlist (%d): %s\n", len(s.Allowlist), joinOrNone(s.Allowlist))
}

func joinOrNone(list []string) string {
	if len(list) == 0 {
		return "(none)"
	}
	return strings.Join(list, ", ")
}
