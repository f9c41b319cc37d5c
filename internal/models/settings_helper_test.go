package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/eyecare/internal/constants"
)

func TestSettingsMapRoundTrip(t *testing.T) {
	in := DefaultSettings()
	in.UseAllowlistMode = true
	in.Notes = map[string]string{"reddit.com": "only after 6pm"}

	m, err := SettingsToMap(in)
	if err != nil {
		t.Fatalf("SettingsToMap failed: %v", err)
	}
	if m[constants.SettingUseAllowlistMode] != "true" {
		t.Errorf("expected use_allowlist_mode=true, got %q", m[constants.SettingUseAllowlistMode])
	}

	out, err := MapToSettings(m)
	if err != nil {
		t.Fatalf("MapToSettings failed: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMapToSettingsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"interval":  {constants.SettingReminderInterval: "soon"},
		"duration":  {constants.SettingFocusDuration: "x"},
		"blocklist": {constants.SettingBlocklist: "not json"},
		"notes":     {constants.SettingNotes: "[1,2]"},
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := MapToSettings(data); err == nil {
				t.Error("expected error for invalid value")
			}
		})
	}
}

func TestApplyDefaultSettings(t *testing.T) {
	s := Settings{}
	ApplyDefaultSettings(&s)

	if s.ReminderInterval != constants.DefaultReminderInterval {
		t.Errorf("ReminderInterval = %d, want %d", s.ReminderInterval, constants.DefaultReminderInterval)
	}
	if s.FocusDuration != constants.DefaultFocusDuration {
		t.Errorf("FocusDuration = %d, want %d", s.FocusDuration, constants.DefaultFocusDuration)
	}
	if s.Blocklist == nil || s.Allowlist == nil || s.Notes == nil {
		t.Error("expected lists and notes to be non-nil")
	}

	s = Settings{ReminderInterval: 45, FocusDuration: 50}
	ApplyDefaultSettings(&s)
	if s.ReminderInterval != 45 || s.FocusDuration != 50 {
		t.Errorf("explicit values overwritten: %+v", s)
	}
}

func TestDefaultSettingsIsolated(t *testing.T) {
	a := DefaultSettings()
	a.Blocklist[0] = "changed.com"
	b := DefaultSettings()
	if b.Blocklist[0] == "changed.com" {
		t.Error("DefaultSettings shares the blocklist backing array")
	}
}
