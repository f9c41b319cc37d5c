package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/julianstephens/eyecare/internal/constants"
)

// DefaultSettings returns the settings document written on first run.
func DefaultSettings() Settings {
	return Settings{
		ReminderInterval: constants.DefaultReminderInterval,
		TrackingEnabled:  constants.DefaultTrackingEnabled,
		FocusModeEnabled: constants.DefaultFocusModeEnabled,
		FocusDuration:    constants.DefaultFocusDuration,
		Blocklist:        append([]string(nil), constants.DefaultBlocklist...),
		Allowlist:        append([]string(nil), constants.DefaultAllowlist...),
		UseAllowlistMode: constants.DefaultUseAllowlistMode,
		SoundEnabled:     constants.DefaultSoundEnabled,
		Notes:            map[string]string{},
		Theme:            constants.DefaultTheme,
	}
}

// MapToSettings converts a map of key-value pairs to a Settings struct.
// Keys that are absent keep their zero value; call ApplyDefaultSettings afterwards.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingReminderInterval:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing reminder_interval: %w", err)
			}
			settings.ReminderInterval = n
		case constants.SettingFocusDuration:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing focus_duration: %w", err)
			}
			settings.FocusDuration = n
		case constants.SettingTrackingEnabled:
			settings.TrackingEnabled = value == "true"
		case constants.SettingFocusModeEnabled:
			settings.FocusModeEnabled = value == "true"
		case constants.SettingUseAllowlistMode:
			settings.UseAllowlistMode = value == "true"
		case constants.SettingSoundEnabled:
			settings.SoundEnabled = value == "true"
		case constants.SettingTheme:
			settings.Theme = value
		case constants.SettingBlocklist:
			if err := json.Unmarshal([]byte(value), &settings.Blocklist); err != nil {
				return Settings{}, fmt.Errorf("parsing blocklist: %w", err)
			}
		case constants.SettingAllowlist:
			if err := json.Unmarshal([]byte(value), &settings.Allowlist); err != nil {
				return Settings{}, fmt.Errorf("parsing allowlist: %w", err)
			}
		case constants.SettingNotes:
			if err := json.Unmarshal([]byte(value), &settings.Notes); err != nil {
				return Settings{}, fmt.Errorf("parsing notes: %w", err)
			}
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) (map[string]string, error) {
	block, err := json.Marshal(nonNil(settings.Blocklist))
	if err != nil {
		return nil, fmt.Errorf("encoding blocklist: %w", err)
	}
	allow, err := json.Marshal(nonNil(settings.Allowlist))
	if err != nil {
		return nil, fmt.Errorf("encoding allowlist: %w", err)
	}
	notes := settings.Notes
	if notes == nil {
		notes = map[string]string{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encoding notes: %w", err)
	}

	return map[string]string{
		constants.SettingReminderInterval: strconv.Itoa(settings.ReminderInterval),
		constants.SettingTrackingEnabled:  strconv.FormatBool(settings.TrackingEnabled),
		constants.SettingFocusModeEnabled: strconv.FormatBool(settings.FocusModeEnabled),
		constants.SettingFocusDuration:    strconv.Itoa(settings.FocusDuration),
		constants.SettingBlocklist:        string(block),
		constants.SettingAllowlist:        string(allow),
		constants.SettingUseAllowlistMode: strconv.FormatBool(settings.UseAllowlistMode),
		constants.SettingSoundEnabled:     strconv.FormatBool(settings.SoundEnabled),
		constants.SettingNotes:            string(notesJSON),
		constants.SettingTheme:            settings.Theme,
	}, nil
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.ReminderInterval < 1 {
		settings.ReminderInterval = constants.DefaultReminderInterval
	}
	if settings.FocusDuration < 1 {
		settings.FocusDuration = constants.DefaultFocusDuration
	}
	if settings.Blocklist == nil {
		settings.Blocklist = []string{}
	}
	if settings.Allowlist == nil {
		settings.Allowlist = []string{}
	}
	if settings.Notes == nil {
		settings.Notes = map[string]string{}
	}
	if settings.Theme == "" {
		settings.Theme = constants.DefaultTheme
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
