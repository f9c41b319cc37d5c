// Package reminder schedules the periodic eye-care break reminder.
package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/notifier"
)

// Alarms is the part of the alarm service the scheduler needs.
type Alarms interface {
	Every(name string, delay, period time.Duration)
	Clear(name string) bool
}

// BreakRecorder counts delivered reminders.
type BreakRecorder interface {
	RecordBreak(ctx context.Context) error
}

type Scheduler struct {
	mu       sync.Mutex
	alarms   Alarms
	notifier notifier.Notifier
	ledger   BreakRecorder
	interval int
}

func NewScheduler(alarms Alarms, n notifier.Notifier, ledger BreakRecorder) *Scheduler {
	return &Scheduler{alarms: alarms, notifier: n, ledger: ledger}
}

// Rearm replaces the reminder alarm with one firing every minutes.
// Intervals below one minute fall back to the default.
func (s *Scheduler) Rearm(minutes int) {
	if minutes < 1 {
		minutes = constants.DefaultReminderInterval
	}
	period := time.Duration(minutes) * time.Minute

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alarms.Clear(constants.AlarmReminder)
	s.alarms.Every(constants.AlarmReminder, period, period)
	s.interval = minutes
	logger.Debug("Reminder armed", "minutes", minutes)
}

// Interval returns the armed interval in minutes, 0 before the first Rearm.
func (s *Scheduler) Interval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Fire delivers a reminder and counts a break, unless tracking is disabled.
// A failed notification still counts the break.
func (s *Scheduler) Fire(ctx context.Context, settings models.Settings) {
	if !settings.TrackingEnabled {
		return
	}
	n := notifier.Notification{
		Title:   constants.ReminderTitle,
		Message: constants.ReminderMessage,
		Sound:   settings.SoundEnabled,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		logger.Warn("Failed to deliver reminder", "error", err)
	}
	if err := s.ledger.RecordBreak(ctx); err != nil {
		logger.Warn("Failed to record break", "error", err)
	}
}
