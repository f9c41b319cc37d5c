// Package focus runs focus sessions: a timed window during which the
// distracting domains are blocked.
//
// The persisted models.FocusSession is the source of truth. Every transition
// is written to the store first; the expiry alarm and the blocking rules are
// then brought in line with it. A failed rule update leaves the manager
// pending, and RetryPending re-derives the rules from the stored session.
package focus

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/domains"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/notifier"
	"github.com/julianstephens/eyecare/internal/rules"
)

// Store is the part of the document store the manager uses.
type Store interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	GetFocusSession(ctx context.Context) (models.FocusSession, error)
	SaveFocusSession(ctx context.Context, session models.FocusSession) error
}

type Reconciler interface {
	Apply(ctx context.Context, blocked []string) error
	Clear(ctx context.Context) error
}

type Alarms interface {
	At(name string, when time.Time)
	Clear(name string) bool
}

type CompletionRecorder interface {
	RecordSessionCompletion(ctx context.Context) error
}

type Manager struct {
	mu         sync.Mutex
	store      Store
	reconciler Reconciler
	alarms     Alarms
	ledger     CompletionRecorder
	notifier   notifier.Notifier
	clock      clock.Clock

	pending     bool
	lastWritten *models.FocusSession
}

func NewManager(store Store, reconciler Reconciler, alarms Alarms, ledger CompletionRecorder, n notifier.Notifier, clk clock.Clock) *Manager {
	return &Manager{
		store:      store,
		reconciler: reconciler,
		alarms:     alarms,
		ledger:     ledger,
		notifier:   n,
		clock:      clk,
	}
}

// Start begins a session of minutes, or of the configured focus duration
// when minutes is not positive. Starting while a session is active restarts
// it: the end time is recomputed and the queued sites are kept.
func (m *Manager) Start(ctx context.Context, minutes int) (models.FocusSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		return models.FocusSession{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if minutes <= 0 {
		minutes = settings.FocusDuration
	}
	if minutes <= 0 {
		minutes = constants.DefaultFocusDuration
	}

	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return models.FocusSession{}, fmt.Errorf("failed to load focus session: %w", err)
	}
	queued := []string{}
	if current.IsActive {
		queued = append(queued, current.QueuedSites...)
		logger.Info("Restarting active focus session", "minutes", minutes)
	}

	end := m.clock.Now().Add(time.Duration(minutes) * time.Minute)
	session := models.FocusSession{
		IsActive:    true,
		EndTime:     clock.Millis(end),
		QueuedSites: queued,
	}
	if err := m.save(ctx, session); err != nil {
		return models.FocusSession{}, err
	}

	m.alarms.Clear(constants.AlarmFocusEnd)
	m.alarms.At(constants.AlarmFocusEnd, end)
	m.apply(ctx, settings)

	m.notify(ctx, notifier.Notification{
		Title:   constants.FocusStartedTitle,
		Message: fmt.Sprintf(constants.FocusStartedMessage, minutes),
		Sound:   settings.SoundEnabled,
	})
	return session, nil
}

// End finishes the active session and records one completion. Ending an
// inactive session only removes any leftover rules.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.end(ctx)
}

func (m *Manager) end(ctx context.Context) error {
	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus session: %w", err)
	}
	if !current.IsActive {
		m.alarms.Clear(constants.AlarmFocusEnd)
		m.clear(ctx)
		return nil
	}

	if err := m.save(ctx, models.InactiveSession()); err != nil {
		// the expiry alarm is spent; RetryPending ends the session instead
		m.pending = true
		return err
	}
	m.alarms.Clear(constants.AlarmFocusEnd)
	m.clear(ctx)

	if err := m.ledger.RecordSessionCompletion(ctx); err != nil {
		logger.Warn("Failed to record focus session", "error", err)
	}

	sound := true
	if settings, err := m.store.GetSettings(ctx); err == nil {
		sound = settings.SoundEnabled
	}
	m.notify(ctx, notifier.Notification{
		Title:   constants.FocusEndedTitle,
		Message: constants.FocusEndedMessage,
		Sound:   sound,
	})
	return nil
}

// Expire handles the expiry alarm. If the stored session was extended by
// another writer in the meantime, the alarm is re-armed instead.
func (m *Manager) Expire(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus session: %w", err)
	}
	if current.IsActive && !current.Expired(m.clock.Now()) {
		m.alarms.At(constants.AlarmFocusEnd, current.End())
		return nil
	}
	return m.end(ctx)
}

// Hydrate brings alarms and rules in line with the stored session, as on
// process start: an active session is resumed, an expired one is ended
// exactly once, and an inactive one has its leftover rules removed.
func (m *Manager) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrate(ctx)
}

func (m *Manager) hydrate(ctx context.Context) error {
	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus session: %w", err)
	}
	m.lastWritten = &current

	switch {
	case current.IsActive && current.Expired(m.clock.Now()):
		logger.Info("Focus session expired while away, ending it")
		return m.end(ctx)
	case current.IsActive:
		settings, err := m.store.GetSettings(ctx)
		if err != nil {
			m.pending = true
			return fmt.Errorf("failed to load settings: %w", err)
		}
		m.alarms.At(constants.AlarmFocusEnd, current.End())
		m.apply(ctx, settings)
	default:
		m.alarms.Clear(constants.AlarmFocusEnd)
		m.clear(ctx)
	}
	return nil
}

// ExternalChange reacts to a focus session written by someone else. Echoes
// of the manager's own writes are ignored.
func (m *Manager) ExternalChange(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus session: %w", err)
	}
	if m.lastWritten != nil && sameSession(*m.lastWritten, current) {
		return nil
	}
	return m.hydrate(ctx)
}

// QueueSite remembers a site to visit after the session. Input that is not
// a domain or URL is dropped, as is anything sent while no session runs.
func (m *Manager) QueueSite(ctx context.Context, raw string) error {
	domain := domains.FromInput(raw)
	if domain == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus session: %w", err)
	}
	if !current.IsActive || slices.Contains(current.QueuedSites, domain) {
		return nil
	}
	current.QueuedSites = append(current.QueuedSites, domain)
	return m.save(ctx, current)
}

// SettingsChanged re-applies the blocking rules of an active session. A
// session found past its end time is ended instead.
func (m *Manager) SettingsChanged(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load focus session: %w", err)
	}
	if !current.IsActive {
		return nil
	}
	if current.Expired(m.clock.Now()) {
		return m.end(ctx)
	}
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		m.pending = true
		return fmt.Errorf("failed to load settings: %w", err)
	}
	m.apply(ctx, settings)
	return nil
}

// Status returns the stored session and the time left in it.
func (m *Manager) Status(ctx context.Context) (models.FocusSession, time.Duration, error) {
	current, err := m.store.GetFocusSession(ctx)
	if err != nil {
		return models.FocusSession{}, 0, fmt.Errorf("failed to load focus session: %w", err)
	}
	return current, current.Remaining(m.clock.Now()), nil
}

// Pending reports whether the last rule update failed.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// RetryPending re-derives the rules from the stored session after a failed
// update. It does nothing when no update is pending.
func (m *Manager) RetryPending(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.pending {
		return nil
	}
	logger.Debug("Retrying pending rule update")
	return m.hydrate(ctx)
}

func (m *Manager) save(ctx context.Context, session models.FocusSession) error {
	if err := m.store.SaveFocusSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save focus session: %w", err)
	}
	m.lastWritten = &session
	return nil
}

func (m *Manager) apply(ctx context.Context, settings models.Settings) {
	if err := m.reconciler.Apply(ctx, rules.DesiredDomains(settings)); err != nil {
		logger.Warn("Failed to apply focus rules", "error", err)
		m.pending = true
		return
	}
	m.pending = false
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.reconciler.Clear(ctx); err != nil {
		logger.Warn("Failed to clear focus rules", "error", err)
		m.pending = true
		return
	}
	m.pending = false
}

func (m *Manager) notify(ctx context.Context, n notifier.Notification) {
	if err := m.notifier.Notify(ctx, n); err != nil {
		logger.Warn("Failed to deliver notification", "title", n.Title, "error", err)
	}
}

func sameSession(a, b models.FocusSession) bool {
	return a.IsActive == b.IsActive && a.EndTime == b.EndTime && slices.Equal(a.QueuedSites, b.QueuedSites)
}
