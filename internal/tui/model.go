// Package tui renders the live focus session view: a countdown, a progress
// bar, the domain being tracked and the sites queued for later.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/eyecare/internal/models"
)

const (
	tickInterval = time.Second
	pollInterval = 5 * time.Second
)

// StatusFunc fetches the agent's status.
type StatusFunc func(ctx context.Context) (models.Status, error)

// EndFunc ends the running focus session.
type EndFunc func(ctx context.Context) error

type tickMsg time.Time

type statusMsg struct {
	status models.Status
	err    error
}

type endedMsg struct{ err error }

type Model struct {
	fetch    StatusFunc
	end      EndFunc
	now      func() time.Time
	keys     KeyMap
	help     help.Model
	progress progress.Model

	status    models.Status
	loaded    bool
	total     time.Duration // length of the session being shown
	sincePoll int           // ticks since the last poll
	err       error
	quitting  bool
	width     int
}

func NewModel(fetch StatusFunc, end EndFunc) Model {
	return Model{
		fetch:    fetch,
		end:      end,
		now:      time.Now,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) poll() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		defer cancel()
		st, err := fetch(ctx)
		return statusMsg{status: st, err: err}
	}
}

func (m Model) endSession() tea.Cmd {
	end := m.end
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		defer cancel()
		return endedMsg{err: end(ctx)}
	}
}

// remaining is recomputed from the end time on every tick so the countdown
// stays smooth between polls.
func (m Model) remaining() time.Duration {
	if !m.status.Focus.IsActive {
		return 0
	}
	return m.status.Focus.Remaining(m.now())
}

func (m Model) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	done := 1 - float64(m.remaining())/float64(m.total)
	if done < 0 {
		return 0
	}
	if done > 1 {
		return 1
	}
	return done
}

// applyStatus stores a fresh status, resetting the progress baseline when
// a new session (a new end time) appears.
func (m *Model) applyStatus(st models.Status) {
	prevEnd := m.status.Focus.EndTime
	m.status = st
	m.loaded = true
	if !st.Focus.IsActive {
		m.total = 0
		return
	}
	if st.Focus.EndTime != prevEnd || m.total == 0 {
		m.total = st.Focus.Remaining(m.now())
	}
}
