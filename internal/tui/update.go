package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = min(msg.Width-4, 60)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Refresh):
			return m, m.poll()
		case key.Matches(msg, m.keys.End):
			if m.status.Focus.IsActive && m.end != nil {
				return m, m.endSession()
			}
		}

	case tickMsg:
		m.sincePoll++
		cmds := []tea.Cmd{tick()}
		if m.sincePoll >= int(pollInterval/tickInterval) || (m.status.Focus.IsActive && m.remaining() == 0) {
			m.sincePoll = 0
			cmds = append(cmds, m.poll())
		}
		return m, tea.Batch(cmds...)

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.applyStatus(msg.status)
		}

	case endedMsg:
		m.err = msg.err
		return m, m.poll()
	}

	return m, nil
}
