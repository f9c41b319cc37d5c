package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{titleStyle.Render("EyeCare Focus")}

	switch {
	case !m.loaded && m.err == nil:
		sections = append(sections, idleStyle.Render("Contacting agent..."))
	case !m.status.Focus.IsActive:
		sections = append(sections, idleStyle.Render("No focus session running. Start one with 'eyecare focus start'."))
	default:
		sections = append(sections,
			countdownStyle.Render(formatRemaining(m.remaining())+" remaining"),
			m.progress.ViewAs(m.percent()),
		)
		if len(m.status.Focus.QueuedSites) > 0 {
			sections = append(sections, "",
				labelStyle.Render("Queued for later: ")+strings.Join(m.status.Focus.QueuedSites, ", "))
		}
	}

	if m.loaded {
		sections = append(sections, "", m.viewActivity())
	}
	if m.err != nil {
		sections = append(sections, "", dangerStyle.Render(m.err.Error()))
	}
	sections = append(sections, "", m.help.View(m.keys))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) viewActivity() string {
	domain := m.status.CurrentDomain
	switch {
	case !m.status.TrackingEnabled:
		domain = "tracking disabled"
	case !m.status.UserActive:
		domain = "away"
	case domain == "":
		domain = "-"
	}
	lines := []string{
		labelStyle.Render("Tracking: ") + domain,
		labelStyle.Render("Today:    ") + fmt.Sprintf("%s focused, %d breaks, %d sessions",
			FormatSeconds(m.status.Today.TotalFocusTime), m.status.Today.BreaksTaken, m.status.Today.FocusSessions),
	}
	if m.status.PendingRules {
		lines = append(lines, dangerStyle.Render("Blocking rules are out of date, retrying"))
	}
	return strings.Join(lines, "\n")
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mnt := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%02d:%02d", mnt, s)
}

// FormatSeconds renders a duration in seconds as "1h 05m", "12m" or "40s".
func FormatSeconds(sec int64) string {
	d := time.Duration(sec) * time.Second
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %02dm", int(d/time.Hour), int(d/time.Minute)%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
