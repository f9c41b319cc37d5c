package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/tui"
)

// Seam for tests.
var confirmFunc = func(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	return ok, err
}

type FocusCmd struct {
	Start  FocusStartCmd  `cmd:"" help:"Start a focus session."`
	End    FocusEndCmd    `cmd:"" help:"End the running focus session."`
	Queue  FocusQueueCmd  `cmd:"" help:"Save a site to visit after the session."`
	Status FocusStatusCmd `cmd:"" help:"Show the focus session and queued sites." default:"1"`
	Watch  FocusWatchCmd  `cmd:"" help:"Show a live countdown of the running session."`
}

type FocusStartCmd struct {
	Minutes int  `arg:"" optional:"" help:"Session length in minutes (default: the focus duration setting)."`
	Yes     bool `short:"y" help:"Restart a running session without asking."`
}

func (c *FocusStartCmd) Run(ctx *Context) error {
	if c.Minutes < 0 {
		return fmt.Errorf("%w: %d minutes", apperrors.ErrInvalidDuration, c.Minutes)
	}
	bg := context.Background()

	st, err := ctx.Status(bg)
	if err != nil {
		return agentHint(err)
	}
	if st.Focus.IsActive && !c.Yes {
		left := time.Duration(st.RemainingSeconds) * time.Second
		ok, err := confirmFunc("A focus session is already running",
			fmt.Sprintf("%s left. Restart it?", formatDuration(left)))
		if err != nil {
			return fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			fmt.Fprintln(ctx.out(), "Focus session left unchanged.")
			return nil
		}
	}

	if _, err := ctx.Send(bg, models.Message{Type: models.MsgStartFocusMode, Duration: c.Minutes}); err != nil {
		return err
	}
	st, err = ctx.Status(bg)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Focus mode active until %s\n", st.Focus.End().Format("15:04"))
	return nil
}

type FocusEndCmd struct{}

func (c *FocusEndCmd) Run(ctx *Context) error {
	if _, err := ctx.Send(context.Background(), models.Message{Type: models.MsgEndFocusMode}); err != nil {
		return agentHint(err)
	}
	fmt.Fprintln(ctx.out(), "✓ Focus mode ended")
	return nil
}

type FocusQueueCmd struct {
	URL string `arg:"" help:"URL or domain to revisit later."`
}

func (c *FocusQueueCmd) Run(ctx *Context) error {
	if _, err := ctx.Send(context.Background(), models.Message{Type: models.MsgQueueSite, URL: c.URL}); err != nil {
		return agentHint(err)
	}
	fmt.Fprintf(ctx.out(), "✓ Queued %s\n", c.URL)
	return nil
}

type FocusStatusCmd struct{}

func (c *FocusStatusCmd) Run(ctx *Context) error {
	st, err := ctx.Status(context.Background())
	if err != nil {
		return agentHint(err)
	}
	w := ctx.out()

	if !st.Focus.IsActive {
		fmt.Fprintln(w, "Focus mode: off")
	} else {
		left := time.Duration(st.RemainingSeconds) * time.Second
		fmt.Fprintf(w, "Focus mode: on, %s left (ends %s)\n", formatDuration(left), st.Focus.End().Format("15:04"))
	}
	if st.PendingRules {
		fmt.Fprintln(w, "⚠ Blocking rules are out of date, the agent will retry")
	}
	if !st.TrackingEnabled {
		fmt.Fprintln(w, "Tracking: paused")
	} else if st.CurrentDomain != "" && st.UserActive {
		fmt.Fprintf(w, "Tracking: %s\n", st.CurrentDomain)
	}
	fmt.Fprintf(w, "Today: %s focused, %d breaks\n", tui.FormatSeconds(st.Today.TotalFocusTime), st.Today.BreaksTaken)

	if len(st.Focus.QueuedSites) > 0 {
		fmt.Fprintf(w, "\nQueued sites (%d):\n", len(st.Focus.QueuedSites))
		for _, site := range st.Focus.QueuedSites {
			fmt.Fprintf(w, "  - %s\n", site)
		}
	}
	return nil
}

func agentHint(err error) error {
	if errors.Is(err, apperrors.ErrNotRunning) {
		return fmt.Errorf("%w, start it with 'eyecare serve'", err)
	}
	return err
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if h > 0 || m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	fmt.Fprintf(&b, "%ds", s)
	return b.String()
}
