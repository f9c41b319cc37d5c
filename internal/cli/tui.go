package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/tui"
)

type FocusWatchCmd struct{}

func (c *FocusWatchCmd) Run(ctx *Context) error {
	if _, err := ctx.Status(context.Background()); err != nil {
		return agentHint(err)
	}

	fetch := func(cctx context.Context) (models.Status, error) {
		return ctx.Status(cctx)
	}
	end := func(cctx context.Context) error {
		_, err := ctx.Send(cctx, models.Message{Type: models.MsgEndFocusMode})
		return err
	}

	p := tea.NewProgram(tui.NewModel(fetch, end), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("focus view failed: %w", err)
	}
	return nil
}
