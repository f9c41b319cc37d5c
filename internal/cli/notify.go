package cli

import (
	"context"
	"fmt"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/notifier"
)

type NotifyCmd struct {
	Title   string `help:"Notification title." default:"${notify_title}"`
	Message string `arg:"" optional:"" help:"Notification text." default:"${notify_message}"`
	DryRun  bool   `help:"Print the notification instead of sending it."`
}

func (c *NotifyCmd) Run(ctx *Context) error {
	bg := context.Background()
	s, err := ctx.Settings(bg)
	if err != nil {
		return err
	}
	n := notifier.Notification{Title: c.Title, Message: c.Message, Sound: s.SoundEnabled}

	if c.DryRun {
		fmt.Fprintf(ctx.out(), "[DryRun] %s: %s (sound: %v)\n", n.Title, n.Message, n.Sound)
		return nil
	}

	// there is no browser to fall back to outside the agent
	sink := buildNotifier(ctx.Config.Notifier, false)
	if err := sink.Notify(bg, n); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	fmt.Fprintln(ctx.out(), "✓ Notification sent")
	return nil
}

// NotifyVars are the kong variables NotifyCmd's defaults refer to.
func NotifyVars() map[string]string {
	return map[string]string{
		"notify_title":   constants.ReminderTitle,
		"notify_message": constants.ReminderMessage,
	}
}
