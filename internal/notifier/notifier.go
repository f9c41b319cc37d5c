// Package notifier delivers user-facing notifications: reminders and focus
// session transitions.
package notifier

import (
	"context"
	"errors"

	"github.com/julianstephens/eyecare/internal/logger"
)

// Notification is a single message to show the user.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Sound   bool   `json:"sound"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Log writes notifications to the application log. It is the sink of last
// resort and never fails.
type Log struct{}

func (Log) Notify(_ context.Context, n Notification) error {
	logger.Info("Notification", "title", n.Title, "message", n.Message, "sound", n.Sound)
	return nil
}

// Fallback tries each notifier in order and stops at the first success.
type Fallback []Notifier

func (f Fallback) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range f {
		err := target.Notify(ctx, n)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
