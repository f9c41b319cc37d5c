// Package metrics exports agent activity to an OpenTelemetry collector.
// When export is disabled every call goes to a no-op recorder.
package metrics

import (
	"context"

	"github.com/julianstephens/eyecare/internal/logger"
)

// Recorder receives agent activity.
type Recorder interface {
	CreditRecorded(ctx context.Context, domain string, seconds int64)
	BreakRecorded(ctx context.Context)
	SessionCompleted(ctx context.Context)
	RulesReconciled(ctx context.Context, added, removed int, err error)
	MessageHandled(ctx context.Context, msgType string, ok bool)
	Close(ctx context.Context) error
}

// Config holds exporter configuration.
type Config struct {
	Enabled  bool
	Endpoint string
	Insecure bool
}

// New returns an OTLP exporter when enabled, degrading to a no-op recorder
// if the exporter cannot be created.
func New(ctx context.Context, cfg Config) Recorder {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return Noop{}
	}
	exp, err := NewExporter(ctx, cfg)
	if err != nil {
		logger.Warn("Metrics export disabled", "error", err)
		return Noop{}
	}
	return exp
}

// OrNoop returns r, or a no-op recorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return Noop{}
	}
	return r
}

// Noop discards everything.
type Noop struct{}

func (Noop) CreditRecorded(context.Context, string, int64)    {}
func (Noop) BreakRecorded(context.Context)                    {}
func (Noop) SessionCompleted(context.Context)                 {}
func (Noop) RulesReconciled(context.Context, int, int, error) {}
func (Noop) MessageHandled(context.Context, string, bool)     {}
func (Noop) Close(context.Context) error                      { return nil }
