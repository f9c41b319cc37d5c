package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/eyecare/internal/agent"
	"github.com/julianstephens/eyecare/internal/config"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/metrics"
	"github.com/julianstephens/eyecare/internal/notifier"
)

// ServeCmd runs the agent in the foreground until interrupted.
type ServeCmd struct {
	Bridge  bool `help:"Speak the browser native messaging protocol on stdin/stdout."`
	NoWatch bool `help:"Do not watch the store for changes made by other processes."`
}

// BridgeCmd is what the browser launches: serve with the bridge attached.
// Browsers pass the extension origin as an argument, which is ignored.
type BridgeCmd struct {
	Origin []string `arg:"" optional:"" hidden:""`
}

func (c *BridgeCmd) Run(ctx *Context) error {
	return (&ServeCmd{Bridge: true}).Run(ctx)
}

func (c *ServeCmd) Run(ctx *Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctx.Store.Load(runCtx); err != nil {
		return err
	}
	defer ctx.Store.Close()
	ctx.PerformAutomaticBackup(runCtx)

	rec := metrics.New(runCtx, metrics.Config{
		Enabled:  ctx.Config.OTel.Enabled,
		Endpoint: ctx.Config.OTel.Endpoint,
		Insecure: ctx.Config.OTel.Insecure,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rec.Close(shutdownCtx); err != nil {
			logger.Warn("Failed to flush metrics", "error", err)
		}
	}()

	opts := agent.Options{
		Store:         ctx.Store,
		Clock:         ctx.Clock,
		Metrics:       rec,
		Notifier:      buildNotifier(ctx.Config.Notifier, c.Bridge),
		Socket:        ctx.Socket,
		FlushInterval: ctx.Config.GetFlushInterval(),
		Watch:         !c.NoWatch,
	}
	if c.Bridge {
		opts.BridgeIn = os.Stdin
		opts.BridgeOut = os.Stdout
	}

	a, err := agent.New(opts)
	if err != nil {
		return err
	}
	if !c.Bridge {
		fmt.Fprintf(os.Stderr, "eyecare agent listening on %s (Ctrl+C to stop)\n", ctx.Socket)
	}
	return a.Run(runCtx)
}

// buildNotifier maps the configured sink to a Notifier. A nil result lets the
// agent use the browser when a bridge is attached. The tray sink needs the
// eyecare-tray companion app and is only used when asked for.
func buildNotifier(kind string, bridge bool) notifier.Notifier {
	switch kind {
	case config.NotifierTray:
		return notifier.Fallback{notifier.NewTray(), notifier.Log{}}
	case config.NotifierLog:
		return notifier.Log{}
	default:
		if bridge {
			return nil
		}
		return notifier.Log{}
	}
}
