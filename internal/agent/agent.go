// Package agent is the coordinator. Every signal (browser activity, alarms,
// messages, store changes, the flush tick) becomes an Event on one channel,
// and Dispatch handles them one at a time; it is the only place agent state
// changes.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/eyecare/internal/alarms"
	"github.com/julianstephens/eyecare/internal/bridge"
	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/domains"
	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/focus"
	"github.com/julianstephens/eyecare/internal/ipc"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/metrics"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/notifier"
	"github.com/julianstephens/eyecare/internal/reminder"
	"github.com/julianstephens/eyecare/internal/rules"
	"github.com/julianstephens/eyecare/internal/stats"
	"github.com/julianstephens/eyecare/internal/storage"
	"github.com/julianstephens/eyecare/internal/tracker"
)

const eventBuffer = 64

var errBridgeClosed = errors.New("browser disconnected")

// Options configures an Agent. Only Store is required.
type Options struct {
	Store   storage.Provider
	Clock   clock.Clock
	Metrics metrics.Recorder

	// Notifier defaults to the browser when a bridge is attached, else the log.
	Notifier notifier.Notifier
	// Engine defaults to the browser when a bridge is attached, else an
	// in-memory engine.
	Engine rules.Engine

	// Socket enables the IPC listener when set.
	Socket string
	// FlushInterval defaults to constants.FlushInterval.
	FlushInterval time.Duration
	// Watch enables change notifications for file-backed stores.
	Watch bool

	// BridgeIn and BridgeOut attach a browser over native messaging.
	BridgeIn  io.Reader
	BridgeOut io.Writer
}

type Agent struct {
	store    storage.Provider
	clock    clock.Clock
	metrics  metrics.Recorder
	ledger   *stats.Ledger
	tracker  *tracker.Tracker
	focus    *focus.Manager
	reminder *reminder.Scheduler
	alarms   *alarms.Service
	host     *bridge.Host

	socket        string
	flushInterval time.Duration
	watch         bool

	events   chan Event
	stopping <-chan struct{}
	done     chan struct{}
	settings models.Settings
}

func New(opts Options) (*Agent, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("agent requires a store")
	}
	a := &Agent{
		store:         opts.Store,
		clock:         opts.Clock,
		metrics:       metrics.OrNoop(opts.Metrics),
		socket:        opts.Socket,
		flushInterval: opts.FlushInterval,
		watch:         opts.Watch,
		events:        make(chan Event, eventBuffer),
		done:          make(chan struct{}),
		settings:      models.DefaultSettings(),
	}
	if a.clock == nil {
		a.clock = clock.SystemClock{}
	}
	if a.flushInterval <= 0 {
		a.flushInterval = constants.FlushInterval
	}

	engine := opts.Engine
	notify := opts.Notifier
	if opts.BridgeIn != nil && opts.BridgeOut != nil {
		a.host = bridge.NewHost(opts.BridgeIn, opts.BridgeOut, a.fromBridge)
		if engine == nil {
			engine = bridge.NewEngine(a.host)
		}
		if notify == nil {
			notify = notifier.Fallback{a.host, notifier.Log{}}
		}
	}
	if engine == nil {
		engine = rules.NewMemoryEngine()
	}
	if notify == nil {
		notify = notifier.Log{}
	}

	a.ledger = stats.NewLedger(a.store, a.clock, a.metrics)
	a.tracker = tracker.New(a.ledger, a.clock, a.settings.TrackingEnabled)
	a.alarms = alarms.NewService(a.clock, func(name string) { a.post(AlarmFired{Name: name}) })
	a.reminder = reminder.NewScheduler(a.alarms, notify, a.ledger)
	a.focus = focus.NewManager(a.store, rules.NewReconciler(engine, a.metrics), a.alarms, a.ledger, notify, a.clock)
	return a, nil
}

// Run processes events until ctx is cancelled or the attached browser
// disconnects. Startup (loading settings, resuming the focus session, arming
// the reminder) happens on the loop before the first event.
func (a *Agent) Run(ctx context.Context) error {
	defer close(a.done)
	defer a.alarms.Stop()

	var watcher *storage.Watcher
	if a.watch {
		w, err := storage.NewWatcher(a.store, a.today, func(keys []string) {
			a.post(StorageChanged{Keys: keys})
		})
		switch {
		case errors.Is(err, storage.ErrNotWatchable):
			logger.Debug("Store changes are not watched", "store", a.store.GetConfigPath())
		case err != nil:
			return fmt.Errorf("failed to watch store: %w", err)
		default:
			watcher = w
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	a.stopping = ctx.Done()

	g.Go(func() error {
		a.start(ctx)
		return a.loop(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(a.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				a.post(FlushTick{})
			}
		}
	})

	if watcher != nil {
		g.Go(func() error { return watcher.Run(ctx) })
	}

	if a.socket != "" {
		g.Go(func() error { return ipc.Serve(ctx, a.socket, a) })
	}

	if a.host != nil {
		g.Go(func() error {
			if err := a.host.Run(ctx); err != nil {
				return fmt.Errorf("browser bridge failed: %w", err)
			}
			if ctx.Err() != nil {
				return nil
			}
			return errBridgeClosed
		})
	}

	err := g.Wait()

	// credit whatever the user was looking at when the agent stopped
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	a.tracker.Flush(flushCtx)
	cancel()

	if errors.Is(err, errBridgeClosed) {
		logger.Info("Browser disconnected, stopping agent")
		return nil
	}
	return err
}

func (a *Agent) start(ctx context.Context) {
	if err := a.reloadSettings(ctx, true); err != nil {
		logger.Warn("Using default settings", "error", err)
		a.reminder.Rearm(a.settings.ReminderInterval)
	}
	if err := a.focus.Hydrate(ctx); err != nil {
		logger.Warn("Failed to resume focus session", "error", err)
	}
	logger.Info("Agent started", "store", a.store.GetConfigPath(), "socket", a.socket, "bridge", a.host != nil)
}

func (a *Agent) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.events:
			a.Dispatch(ctx, ev)
		}
	}
}

// post queues ev for the loop. It gives up once the agent is stopping.
func (a *Agent) post(ev Event) {
	select {
	case a.events <- ev:
	case <-a.stopping:
	case <-a.done:
	}
}

func (a *Agent) fromBridge(env bridge.Envelope) {
	if ev, ok := fromEnvelope(env, a.host); ok {
		a.post(ev)
		return
	}
	logger.Debug("Ignoring bridge envelope", "kind", env.Kind)
}

// Handle implements ipc.Handler by round-tripping msg through the loop.
func (a *Agent) Handle(ctx context.Context, msg models.Message) models.Response {
	reply := make(chan models.Response, 1)
	ev := MessageReceived{Message: msg, Reply: func(r models.Response) { reply <- r }}

	select {
	case a.events <- ev:
	case <-a.done:
		return models.Response{Error: apperrors.ErrNotRunning.Error()}
	case <-ctx.Done():
		return models.Response{Error: ctx.Err().Error()}
	}
	select {
	case r := <-reply:
		return r
	case <-a.done:
		return models.Response{Error: apperrors.ErrNotRunning.Error()}
	case <-ctx.Done():
		return models.Response{Error: ctx.Err().Error()}
	}
}

// Dispatch applies one event.
func (a *Agent) Dispatch(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case DomainObserved:
		a.tracker.Observe(ctx, domains.FromURL(e.URL))

	case WindowFocusLost:
		a.tracker.Observe(ctx, "")

	case IdleChanged:
		a.tracker.IdleChanged(ctx, e.State == constants.IdleStateActive)

	case AlarmFired:
		switch e.Name {
		case constants.AlarmReminder:
			a.reminder.Fire(ctx, a.settings)
		case constants.AlarmFocusEnd:
			if err := a.focus.Expire(ctx); err != nil {
				logger.Warn("Failed to end focus session", "error", err)
			}
		default:
			logger.Debug("Ignoring unknown alarm", "name", e.Name)
		}

	case MessageReceived:
		resp := a.handleMessage(ctx, e.Message)
		a.metrics.MessageHandled(ctx, e.Message.Type, resp.Success)
		if e.Reply != nil {
			e.Reply(resp)
		}

	case StorageChanged:
		if slices.Contains(e.Keys, constants.KeySettings) {
			if err := a.reloadSettings(ctx, false); err != nil {
				logger.Warn("Failed to reload settings", "error", err)
			}
		}
		if slices.Contains(e.Keys, constants.KeyFocusMode) {
			if err := a.focus.ExternalChange(ctx); err != nil {
				logger.Warn("Failed to follow focus session change", "error", err)
			}
		}

	case FlushTick:
		a.tracker.Flush(ctx)
		if err := a.focus.RetryPending(ctx); err != nil {
			logger.Warn("Rule retry failed", "error", err)
		}
	}
}

func (a *Agent) handleMessage(ctx context.Context, msg models.Message) models.Response {
	var err error
	switch msg.Type {
	case models.MsgStartFocusMode:
		if msg.Duration < 0 {
			err = fmt.Errorf("%w: %d minutes", apperrors.ErrInvalidDuration, msg.Duration)
			break
		}
		_, err = a.focus.Start(ctx, msg.Duration)
	case models.MsgEndFocusMode:
		err = a.focus.End(ctx)
	case models.MsgUpdateSettings:
		err = a.reloadSettings(ctx, true)
	case models.MsgQueueSite:
		err = a.focus.QueueSite(ctx, msg.URL)
	case models.MsgGetStatus:
		status, err := a.status(ctx)
		if err != nil {
			return failure(err)
		}
		return models.Response{Success: true, Status: &status}
	default:
		err = apperrors.ErrUnknownMessage
	}
	if err != nil {
		if !apperrors.IsValidation(err) && !errors.Is(err, apperrors.ErrUnknownMessage) {
			logger.Warn("Message failed", "type", msg.Type, "error", err)
		}
		return failure(err)
	}
	return models.Response{Success: true}
}

func failure(err error) models.Response {
	return models.Response{Success: false, Error: err.Error()}
}

// reloadSettings refreshes the cached settings and everything derived from
// them. The reminder is re-armed when its interval changed, or always when
// rearm is set.
func (a *Agent) reloadSettings(ctx context.Context, rearm bool) error {
	s, err := a.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	models.ApplyDefaultSettings(&s)
	a.settings = s
	a.tracker.SetEnabled(ctx, s.TrackingEnabled)

	if rearm || a.reminder.Interval() != s.ReminderInterval {
		a.reminder.Rearm(s.ReminderInterval)
	}
	return a.focus.SettingsChanged(ctx)
}

func (a *Agent) status(ctx context.Context) (models.Status, error) {
	session, remaining, err := a.focus.Status(ctx)
	if err != nil {
		return models.Status{}, err
	}
	today, err := a.ledger.Today(ctx)
	if err != nil {
		return models.Status{}, err
	}
	cursor := a.tracker.Snapshot()
	return models.Status{
		Focus:            session,
		RemainingSeconds: int64(remaining / time.Second),
		CurrentDomain:    cursor.Domain,
		UserActive:       cursor.UserActive,
		TrackingEnabled:  cursor.Enabled,
		Today:            today,
		PendingRules:     a.focus.Pending(),
	}, nil
}

func (a *Agent) today() string {
	return clock.DayKey(a.clock.Now())
}
