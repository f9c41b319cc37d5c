package agent

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/ipc"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/notifier"
	"github.com/julianstephens/eyecare/internal/rules"
	"github.com/julianstephens/eyecare/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu   sync.Mutex
	sent []notifier.Notification
}

func (r *recorder) Notify(_ context.Context, n notifier.Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	return nil
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.Title)
	}
	return out
}

type fixture struct {
	agent  *Agent
	store  *storage.JSONStore
	engine *rules.MemoryEngine
	clock  *clock.Fake
	notes  *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  storage.NewJSONStore(filepath.Join(t.TempDir(), "eyecare.json")),
		engine: rules.NewMemoryEngine(),
		clock:  clock.NewFake(time.Date(2026, 4, 2, 9, 30, 0, 0, time.Local)),
		notes:  &recorder{},
	}
	if err := f.store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	a, err := New(Options{Store: f.store, Clock: f.clock, Engine: f.engine, Notifier: f.notes})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.alarms.Stop)
	f.agent = a
	return f
}

// started runs the startup sequence without the loop, for Dispatch tests.
func (f *fixture) started(t *testing.T) *fixture {
	t.Helper()
	f.agent.start(context.Background())
	return f
}

func (f *fixture) send(t *testing.T, msg models.Message) models.Response {
	t.Helper()
	var resp models.Response
	f.agent.Dispatch(context.Background(), MessageReceived{
		Message: msg,
		Reply:   func(r models.Response) { resp = r },
	})
	return resp
}

func (f *fixture) today(t *testing.T) models.DayStats {
	t.Helper()
	day, err := f.agent.ledger.Today(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return day
}

func TestStartupArmsReminder(t *testing.T) {
	f := newFixture(t).started(t)

	alarm, ok := f.agent.alarms.Get(constants.AlarmReminder)
	if !ok || alarm.Period != time.Duration(constants.DefaultReminderInterval)*time.Minute {
		t.Errorf("unexpected reminder alarm: %+v, %v", alarm, ok)
	}
}

func TestBrowsingIsCredited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).started(t)

	f.agent.Dispatch(ctx, DomainObserved{URL: "https://www.github.com/golang/go"})
	f.clock.Advance(40 * time.Second)
	f.agent.Dispatch(ctx, FlushTick{})
	f.clock.Advance(20 * time.Second)
	f.agent.Dispatch(ctx, DomainObserved{URL: "chrome://extensions"})
	f.clock.Advance(time.Minute)
	f.agent.Dispatch(ctx, DomainObserved{URL: "https://example.com"})
	f.clock.Advance(10 * time.Second)
	f.agent.Dispatch(ctx, IdleChanged{State: constants.IdleStateLocked})
	f.clock.Advance(time.Hour)
	f.agent.Dispatch(ctx, FlushTick{})
	f.agent.Dispatch(ctx, IdleChanged{State: constants.IdleStateActive})
	f.clock.Advance(5 * time.Second)
	f.agent.Dispatch(ctx, WindowFocusLost{})

	day := f.today(t)
	if day.Domains["github.com"] != 60 || day.Domains["example.com"] != 15 {
		t.Errorf("unexpected domains: %v", day.Domains)
	}
	if day.TotalFocusTime != 75 {
		t.Errorf("expected total 75, got %d", day.TotalFocusTime)
	}
}

func TestFocusMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).started(t)

	if resp := f.send(t, models.Message{Type: models.MsgStartFocusMode, Duration: 15}); !resp.Success {
		t.Fatalf("start failed: %+v", resp)
	}
	if resp := f.send(t, models.Message{Type: models.MsgQueueSite, URL: "https://news.ycombinator.com"}); !resp.Success {
		t.Fatalf("queue failed: %+v", resp)
	}

	f.clock.Advance(5 * time.Minute)
	f.agent.Dispatch(ctx, DomainObserved{URL: "https://golang.org"})
	resp := f.send(t, models.Message{Type: models.MsgGetStatus})
	if !resp.Success || resp.Status == nil {
		t.Fatalf("status failed: %+v", resp)
	}
	st := resp.Status
	if !st.Focus.IsActive || st.RemainingSeconds != 600 || st.CurrentDomain != "golang.org" {
		t.Errorf("unexpected status: %+v", st)
	}
	if len(st.Focus.QueuedSites) != 1 || st.Focus.QueuedSites[0] != "news.ycombinator.com" {
		t.Errorf("unexpected queue: %v", st.Focus.QueuedSites)
	}

	current, _ := f.engine.GetRules(ctx)
	if len(current) != len(constants.DefaultBlocklist) {
		t.Errorf("expected %d rules, got %d", len(constants.DefaultBlocklist), len(current))
	}

	f.clock.Advance(10 * time.Minute)
	f.agent.Dispatch(ctx, AlarmFired{Name: constants.AlarmFocusEnd})
	if day := f.today(t); day.FocusSessions != 1 {
		t.Errorf("expected 1 completed session, got %d", day.FocusSessions)
	}
	if current, _ := f.engine.GetRules(ctx); len(current) != 0 {
		t.Errorf("rules should be cleared, got %d", len(current))
	}

	titles := f.notes.titles()
	if len(titles) != 2 || titles[0] != constants.FocusStartedTitle || titles[1] != constants.FocusEndedTitle {
		t.Errorf("unexpected notifications: %v", titles)
	}
}

func TestMessageFailures(t *testing.T) {
	f := newFixture(t).started(t)

	resp := f.send(t, models.Message{Type: "REFRESH_EVERYTHING"})
	if resp.Success || resp.Error != "unknown message type" {
		t.Errorf("unexpected response to unknown type: %+v", resp)
	}
	resp = f.send(t, models.Message{Type: models.MsgStartFocusMode, Duration: -4})
	if resp.Success {
		t.Error("negative duration must be rejected")
	}
}

func TestReminderAlarm(t *testing.T) {
	f := newFixture(t).started(t)

	f.agent.Dispatch(context.Background(), AlarmFired{Name: constants.AlarmReminder})
	if day := f.today(t); day.BreaksTaken != 1 {
		t.Errorf("expected 1 break, got %d", day.BreaksTaken)
	}
	if titles := f.notes.titles(); len(titles) != 1 || titles[0] != constants.ReminderTitle {
		t.Errorf("unexpected notifications: %v", titles)
	}
}

func TestStorageChangedSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).started(t)

	settings, _ := f.store.GetSettings(ctx)
	settings.ReminderInterval = 45
	settings.TrackingEnabled = false
	if err := f.store.SaveSettings(ctx, settings); err != nil {
		t.Fatal(err)
	}
	f.agent.Dispatch(ctx, StorageChanged{Keys: []string{constants.KeySettings}})

	if f.agent.reminder.Interval() != 45 {
		t.Errorf("reminder not re-armed, interval %d", f.agent.reminder.Interval())
	}
	if f.agent.tracker.Snapshot().Enabled {
		t.Error("tracking should be disabled")
	}

	f.agent.Dispatch(ctx, AlarmFired{Name: constants.AlarmReminder})
	if day := f.today(t); day.BreaksTaken != 0 {
		t.Error("reminders are suppressed while tracking is disabled")
	}
}

func TestStorageChangedFocusMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).started(t)

	end := f.clock.Now().Add(20 * time.Minute)
	_ = f.store.SaveFocusSession(ctx, models.FocusSession{IsActive: true, EndTime: end.UnixMilli()})
	f.agent.Dispatch(ctx, StorageChanged{Keys: []string{constants.KeyFocusMode, constants.KeyStats}})

	if current, _ := f.engine.GetRules(ctx); len(current) == 0 {
		t.Error("externally started session should be enforced")
	}
	if alarm, ok := f.agent.alarms.Get(constants.AlarmFocusEnd); !ok || !alarm.When.Equal(end) {
		t.Errorf("expiry alarm not armed: %+v", alarm)
	}
}

func TestFlushTickRetriesRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).started(t)

	f.engine.FailNext(rules.ErrEngineUnavailable)
	_ = f.send(t, models.Message{Type: models.MsgStartFocusMode, Duration: 10})
	if !f.agent.focus.Pending() {
		t.Fatal("expected a pending rule update")
	}
	f.agent.Dispatch(ctx, FlushTick{})
	if f.agent.focus.Pending() {
		t.Error("flush tick should retry the rule update")
	}
}

func TestRunServesIPC(t *testing.T) {
	dir, err := os.MkdirTemp("", "ec")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "a.sock")

	store := storage.NewJSONStore(filepath.Join(dir, "eyecare.json"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	a, err := New(Options{Store: store, Socket: socket, Watch: true})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var resp models.Response
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err = ipc.Send(context.Background(), socket, models.Message{Type: models.MsgGetStatus})
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("agent did not answer: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !resp.Success || resp.Status == nil || !resp.Status.TrackingEnabled {
		t.Errorf("unexpected status: %+v", resp)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop")
	}
}
