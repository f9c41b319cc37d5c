package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/models"
)

type memoryOnlyStore struct{ Provider }

func TestNewWatcherRequiresFileBackedStore(t *testing.T) {
	_, err := NewWatcher(memoryOnlyStore{}, func() string { return "" }, func([]string) {})
	if !errors.Is(err, ErrNotWatchable) {
		t.Errorf("expected ErrNotWatchable, got %v", err)
	}
}

func TestDiffSnapshots(t *testing.T) {
	base := snapshot{
		settings: models.DefaultSettings(),
		focus:    models.InactiveSession(),
		stats:    models.NewDayStats("2026-03-01"),
	}
	if keys := diffSnapshots(base, base); len(keys) != 0 {
		t.Errorf("expected no changes, got %v", keys)
	}

	next := base
	next.settings = base.settings.Clone()
	next.settings.ReminderInterval = 5
	next.focus = models.FocusSession{IsActive: true, EndTime: 1, QueuedSites: []string{}}
	keys := diffSnapshots(base, next)
	if len(keys) != 2 || keys[0] != constants.KeySettings || keys[1] != constants.KeyFocusMode {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestWatcherReportsExternalWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	path := filepath.Join(t.TempDir(), "eyecare.json")
	agentSide := NewJSONStore(path)
	if err := agentSide.Init(ctx); err != nil {
		t.Fatal(err)
	}

	changes := make(chan []string, 4)
	w, err := NewWatcher(agentSide, func() string { return "2026-03-01" }, func(keys []string) { changes <- keys })
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let the watcher take its initial snapshot before writing.
	time.Sleep(100 * time.Millisecond)

	cliSide := NewJSONStore(path)
	if err := cliSide.Load(ctx); err != nil {
		t.Fatal(err)
	}
	settings, err := cliSide.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	settings.ReminderInterval = 45
	if err := cliSide.SaveSettings(ctx, settings); err != nil {
		t.Fatal(err)
	}

	select {
	case keys := <-changes:
		if len(keys) != 1 || keys[0] != constants.KeySettings {
			t.Errorf("expected [settings], got %v", keys)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
}
