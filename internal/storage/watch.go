package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
)

// ErrNotWatchable is returned for stores that are not backed by local files.
var ErrNotWatchable = errors.New("store does not support change notifications")

const defaultDebounce = 250 * time.Millisecond

type snapshot struct {
	settings models.Settings
	focus    models.FocusSession
	stats    models.DayStats
}

// Watcher reports which documents changed after another process wrote to a
// file-backed store. Writes are detected with fsnotify on the store's
// directory, debounced, and diffed per document against the last snapshot.
type Watcher struct {
	store    Provider
	paths    map[string]struct{}
	dirs     []string
	today    func() string
	onChange func(keys []string)
	debounce time.Duration
	last     snapshot
}

// NewWatcher prepares a watcher; today returns the current day key so the
// stats document can be compared.
func NewWatcher(store Provider, today func() string, onChange func(keys []string)) (*Watcher, error) {
	fb, ok := store.(FileBacked)
	if !ok {
		return nil, ErrNotWatchable
	}
	w := &Watcher{
		store:    store,
		paths:    map[string]struct{}{},
		today:    today,
		onChange: onChange,
		debounce: defaultDebounce,
	}
	seen := map[string]bool{}
	for _, p := range fb.WatchPaths() {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.paths[abs] = struct{}{}
		if dir := filepath.Dir(abs); !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.last, err = w.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read initial store snapshot: %w", err)
	}
	logger.Debug("Watching store for external changes", "dirs", w.dirs)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Store watcher error", "error", err)

		case <-timer.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.paths[abs]
	return ok
}

func (w *Watcher) check(ctx context.Context) {
	next, err := w.snapshot(ctx)
	if err != nil {
		logger.Warn("Failed to read store after change", "error", err)
		return
	}
	keys := diffSnapshots(w.last, next)
	w.last = next
	if len(keys) > 0 {
		w.onChange(keys)
	}
}

func (w *Watcher) snapshot(ctx context.Context) (snapshot, error) {
	var s snapshot
	var err error
	if s.settings, err = w.store.GetSettings(ctx); err != nil {
		return s, err
	}
	if s.focus, err = w.store.GetFocusSession(ctx); err != nil {
		return s, err
	}
	if s.stats, err = w.store.GetDayStats(ctx, w.today()); err != nil {
		return s, err
	}
	return s, nil
}

func diffSnapshots(prev, next snapshot) []string {
	var keys []string
	if !reflect.DeepEqual(prev.settings, next.settings) {
		keys = append(keys, constants.KeySettings)
	}
	if !reflect.DeepEqual(prev.focus, next.focus) {
		keys = append(keys, constants.KeyFocusMode)
	}
	if !reflect.DeepEqual(prev.stats, next.stats) {
		keys = append(keys, constants.KeyStats)
	}
	return keys
}
