package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/models"
)

// document is the on-disk shape, the same three keys the browser extension
// keeps in its local storage area.
type document struct {
	Version   int                        `json:"version"`
	Settings  *models.Settings           `json:"settings,omitempty"`
	Stats     map[string]models.DayStats `json:"stats"`
	FocusMode models.FocusSession        `json:"focusMode"`
}

// JSONStore keeps all documents in one JSON file. Every operation re-reads
// the file under a process-local lock and writes through a rename, so a
// reader never sees a torn file. Writers in other processes are not
// serialised; use the sqlite or postgres store for concurrent processes.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	loaded bool
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc, err := s.read()
	if os.IsNotExist(err) {
		doc = &document{Version: 1}
	} else if err != nil {
		return err
	}
	if doc.Settings == nil {
		defaults := models.DefaultSettings()
		doc.Settings = &defaults
	}
	if err := s.write(doc); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

func (s *JSONStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'eyecare init' first")
		}
		return err
	}
	s.loaded = true
	return nil
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
	return nil
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

func (s *JSONStore) WatchPaths() []string {
	return []string{s.path}
}

func (s *JSONStore) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	doc := &document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse storage: %w", err)
	}
	if doc.Stats == nil {
		doc.Stats = map[string]models.DayStats{}
	}
	if doc.FocusMode.QueuedSites == nil {
		doc.FocusMode.QueuedSites = []string{}
	}
	return doc, nil
}

func (s *JSONStore) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".eyecare-*.json")
	if err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace storage: %w", err)
	}
	return nil
}

// view runs fn on a fresh read of the document.
func (s *JSONStore) view(fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return apperrors.ErrStoreNotLoaded
	}
	doc, err := s.read()
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn on a fresh read and writes the result back.
func (s *JSONStore) update(fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return apperrors.ErrStoreNotLoaded
	}
	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *JSONStore) GetSettings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := s.view(func(doc *document) error {
		if doc.Settings == nil {
			return fmt.Errorf("settings: %w", apperrors.ErrNotFound)
		}
		out = doc.Settings.Clone()
		models.ApplyDefaultSettings(&out)
		return nil
	})
	return out, err
}

func (s *JSONStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	return s.update(func(doc *document) error {
		c := settings.Clone()
		doc.Settings = &c
		return nil
	})
}

func dayOf(doc *document, date string) models.DayStats {
	day, ok := doc.Stats[date]
	if !ok {
		return models.NewDayStats(date)
	}
	day.Date = date
	if day.Domains == nil {
		day.Domains = map[string]int64{}
	}
	return day
}

func (s *JSONStore) AddDomainSeconds(ctx context.Context, date, domain string, seconds int64) error {
	return s.update(func(doc *document) error {
		day := dayOf(doc, date)
		day.TotalFocusTime += seconds
		day.Domains[domain] += seconds
		doc.Stats[date] = day
		return nil
	})
}

func (s *JSONStore) IncrementBreaks(ctx context.Context, date string) error {
	return s.update(func(doc *document) error {
		day := dayOf(doc, date)
		day.BreaksTaken++
		doc.Stats[date] = day
		return nil
	})
}

func (s *JSONStore) IncrementSessions(ctx context.Context, date string) error {
	return s.update(func(doc *document) error {
		day := dayOf(doc, date)
		day.FocusSessions++
		doc.Stats[date] = day
		return nil
	})
}

func (s *JSONStore) GetDayStats(ctx context.Context, date string) (models.DayStats, error) {
	var out models.DayStats
	err := s.view(func(doc *document) error {
		out = dayOf(doc, date)
		return nil
	})
	return out, err
}

func (s *JSONStore) GetStatsRange(ctx context.Context, from, to string) ([]models.DayStats, error) {
	var out []models.DayStats
	err := s.view(func(doc *document) error {
		for date := range doc.Stats {
			if date >= from && date <= to {
				out = append(out, dayOf(doc, date))
			}
		}
		return nil
	})
	sortDays(out)
	return out, err
}

func (s *JSONStore) GetFocusSession(ctx context.Context) (models.FocusSession, error) {
	var out models.FocusSession
	err := s.view(func(doc *document) error {
		out = doc.FocusMode
		return nil
	})
	return out, err
}

func (s *JSONStore) SaveFocusSession(ctx context.Context, session models.FocusSession) error {
	return s.update(func(doc *document) error {
		if session.QueuedSites == nil {
			session.QueuedSites = []string{}
		}
		doc.FocusMode = session
		return nil
	})
}
