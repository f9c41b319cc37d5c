// Package alarms schedules named one-shot and periodic wake-ups. Creating an
// alarm under an existing name replaces it.
package alarms

import (
	"sync"
	"time"

	"github.com/julianstephens/eyecare/internal/clock"
)

// Alarm describes a scheduled alarm.
type Alarm struct {
	Name   string
	When   time.Time
	Period time.Duration // zero for one-shot alarms
}

type entry struct {
	alarm Alarm
	timer *time.Timer
}

// Service runs alarms on timers and reports each firing to fire, from the
// timer's goroutine.
type Service struct {
	mu      sync.Mutex
	clock   clock.Clock
	fire    func(name string)
	entries map[string]*entry
	stopped bool
}

func NewService(clk clock.Clock, fire func(name string)) *Service {
	return &Service{
		clock:   clk,
		fire:    fire,
		entries: make(map[string]*entry),
	}
}

// At schedules a one-shot alarm. A time in the past fires immediately.
func (s *Service) At(name string, when time.Time) {
	s.schedule(name, when, 0)
}

// Every schedules a periodic alarm first firing after delay.
func (s *Service) Every(name string, delay, period time.Duration) {
	s.schedule(name, s.clock.Now().Add(delay), period)
}

func (s *Service) schedule(name string, when time.Time, period time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.clearLocked(name)

	delay := when.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	e := &entry{alarm: Alarm{Name: name, When: when, Period: period}}
	e.timer = time.AfterFunc(delay, func() { s.ring(e) })
	s.entries[name] = e
}

func (s *Service) ring(e *entry) {
	s.mu.Lock()
	if s.stopped || s.entries[e.alarm.Name] != e {
		// replaced or cleared after the timer fired
		s.mu.Unlock()
		return
	}
	if e.alarm.Period > 0 {
		e.alarm.When = s.clock.Now().Add(e.alarm.Period)
		e.timer.Reset(e.alarm.Period)
	} else {
		delete(s.entries, e.alarm.Name)
	}
	s.mu.Unlock()

	s.fire(e.alarm.Name)
}

// Clear cancels the named alarm and reports whether one existed.
func (s *Service) Clear(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(name)
}

func (s *Service) clearLocked(name string) bool {
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, name)
	return true
}

func (s *Service) Get(name string) (Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return Alarm{}, false
	}
	return e.alarm, true
}

// Stop cancels every alarm. Later schedules are ignored.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.entries {
		s.clearLocked(name)
	}
	s.stopped = true
}
