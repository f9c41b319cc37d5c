// Package tracker turns activation signals into attention credits.
//
// The tracker holds one cursor: the domain that currently has the user's
// attention and the instant it gained it. Whenever the cursor moves, or the
// agent flushes, the elapsed interval is credited to the vacated domain.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/logger"
)

// Crediter receives elapsed attention time.
type Crediter interface {
	Credit(ctx context.Context, domain string, seconds int64) error
}

// Cursor is a point-in-time view of the tracker.
type Cursor struct {
	Domain     string
	Start      time.Time
	UserActive bool
	Resume     string
	Enabled    bool
}

type Tracker struct {
	mu     sync.Mutex
	clock  clock.Clock
	ledger Crediter

	current    string
	start      time.Time
	userActive bool
	resume     string
	enabled    bool
}

// New creates a tracker with an active user and no current domain.
func New(ledger Crediter, clk clock.Clock, enabled bool) *Tracker {
	return &Tracker{
		clock:      clk,
		ledger:     ledger,
		userActive: true,
		enabled:    enabled,
	}
}

// Observe reports the domain now in front of the user, "" for none.
// While the user is away the domain, or its absence, is only remembered for
// their return.
func (t *Tracker) Observe(ctx context.Context, domain string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.userActive {
		t.resume = domain
		return
	}
	t.moveTo(ctx, domain)
}

// IdleChanged reports the user's presence. Going away stops the clock on
// the current domain; coming back restarts it on the remembered one.
func (t *Tracker) IdleChanged(ctx context.Context, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if active == t.userActive {
		return
	}
	if !active {
		vacated := t.current
		t.moveTo(ctx, "")
		if vacated != "" {
			t.resume = vacated
		}
		t.userActive = false
		return
	}

	t.userActive = true
	t.current = t.resume
	t.start = t.clock.Now()
	t.resume = ""
}

// Flush credits the interval accumulated so far without moving the cursor.
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == "" || !t.userActive {
		return
	}
	now := t.clock.Now()
	if t.credit(ctx, now) {
		t.start = now
	}
}

// SetEnabled toggles crediting. The in-progress interval is credited before
// tracking stops and discarded when it resumes.
func (t *Tracker) SetEnabled(ctx context.Context, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if enabled == t.enabled {
		return
	}
	now := t.clock.Now()
	if !enabled {
		if t.userActive {
			t.credit(ctx, now)
		}
	}
	t.enabled = enabled
	t.start = now
}

func (t *Tracker) Snapshot() Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Cursor{
		Domain:     t.current,
		Start:      t.start,
		UserActive: t.userActive,
		Resume:     t.resume,
		Enabled:    t.enabled,
	}
}

func (t *Tracker) moveTo(ctx context.Context, domain string) {
	if domain == t.current {
		return
	}
	now := t.clock.Now()
	t.credit(ctx, now)
	t.current = domain
	t.start = now
}

// credit sends now-start to the current domain. It reports whether the
// interval cleared the noise floor, whether or not the write succeeded.
func (t *Tracker) credit(ctx context.Context, now time.Time) bool {
	if t.current == "" || !t.enabled || t.start.IsZero() {
		return false
	}
	elapsed := now.Sub(t.start)
	if elapsed < constants.MinCreditDuration {
		return false
	}
	seconds := int64(elapsed.Round(time.Second) / time.Second)
	if err := t.ledger.Credit(ctx, t.current, seconds); err != nil {
		logger.Warn("Missed credit", "domain", t.current, "seconds", seconds, "error", err)
	}
	return true
}
