// Package stats is the statistics ledger: every write is scoped to today's
// day key and is an increment, never a read-modify-write.
package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/metrics"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/storage"
)

// Ledger records attention time, breaks and completed focus sessions.
type Ledger struct {
	store   storage.Provider
	clock   clock.Clock
	metrics metrics.Recorder
}

// NewLedger creates a ledger. rec may be nil.
func NewLedger(store storage.Provider, clk clock.Clock, rec metrics.Recorder) *Ledger {
	return &Ledger{store: store, clock: clk, metrics: metrics.OrNoop(rec)}
}

func (l *Ledger) today() string {
	return clock.DayKey(l.clock.Now())
}

// Credit adds seconds to today's total and to domain's total. Empty domains
// and non-positive amounts are ignored.
func (l *Ledger) Credit(ctx context.Context, domain string, seconds int64) error {
	if domain == "" || seconds <= 0 {
		return nil
	}
	if err := l.store.AddDomainSeconds(ctx, l.today(), domain, seconds); err != nil {
		return fmt.Errorf("failed to credit %s: %w", domain, err)
	}
	l.metrics.CreditRecorded(ctx, domain, seconds)
	return nil
}

// RecordBreak counts one delivered eye-care reminder.
func (l *Ledger) RecordBreak(ctx context.Context) error {
	if err := l.store.IncrementBreaks(ctx, l.today()); err != nil {
		return fmt.Errorf("failed to record break: %w", err)
	}
	l.metrics.BreakRecorded(ctx)
	return nil
}

// RecordSessionCompletion counts one completed focus session.
func (l *Ledger) RecordSessionCompletion(ctx context.Context) error {
	if err := l.store.IncrementSessions(ctx, l.today()); err != nil {
		return fmt.Errorf("failed to record focus session: %w", err)
	}
	l.metrics.SessionCompleted(ctx)
	return nil
}

// Today returns today's aggregates; an untouched day is empty, not an error.
func (l *Ledger) Today(ctx context.Context) (models.DayStats, error) {
	return l.Day(ctx, l.today())
}

func (l *Ledger) Day(ctx context.Context, key string) (models.DayStats, error) {
	return l.store.GetDayStats(ctx, key)
}

// Range returns the recorded days between from and to inclusive, oldest first.
func (l *Ledger) Range(ctx context.Context, from, to string) ([]models.DayStats, error) {
	if from > to {
		from, to = to, from
	}
	return l.store.GetStatsRange(ctx, from, to)
}

// TopDomains returns the day's domains ordered by time spent, longest first.
// Ties break alphabetically. n <= 0 returns all of them.
func TopDomains(day models.DayStats, n int) []models.DomainTime {
	out := make([]models.DomainTime, 0, len(day.Domains))
	for d, s := range day.Domains {
		out = append(out, models.DomainTime{Domain: d, Seconds: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].Domain < out[j].Domain
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Totals sums several days.
func Totals(days []models.DayStats) models.DayStats {
	total := models.NewDayStats("")
	for _, d := range days {
		total.TotalFocusTime += d.TotalFocusTime
		total.BreaksTaken += d.BreaksTaken
		total.FocusSessions += d.FocusSessions
		for domain, s := range d.Domains {
			total.Domains[domain] += s
		}
	}
	return total
}
