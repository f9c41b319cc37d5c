package stats

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/storage"
)

func newTestLedger(t *testing.T) (*Ledger, *clock.Fake) {
	t.Helper()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "eyecare.json"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	clk := clock.NewFake(time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local))
	return NewLedger(store, clk, nil), clk
}

func TestCreditAccumulates(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	for _, c := range []struct {
		domain  string
		seconds int64
	}{{"github.com", 30}, {"example.com", 10}, {"github.com", 5}} {
		if err := l.Credit(ctx, c.domain, c.seconds); err != nil {
			t.Fatalf("Credit failed: %v", err)
		}
	}

	day, err := l.Today(ctx)
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	want := map[string]int64{"github.com": 35, "example.com": 10}
	if diff := cmp.Diff(want, day.Domains); diff != "" {
		t.Errorf("domains mismatch (-want +got):\n%s", diff)
	}
	if day.TotalFocusTime != 45 {
		t.Errorf("expected total 45, got %d", day.TotalFocusTime)
	}
}

func TestCreditIgnoresEmptyAndNonPositive(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	_ = l.Credit(ctx, "", 10)
	_ = l.Credit(ctx, "example.com", 0)
	_ = l.Credit(ctx, "example.com", -5)

	day, _ := l.Today(ctx)
	if day.TotalFocusTime != 0 || len(day.Domains) != 0 {
		t.Errorf("expected empty day, got %+v", day)
	}
}

func TestWritesFollowTheClock(t *testing.T) {
	ctx := context.Background()
	l, clk := newTestLedger(t)

	_ = l.RecordBreak(ctx)
	clk.Advance(24 * time.Hour)
	_ = l.RecordBreak(ctx)
	_ = l.RecordSessionCompletion(ctx)

	first, _ := l.Day(ctx, "2026-03-14")
	second, _ := l.Day(ctx, "2026-03-15")
	if first.BreaksTaken != 1 || first.FocusSessions != 0 {
		t.Errorf("unexpected first day: %+v", first)
	}
	if second.BreaksTaken != 1 || second.FocusSessions != 1 {
		t.Errorf("unexpected second day: %+v", second)
	}

	days, err := l.Range(ctx, "2026-03-15", "2026-03-14")
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if len(days) != 2 || days[0].Date != "2026-03-14" {
		t.Errorf("unexpected range: %+v", days)
	}
}

func TestConcurrentCreditsAreNotLost(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if err := l.Credit(ctx, "example.com", 2); err != nil {
					t.Errorf("Credit failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	day, _ := l.Today(ctx)
	if day.Domains["example.com"] != 80 || day.TotalFocusTime != 80 {
		t.Errorf("expected 80 seconds, got %+v", day)
	}
}

func TestTopDomains(t *testing.T) {
	day := models.DayStats{Domains: map[string]int64{
		"b.com": 10, "a.com": 10, "c.com": 99, "d.com": 1,
	}}
	got := TopDomains(day, 3)
	want := []models.DomainTime{
		{Domain: "c.com", Seconds: 99},
		{Domain: "a.com", Seconds: 10},
		{Domain: "b.com", Seconds: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopDomains mismatch (-want +got):\n%s", diff)
	}
	if len(TopDomains(day, 0)) != 4 {
		t.Error("n=0 should return every domain")
	}
}

func TestTotals(t *testing.T) {
	days := []models.DayStats{
		{TotalFocusTime: 10, BreaksTaken: 1, Domains: map[string]int64{"a.com": 10}},
		{TotalFocusTime: 5, FocusSessions: 2, Domains: map[string]int64{"a.com": 3, "b.com": 2}},
	}
	got := Totals(days)
	if got.TotalFocusTime != 15 || got.BreaksTaken != 1 || got.FocusSessions != 2 {
		t.Errorf("unexpected totals: %+v", got)
	}
	if got.Domains["a.com"] != 13 || got.Domains["b.com"] != 2 {
		t.Errorf("unexpected domain totals: %v", got.Domains)
	}
}
