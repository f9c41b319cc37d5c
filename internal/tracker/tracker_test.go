package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/julianstephens/eyecare/internal/clock"
)

type credit struct {
	Domain  string
	Seconds int64
}

type fakeLedger struct {
	credits []credit
	err     error
}

func (f *fakeLedger) Credit(_ context.Context, domain string, seconds int64) error {
	if f.err != nil {
		return f.err
	}
	f.credits = append(f.credits, credit{domain, seconds})
	return nil
}

func (f *fakeLedger) total() int64 {
	var n int64
	for _, c := range f.credits {
		n += c.Seconds
	}
	return n
}

func setup(t *testing.T) (*Tracker, *fakeLedger, *clock.Fake) {
	t.Helper()
	ledger := &fakeLedger{}
	clk := clock.NewFake(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC))
	return New(ledger, clk, true), ledger, clk
}

func TestObserveCreditsVacatedDomain(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	clk.Advance(10 * time.Second)
	tr.Observe(ctx, "b.com")
	clk.Advance(5 * time.Second)
	tr.Observe(ctx, "")

	want := []credit{{"a.com", 10}, {"b.com", 5}}
	if diff := cmp.Diff(want, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestObserveSameDomainKeepsGrowing(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	clk.Advance(3 * time.Second)
	tr.Observe(ctx, "a.com")
	clk.Advance(4 * time.Second)
	tr.Observe(ctx, "")

	if diff := cmp.Diff([]credit{{"a.com", 7}}, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestNoiseFloorAndRounding(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	clk.Advance(900 * time.Millisecond)
	tr.Observe(ctx, "b.com")
	clk.Advance(2600 * time.Millisecond)
	tr.Observe(ctx, "c.com")
	clk.Advance(1400 * time.Millisecond)
	tr.Observe(ctx, "")

	want := []credit{{"b.com", 3}, {"c.com", 1}}
	if diff := cmp.Diff(want, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestIdleStopsAndResumes(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	clk.Advance(20 * time.Second)
	tr.IdleChanged(ctx, false)
	clk.Advance(10 * time.Minute)
	tr.Flush(ctx)

	if snap := tr.Snapshot(); snap.Domain != "" || snap.Resume != "a.com" || snap.UserActive {
		t.Fatalf("unexpected cursor while idle: %+v", snap)
	}

	tr.IdleChanged(ctx, true)
	clk.Advance(15 * time.Second)
	tr.Flush(ctx)

	want := []credit{{"a.com", 20}, {"a.com", 15}}
	if diff := cmp.Diff(want, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestObservationWhileIdleOverridesResume(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	tr.IdleChanged(ctx, false)
	clk.Advance(time.Minute)
	tr.Observe(ctx, "b.com")
	clk.Advance(time.Minute)
	tr.IdleChanged(ctx, true)

	if snap := tr.Snapshot(); snap.Domain != "b.com" || !snap.Start.Equal(clk.Now()) {
		t.Errorf("expected fresh start on b.com, got %+v", snap)
	}
	if len(ledger.credits) != 0 {
		t.Errorf("idle time must not be credited: %+v", ledger.credits)
	}
}

func TestFocusLostWhileIdleClearsResume(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	clk.Advance(10 * time.Second)
	tr.IdleChanged(ctx, false)
	tr.Observe(ctx, "")
	tr.IdleChanged(ctx, true)
	clk.Advance(5 * time.Minute)
	tr.Flush(ctx)

	if snap := tr.Snapshot(); snap.Domain != "" || snap.Resume != "" {
		t.Errorf("expected no domain after returning unfocused, got %+v", snap)
	}
	want := []credit{{"a.com", 10}}
	if diff := cmp.Diff(want, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestFlushCreditsAndResetsStart(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	for i := 0; i < 3; i++ {
		clk.Advance(30 * time.Second)
		tr.Flush(ctx)
	}
	clk.Advance(500 * time.Millisecond)
	tr.Flush(ctx)
	clk.Advance(800 * time.Millisecond)
	tr.Observe(ctx, "")

	if ledger.total() != 91 {
		t.Errorf("expected 91 seconds, got %d (%+v)", ledger.total(), ledger.credits)
	}
}

func TestDisabledTrackingCreditsNothing(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)

	tr.Observe(ctx, "a.com")
	clk.Advance(5 * time.Second)
	tr.SetEnabled(ctx, false)
	clk.Advance(time.Minute)
	tr.Observe(ctx, "b.com")
	clk.Advance(time.Minute)
	tr.SetEnabled(ctx, true)
	clk.Advance(2 * time.Second)
	tr.Observe(ctx, "")

	want := []credit{{"a.com", 5}, {"b.com", 2}}
	if diff := cmp.Diff(want, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestCreditFailureIsForfeited(t *testing.T) {
	ctx := context.Background()
	tr, ledger, clk := setup(t)
	ledger.err = errors.New("store unavailable")

	tr.Observe(ctx, "a.com")
	clk.Advance(10 * time.Second)
	tr.Observe(ctx, "b.com")

	if snap := tr.Snapshot(); snap.Domain != "b.com" {
		t.Errorf("cursor must move despite failure, got %+v", snap)
	}

	ledger.err = nil
	clk.Advance(2 * time.Second)
	tr.Observe(ctx, "")
	if diff := cmp.Diff([]credit{{"b.com", 2}}, ledger.credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}
