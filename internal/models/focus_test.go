package models

import (
	"testing"
	"time"
)

func TestFocusSessionRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f := FocusSession{IsActive: true, EndTime: now.Add(90 * time.Second).UnixMilli()}

	if got := f.Remaining(now); got != 90*time.Second {
		t.Errorf("Remaining = %v, want 90s", got)
	}
	if f.Expired(now) {
		t.Error("session should not be expired yet")
	}
	later := now.Add(2 * time.Minute)
	if got := f.Remaining(later); got != 0 {
		t.Errorf("Remaining after end = %v, want 0", got)
	}
	if !f.Expired(later) {
		t.Error("session should be expired")
	}
	if InactiveSession().Expired(later) {
		t.Error("inactive session never expires")
	}
}

func TestRuleEqual(t *testing.T) {
	a := Rule{
		ID:        10000,
		Priority:  1,
		Action:    RuleAction{Type: "redirect", Redirect: &RuleRedirect{ExtensionPath: "/focus-mode.html"}},
		Condition: RuleCondition{RequestDomains: []string{"x.com"}, ResourceTypes: []string{"main_frame"}},
	}
	b := a
	b.Action.Redirect = &RuleRedirect{ExtensionPath: "/focus-mode.html"}
	if !a.Equal(b) {
		t.Error("expected equal rules")
	}
	b.Condition.RequestDomains = []string{"y.com"}
	if a.Equal(b) {
		t.Error("expected rules with different domains to differ")
	}
	c := a
	c.Action.Redirect = nil
	if a.Equal(c) {
		t.Error("expected rules with and without redirect to differ")
	}
}
