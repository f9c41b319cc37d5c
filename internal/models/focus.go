package models

import "time"

// FocusSession is the persisted focus-mode document.
type FocusSession struct {
	IsActive    bool     `json:"isActive"`
	EndTime     int64    `json:"endTime"` // epoch milliseconds, 0 when inactive
	QueuedSites []string `json:"queuedSites"`
}

// InactiveSession is the document written when a session ends.
func InactiveSession() FocusSession {
	return FocusSession{IsActive: false, EndTime: 0, QueuedSites: []string{}}
}

// End returns EndTime as a time.Time.
func (f FocusSession) End() time.Time {
	if f.EndTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(f.EndTime)
}

// Remaining returns the time left at now, never negative.
func (f FocusSession) Remaining(now time.Time) time.Duration {
	if !f.IsActive {
		return 0
	}
	left := f.End().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether an active session's end time has been reached.
func (f FocusSession) Expired(now time.Time) bool {
	return f.IsActive && !now.Before(f.End())
}
