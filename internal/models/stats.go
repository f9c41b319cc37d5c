package models

// DayStats is one day's aggregates, keyed by day key (YYYY-MM-DD).
type DayStats struct {
	Date           string           `json:"date"`
	TotalFocusTime int64            `json:"totalFocusTime"` // seconds, always the sum of Domains
	BreaksTaken    int              `json:"breaksTaken"`
	Domains        map[string]int64 `json:"domains"`
	FocusSessions  int              `json:"focusSessions"`
}

// NewDayStats returns an empty day.
func NewDayStats(date string) DayStats {
	return DayStats{Date: date, Domains: map[string]int64{}}
}

// DomainTime is a single per-domain total, used for sorted reports.
type DomainTime struct {
	Domain  string
	Seconds int64
}
