package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/julianstephens/eyecare/internal/models"
)

// AddDomainSeconds credits seconds to the day total and the domain total in
// one transaction. Both are server-side increments, so concurrent writers
// never overwrite each other.
func (s *Store) AddDomainSeconds(ctx context.Context, date, domain string, seconds int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO day_stats (date, total_focus_time) VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET total_focus_time = total_focus_time + excluded.total_focus_time`,
		date, seconds); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO domain_time (date, domain, seconds) VALUES (?, ?, ?)
		ON CONFLICT (date, domain) DO UPDATE SET seconds = seconds + excluded.seconds`,
		date, domain, seconds); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) IncrementBreaks(ctx context.Context, date string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_stats (date, breaks_taken) VALUES (?, 1)
		ON CONFLICT (date) DO UPDATE SET breaks_taken = breaks_taken + 1`, date)
	return err
}

func (s *Store) IncrementSessions(ctx context.Context, date string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_stats (date, focus_sessions) VALUES (?, 1)
		ON CONFLICT (date) DO UPDATE SET focus_sessions = focus_sessions + 1`, date)
	return err
}

// GetDayStats returns an empty day when nothing was recorded for date.
func (s *Store) GetDayStats(ctx context.Context, date string) (models.DayStats, error) {
	if err := s.ready(); err != nil {
		return models.DayStats{}, err
	}
	day := models.NewDayStats(date)
	err := s.db.QueryRowContext(ctx,
		"SELECT total_focus_time, breaks_taken, focus_sessions FROM day_stats WHERE date = ?", date).
		Scan(&day.TotalFocusTime, &day.BreaksTaken, &day.FocusSessions)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.DayStats{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT domain, seconds FROM domain_time WHERE date = ?", date)
	if err != nil {
		return models.DayStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var domain string
		var seconds int64
		if err := rows.Scan(&domain, &seconds); err != nil {
			return models.DayStats{}, err
		}
		day.Domains[domain] = seconds
	}
	return day, rows.Err()
}

// GetStatsRange returns every recorded day in [from, to], oldest first.
func (s *Store) GetStatsRange(ctx context.Context, from, to string) ([]models.DayStats, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, total_focus_time, breaks_taken, focus_sessions
		FROM day_stats WHERE date >= ? AND date <= ? ORDER BY date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.DayStats
	index := map[string]int{}
	for rows.Next() {
		var day models.DayStats
		if err := rows.Scan(&day.Date, &day.TotalFocusTime, &day.BreaksTaken, &day.FocusSessions); err != nil {
			return nil, err
		}
		day.Domains = map[string]int64{}
		index[day.Date] = len(days)
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	domainRows, err := s.db.QueryContext(ctx,
		"SELECT date, domain, seconds FROM domain_time WHERE date >= ? AND date <= ?", from, to)
	if err != nil {
		return nil, err
	}
	defer domainRows.Close()
	for domainRows.Next() {
		var date, domain string
		var seconds int64
		if err := domainRows.Scan(&date, &domain, &seconds); err != nil {
			return nil, err
		}
		if i, ok := index[date]; ok {
			days[i].Domains[domain] = seconds
		}
	}
	return days, domainRows.Err()
}
