package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/julianstephens/eyecare/internal/models"
)

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
		INSERT INTO day_stats (date, total_focus_time) VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET total_focus_time = day_stats.total_focus_time + EXCLUDED.total_focus_time`,
		date, seconds); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO domain_time (date, domain, seconds) VALUES ($1, $2, $3)
		ON CONFLICT (date, domain) DO UPDATE SET seconds = domain_time.seconds + EXCLUDED.seconds`,
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
		INSERT INTO day_stats (date, breaks_taken) VALUES ($1, 1)
		ON CONFLICT (date) DO UPDATE SET breaks_taken = day_stats.breaks_taken + 1`, date)
	return err
}

func (s *Store) IncrementSessions(ctx context.Context, date string) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_stats (date, focus_sessions) VALUES ($1, 1)
		ON CONFLICT (date) DO UPDATE SET focus_sessions = day_stats.focus_sessions + 1`, date)
	return err
}

func (s *Store) GetDayStats(ctx context.Context, date string) (models.DayStats, error) {
	if err := s.ready(); err != nil {
		return models.DayStats{}, err
	}
	day := models.NewDayStats(date)
	err := s.db.QueryRowContext(ctx,
		"SELECT total_focus_time, breaks_taken, focus_sessions FROM day_stats WHERE date = $1", date).
		Scan(&day.TotalFocusTime, &day.BreaksTaken, &day.FocusSessions)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.DayStats{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT domain, seconds FROM domain_time WHERE date = $1", date)
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

func (s *Store) GetStatsRange(ctx context.Context, from, to string) ([]models.DayStats, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.date, d.total_focus_time, d.breaks_taken, d.focus_sessions, t.domain, t.seconds
		FROM day_stats d
		LEFT JOIN domain_time t ON t.date = d.date
		WHERE d.date BETWEEN $1 AND $2
		ORDER BY d.date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.DayStats
	for rows.Next() {
		var day models.DayStats
		var domain sql.NullString
		var seconds sql.NullInt64
		if err := rows.Scan(&day.Date, &day.TotalFocusTime, &day.BreaksTaken, &day.FocusSessions, &domain, &seconds); err != nil {
			return nil, err
		}
		if n := len(days); n == 0 || days[n-1].Date != day.Date {
			day.Domains = map[string]int64{}
			days = append(days, day)
		}
		if domain.Valid {
			days[len(days)-1].Domains[domain.String] = seconds.Int64
		}
	}
	return days, rows.Err()
}
