package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/eyecare/internal/models"
)

// GetFocusSession returns the inactive session when none was ever saved.
func (s *Store) GetFocusSession(ctx context.Context) (models.FocusSession, error) {
	if err := s.ready(); err != nil {
		return models.FocusSession{}, err
	}
	var active int
	var endTime int64
	var queued string
	err := s.db.QueryRowContext(ctx,
		"SELECT is_active, end_time, queued_sites FROM focus_session WHERE id = 1").
		Scan(&active, &endTime, &queued)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InactiveSession(), nil
	}
	if err != nil {
		return models.FocusSession{}, err
	}

	session := models.FocusSession{IsActive: active != 0, EndTime: endTime}
	if err := json.Unmarshal([]byte(queued), &session.QueuedSites); err != nil {
		return models.FocusSession{}, fmt.Errorf("parsing queued sites: %w", err)
	}
	if session.QueuedSites == nil {
		session.QueuedSites = []string{}
	}
	return session, nil
}

func (s *Store) SaveFocusSession(ctx context.Context, session models.FocusSession) error {
	if err := s.ready(); err != nil {
		return err
	}
	queued := session.QueuedSites
	if queued == nil {
		queued = []string{}
	}
	data, err := json.Marshal(queued)
	if err != nil {
		return err
	}
	active := 0
	if session.IsActive {
		active = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO focus_session (id, is_active, end_time, queued_sites) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			is_active = excluded.is_active,
			end_time = excluded.end_time,
			queued_sites = excluded.queued_sites`,
		active, session.EndTime, string(data))
	return err
}
