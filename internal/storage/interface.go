// Package storage defines the document store contract and the backends'
// common plumbing: store selection and change notifications.
package storage

import (
	"context"

	"github.com/julianstephens/eyecare/internal/models"
)

// Provider persists the three documents: settings, per-day statistics and
// the focus session. Statistics writes are increments; implementations must
// apply them atomically so concurrent writers never lose credit.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error

	// Settings. GetSettings wraps errors.ErrNotFound before Init seeded them.
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error

	// Statistics, keyed by day key
	GetDayStats(ctx context.Context, date string) (models.DayStats, error)
	GetStatsRange(ctx context.Context, from, to string) ([]models.DayStats, error)
	AddDomainSeconds(ctx context.Context, date, domain string, seconds int64) error
	IncrementBreaks(ctx context.Context, date string) error
	IncrementSessions(ctx context.Context, date string) error

	// Focus session
	GetFocusSession(ctx context.Context) (models.FocusSession, error)
	SaveFocusSession(ctx context.Context, session models.FocusSession) error

	// Utils
	GetConfigPath() string
}

// FileBacked is implemented by stores whose writes show up as file changes.
type FileBacked interface {
	WatchPaths() []string
}
