package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/eyecare/internal/backup"
	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/config"
	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/ipc"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/storage"
	"github.com/julianstephens/eyecare/internal/storage/sqlite"
)

// Context is shared by every command.
type Context struct {
	Store  storage.Provider
	Target storage.Target
	Config *config.Config
	Socket string
	Clock  clock.Clock
	Out    io.Writer
}

// Seam for tests.
var sendFunc = ipc.Send

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) clock() clock.Clock {
	if c.Clock == nil {
		return clock.SystemClock{}
	}
	return c.Clock
}

// Send delivers msg to the running agent and turns a failed response into an error.
func (c *Context) Send(ctx context.Context, msg models.Message) (models.Response, error) {
	resp, err := sendFunc(ctx, c.Socket, msg)
	if err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

// Status asks the running agent for its status.
func (c *Context) Status(ctx context.Context) (models.Status, error) {
	resp, err := c.Send(ctx, models.Message{Type: models.MsgGetStatus})
	if err != nil {
		return models.Status{}, err
	}
	if resp.Status == nil {
		return models.Status{}, fmt.Errorf("agent returned no status")
	}
	return *resp.Status, nil
}

// Settings returns the stored settings with defaults filled in.
func (c *Context) Settings(ctx context.Context) (models.Settings, error) {
	s, err := c.Store.GetSettings(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
		}
		s = models.DefaultSettings()
	}
	models.ApplyDefaultSettings(&s)
	return s, nil
}

// UpdateSettings applies fn to the stored settings, saves them and tells a
// running agent to reload. A stopped agent picks the change up on start.
func (c *Context) UpdateSettings(ctx context.Context, fn func(*models.Settings) error) (models.Settings, error) {
	s, err := c.Settings(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if err := fn(&s); err != nil {
		return models.Settings{}, err
	}
	if err := c.Store.SaveSettings(ctx, s); err != nil {
		return models.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	c.notifyAgent(ctx)
	return s, nil
}

func (c *Context) notifyAgent(ctx context.Context) {
	_, err := c.Send(ctx, models.Message{Type: models.MsgUpdateSettings})
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotRunning):
		logger.Debug("Agent not running, settings apply on next start")
	default:
		logger.Warn("Agent did not reload settings", "error", err)
	}
}

// BackupManager returns the backup manager for a sqlite store.
func (c *Context) BackupManager() (*backup.Manager, error) {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for the sqlite store (current: %s)", c.Target.Kind())
	}
	return backup.NewManager(c.Store.GetConfigPath(), c.clock()), nil
}

// PerformAutomaticBackup creates a backup for sqlite stores and only logs failures.
func (c *Context) PerformAutomaticBackup(ctx context.Context) {
	mgr, err := c.BackupManager()
	if err != nil {
		return
	}
	if _, err := mgr.Create(ctx); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}
