package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/domains"
	"github.com/julianstephens/eyecare/internal/ipc"
	"github.com/julianstephens/eyecare/internal/keyring"
	"github.com/julianstephens/eyecare/internal/storage"
)

// Seams for tests.
var (
	pingFunc         = ipc.Ping
	keyringProbeFunc = keyring.IsAvailable
)

type schemaVersioned interface {
	SchemaVersion(ctx context.Context) (int, int, error)
}

type DoctorCmd struct{}

type check struct {
	name       string
	warning    bool // a failure is reported but does not fail the run
	needsStore bool
	run        func(ctx context.Context) error
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	w := ctx.out()
	fmt.Fprintln(w, "Running diagnostics...")
	fmt.Fprintln(w)

	bg := context.Background()
	dbReachable := false
	checks := []check{
		{name: "Store reachable", run: func(c context.Context) error {
			if err := checkStoreReachable(c, ctx); err != nil {
				return err
			}
			dbReachable = true
			return nil
		}},
		{name: "Schema version", needsStore: true, run: func(c context.Context) error { return checkSchemaVersion(c, ctx) }},
		{name: "Data validation", needsStore: true, run: func(c context.Context) error { return checkValidation(c, ctx) }},
		{name: "Backups present", warning: true, needsStore: true, run: func(c context.Context) error { return checkBackupsPresent(ctx) }},
		{name: "Agent running", warning: true, run: func(c context.Context) error { return checkAgent(c, ctx) }},
		{name: "OS keyring", warning: true, run: func(context.Context) error { return checkKeyring(ctx) }},
		{name: "Clock/timezone", run: func(context.Context) error { return checkClockTimezone(ctx) }},
	}

	hasError := false
	for _, c := range checks {
		if c.needsStore && !dbReachable {
			fmt.Fprintf(w, "⊘ %s: SKIPPED (store not reachable)\n", c.name)
			continue
		}
		err := c.run(bg)
		switch {
		case err == nil:
			fmt.Fprintf(w, "✓ %s: OK\n", c.name)
		case c.warning:
			fmt.Fprintf(w, "⚠ %s: WARNING\n", c.name)
			fmt.Fprintf(w, "   %v\n", err)
		default:
			fmt.Fprintf(w, "❌ %s: FAIL\n", c.name)
			fmt.Fprintf(w, "   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Fprintln(w)
	if hasError {
		fmt.Fprintln(w, "Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Fprintln(w, "All diagnostics passed!")
	return nil
}

func checkStoreReachable(c context.Context, ctx *Context) error {
	if err := ctx.Store.Load(c); err != nil {
		return fmt.Errorf("failed to load store (%s, from %s): %w", ctx.Target.Kind(), ctx.Target.Source, err)
	}
	return nil
}

func checkSchemaVersion(c context.Context, ctx *Context) error {
	sv, ok := ctx.Store.(schemaVersioned)
	if !ok {
		// the JSON store has no schema
		return nil
	}
	current, latest, err := sv.SchemaVersion(c)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkValidation(c context.Context, ctx *Context) error {
	s, err := ctx.Store.GetSettings(c)
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	for _, list := range [][]string{s.Blocklist, s.Allowlist} {
		for _, entry := range list {
			if d, err := domains.Normalize(entry); err != nil || d != entry {
				return fmt.Errorf("list entry %q is not a normalized domain", entry)
			}
		}
	}
	for _, d := range s.Blocklist {
		if slices.Contains(s.Allowlist, d) {
			return fmt.Errorf("%s is on both the blocklist and the allowlist", d)
		}
	}

	session, err := ctx.Store.GetFocusSession(c)
	if err != nil {
		return fmt.Errorf("failed to get focus session: %w", err)
	}
	if session.IsActive && session.EndTime <= 0 {
		return fmt.Errorf("active focus session has no end time")
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr, err := ctx.BackupManager()
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'eyecare backup create'")
	}
	return nil
}

func checkAgent(c context.Context, ctx *Context) error {
	version, pid, err := pingFunc(c, ctx.Socket)
	if err != nil {
		return err
	}
	if version != constants.Version {
		return fmt.Errorf("agent (pid %d) runs %s, this binary is %s", pid, version, constants.Version)
	}
	return nil
}

func checkKeyring(ctx *Context) error {
	if ctx.Target.Source != storage.SourceKeyring && ctx.Target.Kind() != "postgres" {
		return nil
	}
	if !keyringProbeFunc() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := ctx.clock().Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}

	_, offset := now.Zone()
	if offset == 0 && now.Location() == time.UTC {
		fmt.Fprintln(ctx.out(), "   Note: timezone is UTC, days roll over at UTC midnight")
	}
	return nil
}
