package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
)

type DebugCmd struct {
	StorePath    DebugStorePathCmd    `cmd:"" help:"Show the resolved store location."`
	DumpSettings DebugDumpSettingsCmd `cmd:"" help:"Dump the settings document as JSON."`
	DumpFocus    DebugDumpFocusCmd    `cmd:"" help:"Dump the focus session document as JSON."`
	DumpStats    DebugDumpStatsCmd    `cmd:"" help:"Dump one day's statistics as JSON."`
}

type DebugStorePathCmd struct{}

func (cmd *DebugStorePathCmd) Run(ctx *Context) error {
	output := map[string]string{
		"path":   ctx.Store.GetConfigPath(),
		"kind":   ctx.Target.Kind(),
		"source": ctx.Target.Source,
		"socket": ctx.Socket,
	}
	return printJSON(ctx, output)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *Context) error {
	s, err := ctx.Store.GetSettings(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return printJSON(ctx, s)
}

type DebugDumpFocusCmd struct{}

func (cmd *DebugDumpFocusCmd) Run(ctx *Context) error {
	session, err := ctx.Store.GetFocusSession(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get focus session: %w", err)
	}
	return printJSON(ctx, session)
}

type DebugDumpStatsCmd struct {
	Date string `arg:"" help:"Day to dump (YYYY-MM-DD or 'today')." default:"today"`
}

func (cmd *DebugDumpStatsCmd) Run(ctx *Context) error {
	date := cmd.Date
	if date == "today" {
		date = clock.DayKey(ctx.clock().Now())
	}
	if !isValidDate(date) {
		return fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD or 'today')", date)
	}

	day, err := ctx.Store.GetDayStats(context.Background(), date)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	return printJSON(ctx, day)
}

func printJSON(ctx *Context, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(ctx.out(), string(jsonBytes))
	return nil
}

func isValidDate(dateStr string) bool {
	_, err := time.Parse(constants.DateFormat, dateStr)
	return err == nil
}
