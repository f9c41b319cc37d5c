package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/metrics"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/stats"
	"github.com/julianstephens/eyecare/internal/tui"
)

type StatsCmd struct {
	Days  int  `help:"Number of days to report, ending today." default:"1"`
	Top   int  `help:"Number of domains to list." default:"10"`
	Plain bool `help:"Print markdown instead of rendering it."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	bg := context.Background()
	ledger := stats.NewLedger(ctx.Store, ctx.clock(), metrics.Noop{})

	from, to := reportWindow(ctx.clock().Now(), c.Days)
	days, err := ledger.Range(bg, from, to)
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}

	md := renderStatsMarkdown(from, to, days, c.Top)
	if c.Plain {
		fmt.Fprint(ctx.out(), md)
		return nil
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Fprint(ctx.out(), md)
		return nil
	}
	fmt.Fprint(ctx.out(), out)
	return nil
}

func renderStatsMarkdown(from, to string, days []models.DayStats, top int) string {
	var b strings.Builder
	if from == to {
		fmt.Fprintf(&b, "# Focus report for %s\n\n", to)
	} else {
		fmt.Fprintf(&b, "# Focus report %s to %s\n\n", from, to)
	}

	total := stats.Totals(days)
	if total.TotalFocusTime == 0 && total.BreaksTaken == 0 && total.FocusSessions == 0 {
		b.WriteString("Nothing recorded yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "- **Focused:** %s\n", tui.FormatSeconds(total.TotalFocusTime))
	fmt.Fprintf(&b, "- **Breaks taken:** %d\n", total.BreaksTaken)
	fmt.Fprintf(&b, "- **Focus sessions completed:** %d\n\n", total.FocusSessions)

	if ranked := stats.TopDomains(total, top); len(ranked) > 0 {
		b.WriteString("## Top domains\n\n| Domain | Time | Share |\n|---|---:|---:|\n")
		for _, dt := range ranked {
			share := float64(dt.Seconds) / float64(total.TotalFocusTime) * 100
			fmt.Fprintf(&b, "| %s | %s | %.0f%% |\n", dt.Domain, tui.FormatSeconds(dt.Seconds), share)
		}
		b.WriteString("\n")
	}

	if len(days) > 1 {
		b.WriteString("## By day\n\n| Day | Focused | Breaks | Sessions |\n|---|---:|---:|---:|\n")
		for _, d := range days {
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", d.Date, tui.FormatSeconds(d.TotalFocusTime), d.BreaksTaken, d.FocusSessions)
		}
	}
	return b.String()
}

// reportWindow returns the day keys of the last days days, today included.
func reportWindow(now time.Time, days int) (string, string) {
	return clock.DayKey(now.AddDate(0, 0, -(days - 1))), clock.DayKey(now)
}
