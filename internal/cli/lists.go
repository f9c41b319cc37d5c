package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/eyecare/internal/models"
)

type BlockCmd struct {
	Domain string `arg:"" help:"Domain or URL to block."`
}

func (c *BlockCmd) Run(ctx *Context) error {
	var added string
	_, err := ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		d, err := s.AddToBlocklist(c.Domain)
		added = d
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Blocked %s\n", added)
	return nil
}

type AllowCmd struct {
	Domain string `arg:"" help:"Domain or URL to allow."`
}

func (c *AllowCmd) Run(ctx *Context) error {
	var added string
	_, err := ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		d, err := s.AddToAllowlist(c.Domain)
		added = d
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Allowed %s\n", added)
	return nil
}

type RemoveCmd struct {
	List   string `arg:"" enum:"blocklist,allowlist" help:"List to remove from (blocklist or allowlist)."`
	Domain string `arg:"" help:"Domain to remove."`
}

func (c *RemoveCmd) Run(ctx *Context) error {
	_, err := ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		if c.List == models.ListAllow {
			s.RemoveFromAllowlist(c.Domain)
		} else {
			s.RemoveFromBlocklist(c.Domain)
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Removed %s from the %s\n", c.Domain, c.List)
	return nil
}

type MoveCmd struct {
	From   string `arg:"" enum:"blocklist,allowlist" help:"List the domain is on now."`
	Domain string `arg:"" help:"Domain to move to the other list."`
}

func (c *MoveCmd) Run(ctx *Context) error {
	_, err := ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		return s.MoveBetweenLists(c.Domain, c.From)
	})
	if err != nil {
		return err
	}
	to := models.ListAllow
	if c.From == models.ListAllow {
		to = models.ListBlock
	}
	fmt.Fprintf(ctx.out(), "✓ Moved %s to the %s\n", c.Domain, to)
	return nil
}

type EditCmd struct {
	List        string `arg:"" enum:"blocklist,allowlist" help:"List holding the entry."`
	Domain      string `arg:"" help:"Entry to replace."`
	Replacement string `arg:"" help:"New domain or URL."`
}

func (c *EditCmd) Run(ctx *Context) error {
	var updated string
	_, err := ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		d, err := s.EditListEntry(c.List, c.Domain, c.Replacement)
		updated = d
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Replaced %s with %s\n", c.Domain, updated)
	return nil
}

type ListsCmd struct {
	Show   ListsShowCmd   `cmd:"" help:"Show both lists." default:"1"`
	Export ListsExportCmd `cmd:"" help:"Export lists and notes as JSON."`
	Import ListsImportCmd `cmd:"" help:"Import lists and notes from JSON or newline-separated domains."`
}

type ListsShowCmd struct{}

func (c *ListsShowCmd) Run(ctx *Context) error {
	s, err := ctx.Settings(context.Background())
	if err != nil {
		return err
	}
	w := ctx.out()
	fmt.Fprintf(w, "Blocking mode: %s\n", s.ActiveListName())
	printList(w, "Blocklist", s.Blocklist, s.Notes)
	printList(w, "Allowlist", s.Allowlist, s.Notes)
	return nil
}

func printList(w io.Writer, title string, list []string, notes map[string]string) {
	fmt.Fprintf(w, "\n%s (%d):\n", title, len(list))
	if len(list) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, d := range list {
		if note := notes[d]; note != "" {
			fmt.Fprintf(w, "  - %s  # %s\n", d, note)
		} else {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	}
}

type ListsExportCmd struct {
	Output string `short:"o" help:"Write to a file instead of stdout." type:"path"`
}

func (c *ListsExportCmd) Run(ctx *Context) error {
	s, err := ctx.Settings(context.Background())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lists: %w", err)
	}
	data = append(data, '\n')

	if c.Output == "" {
		_, err := ctx.out().Write(data)
		return err
	}
	if err := os.WriteFile(c.Output, data, 0600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(ctx.out(), "✓ Exported lists to %s\n", c.Output)
	return nil
}

type ListsImportCmd struct {
	File string `arg:"" help:"File to import, or - for stdin."`
}

// Seam for tests.
var stdin io.Reader = os.Stdin

func (c *ListsImportCmd) Run(ctx *Context) error {
	var (
		raw []byte
		err error
	)
	if c.File == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(c.File)
	}
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}

	var summary models.ImportSummary
	_, err = ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		got, err := s.Import(string(raw))
		summary = got
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Imported %d blocked, %d allowed, %d notes\n", summary.Blocked, summary.Allowed, summary.Notes)
	return nil
}
