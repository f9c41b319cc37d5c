package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/eyecare/internal/models"
)

// Seam for tests.
var promptNoteFunc = func(domain, current string) (string, error) {
	text := current
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(fmt.Sprintf("Note for %s", domain)).
				Description("Leave empty to delete the note.").
				CharLimit(500).
				Value(&text),
		),
	).Run()
	return text, err
}

type NotesCmd struct {
	List   NotesListCmd   `cmd:"" help:"List notes." default:"1"`
	Set    NotesSetCmd    `cmd:"" help:"Set the note for a domain."`
	Delete NotesDeleteCmd `cmd:"" help:"Delete the note for a domain."`
}

type NotesListCmd struct{}

func (c *NotesListCmd) Run(ctx *Context) error {
	s, err := ctx.Settings(context.Background())
	if err != nil {
		return err
	}
	if len(s.Notes) == 0 {
		fmt.Fprintln(ctx.out(), "No notes.")
		return nil
	}
	keys := make([]string, 0, len(s.Notes))
	for d := range s.Notes {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	for _, d := range keys {
		fmt.Fprintf(ctx.out(), "%s: %s\n", d, s.Notes[d])
	}
	return nil
}

type NotesSetCmd struct {
	Domain string `arg:"" help:"Domain the note is about."`
	Text   string `arg:"" optional:"" help:"Note text. Prompts when omitted."`
}

func (c *NotesSetCmd) Run(ctx *Context) error {
	bg := context.Background()

	text := c.Text
	if text == "" {
		s, err := ctx.Settings(bg)
		if err != nil {
			return err
		}
		text, err = promptNoteFunc(c.Domain, s.Notes[c.Domain])
		if err != nil {
			return fmt.Errorf("note prompt failed: %w", err)
		}
	}

	_, err := ctx.UpdateSettings(bg, func(s *models.Settings) error {
		return s.SetNote(c.Domain, text)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Note saved for %s\n", c.Domain)
	return nil
}

type NotesDeleteCmd struct {
	Domain string `arg:"" help:"Domain whose note to delete."`
}

func (c *NotesDeleteCmd) Run(ctx *Context) error {
	_, err := ctx.UpdateSettings(context.Background(), func(s *models.Settings) error {
		s.DeleteNote(c.Domain)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out(), "✓ Note deleted for %s\n", c.Domain)
	return nil
}
