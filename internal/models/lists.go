package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/julianstephens/eyecare/internal/domains"
	apperrors "github.com/julianstephens/eyecare/internal/errors"
)

// List names accepted by the list mutations
const (
	ListBlock = "blocklist"
	ListAllow = "allowlist"
)

// ListsExport is the portable snapshot of lists and notes.
type ListsExport struct {
	Blocklist []string          `json:"blocklist"`
	Allowlist []string          `json:"allowlist"`
	Notes     map[string]string `json:"notes"`
}

// ImportSummary reports what an import added.
type ImportSummary struct {
	Blocked int
	Allowed int
	Notes   int
}

// AddToBlocklist normalises input, adds it to the blocklist and removes it
// from the allowlist. It returns the normalised domain.
func (s *Settings) AddToBlocklist(input string) (string, error) {
	d, err := domains.Normalize(input)
	if err != nil {
		return "", err
	}
	s.Blocklist = appendUnique(s.Blocklist, d)
	s.Allowlist = without(s.Allowlist, d)
	return d, nil
}

// AddToAllowlist normalises input, adds it to the allowlist and removes it
// from the blocklist. It returns the normalised domain.
func (s *Settings) AddToAllowlist(input string) (string, error) {
	d, err := domains.Normalize(input)
	if err != nil {
		return "", err
	}
	s.Allowlist = appendUnique(s.Allowlist, d)
	s.Blocklist = without(s.Blocklist, d)
	return d, nil
}

// AddToActiveList adds to the list matching the current mode.
func (s *Settings) AddToActiveList(input string) (string, error) {
	if s.UseAllowlistMode {
		return s.AddToAllowlist(input)
	}
	return s.AddToBlocklist(input)
}

// RemoveFromBlocklist removes domain from the blocklist. Removing an absent
// domain is not an error.
func (s *Settings) RemoveFromBlocklist(domain string) {
	s.Blocklist = without(s.Blocklist, canonical(domain))
}

// RemoveFromAllowlist removes domain from the allowlist.
func (s *Settings) RemoveFromAllowlist(domain string) {
	s.Allowlist = without(s.Allowlist, canonical(domain))
}

// MoveBetweenLists moves domain out of the named list into the other one.
func (s *Settings) MoveBetweenLists(domain, from string) error {
	d := canonical(domain)
	switch from {
	case ListBlock:
		if !slices.Contains(s.Blocklist, d) {
			return fmt.Errorf("%s is not in the blocklist: %w", d, apperrors.ErrNotFound)
		}
		s.Blocklist = without(s.Blocklist, d)
		s.Allowlist = appendUnique(s.Allowlist, d)
	case ListAllow:
		if !slices.Contains(s.Allowlist, d) {
			return fmt.Errorf("%s is not in the allowlist: %w", d, apperrors.ErrNotFound)
		}
		s.Allowlist = without(s.Allowlist, d)
		s.Blocklist = appendUnique(s.Blocklist, d)
	default:
		return fmt.Errorf("unknown list %q, expected %s or %s", from, ListBlock, ListAllow)
	}
	return nil
}

// EditListEntry replaces oldDomain with the normalised replacement in place.
// A note attached to the old domain follows it.
func (s *Settings) EditListEntry(list, oldDomain, replacement string) (string, error) {
	d, err := domains.Normalize(replacement)
	if err != nil {
		return "", err
	}
	old := canonical(oldDomain)

	var target, other *[]string
	switch list {
	case ListBlock:
		target, other = &s.Blocklist, &s.Allowlist
	case ListAllow:
		target, other = &s.Allowlist, &s.Blocklist
	default:
		return "", fmt.Errorf("unknown list %q, expected %s or %s", list, ListBlock, ListAllow)
	}

	idx := slices.Index(*target, old)
	if idx < 0 {
		return "", fmt.Errorf("%s is not in the %s: %w", old, list, apperrors.ErrNotFound)
	}
	if old == d {
		return d, nil
	}
	(*target)[idx] = d
	*target = dedupe(*target)
	*other = without(*other, d)

	if note, ok := s.Notes[old]; ok {
		delete(s.Notes, old)
		if _, exists := s.Notes[d]; !exists {
			s.Notes[d] = note
		}
	}
	return d, nil
}

// SetNote stores a trimmed note for domain. Empty text deletes the note.
func (s *Settings) SetNote(domain, text string) error {
	d, err := domains.Normalize(domain)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.DeleteNote(d)
		return nil
	}
	if s.Notes == nil {
		s.Notes = map[string]string{}
	}
	s.Notes[d] = text
	return nil
}

// DeleteNote removes the note for domain. Missing notes are a no-op.
func (s *Settings) DeleteNote(domain string) {
	if s.Notes == nil {
		return
	}
	delete(s.Notes, canonical(domain))
}

// Export returns the lists and notes snapshot.
func (s Settings) Export() ListsExport {
	c := s.Clone()
	out := ListsExport{Blocklist: nonNil(c.Blocklist), Allowlist: nonNil(c.Allowlist), Notes: c.Notes}
	if out.Notes == nil {
		out.Notes = map[string]string{}
	}
	return out
}

// Import merges raw into the settings. raw is either a JSON ListsExport or
// newline-separated domains that go to the active list. Lists are unioned,
// notes overlay existing ones, and every domain is re-normalised.
func (s *Settings) Import(raw string) (ImportSummary, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ImportSummary{}, apperrors.ErrNothingToImport
	}

	var payload ListsExport
	if err := json.Unmarshal([]byte(raw), &payload); err == nil {
		return s.importPayload(payload), nil
	}

	var summary ImportSummary
	targets := domains.MustNormalizeAll(strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n"))
	if len(targets) == 0 {
		return summary, apperrors.ErrNothingToImport
	}
	for _, d := range targets {
		if _, err := s.AddToActiveList(d); err != nil {
			continue
		}
		if s.UseAllowlistMode {
			summary.Allowed++
		} else {
			summary.Blocked++
		}
	}
	return summary, nil
}

func (s *Settings) importPayload(payload ListsExport) ImportSummary {
	var summary ImportSummary
	for _, d := range domains.MustNormalizeAll(payload.Blocklist) {
		s.Blocklist = appendUnique(s.Blocklist, d)
		s.Allowlist = without(s.Allowlist, d)
		summary.Blocked++
	}
	for _, d := range domains.MustNormalizeAll(payload.Allowlist) {
		s.Allowlist = appendUnique(s.Allowlist, d)
		s.Blocklist = without(s.Blocklist, d)
		summary.Allowed++
	}
	for domain, text := range payload.Notes {
		if err := s.SetNote(domain, text); err == nil && strings.TrimSpace(text) != "" {
			summary.Notes++
		}
	}
	return summary
}

// canonical normalises domain when possible and otherwise falls back to the
// trimmed, lower-cased input so stray entries can still be removed.
func canonical(domain string) string {
	if d, err := domains.Normalize(domain); err == nil {
		return d
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

func appendUnique(list []string, d string) []string {
	if slices.Contains(list, d) {
		return list
	}
	return append(list, d)
}

func without(list []string, d string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != d {
			out = append(out, item)
		}
	}
	return out
}

func dedupe(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = appendUnique(out, item)
	}
	return out
}
