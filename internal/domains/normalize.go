// Package domains turns user input and browser URLs into canonical domains:
// lower-cased hostnames without scheme or leading "www.".
package domains

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/julianstephens/eyecare/internal/errors"
)

// Normalize validates user-supplied input. Failures wrap
// apperrors.ErrInvalidDomain and are meant to be shown to the user.
func Normalize(input string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(input))
	raw = strings.TrimPrefix(raw, "https://")
	raw = strings.TrimPrefix(raw, "http://")
	raw = strings.TrimPrefix(raw, "www.")

	switch {
	case raw == "":
		return "", fmt.Errorf("%w: enter a valid domain like example.com", apperrors.ErrInvalidDomain)
	case strings.ContainsAny(raw, "/ \t\r\n"):
		return "", fmt.Errorf("%w: %q contains a path or whitespace", apperrors.ErrInvalidDomain, input)
	case !strings.Contains(raw, "."):
		return "", fmt.Errorf("%w: %q is not a domain like example.com", apperrors.ErrInvalidDomain, input)
	}
	return raw, nil
}

// MustNormalizeAll normalises every entry, silently dropping invalid ones
// and duplicates while keeping first-seen order.
func MustNormalizeAll(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		d, err := Normalize(in)
		if err != nil {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// FromURL extracts the domain of a page the browser reports. It never
// fails: anything that is not an http(s) page yields "" (no domain).
func FromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// FromInput accepts either a full URL or a bare domain, as sent by the
// queue-site message. It returns "" when neither form is usable.
func FromInput(raw string) string {
	if d := FromURL(raw); d != "" {
		return d
	}
	d, err := Normalize(raw)
	if err != nil {
		return ""
	}
	return d
}
