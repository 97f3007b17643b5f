// Package handle normalizes and extracts social-media handles from the
// free-form input the app receives: typed recipients, share-intent text,
// and profile or post URLs.
package handle

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxLength is the longest handle the on-chain program accepts.
const MaxLength = 30

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Hosts that serve profile pages we can extract a handle from.
var profileHosts = map[string]bool{
	"twitter.com":        true,
	"www.twitter.com":    true,
	"x.com":              true,
	"www.x.com":          true,
	"mobile.twitter.com": true,
	"mobile.x.com":       true,
}

// Path segments that are site chrome rather than usernames.
var excludedPaths = map[string]bool{
	"home":          true,
	"explore":       true,
	"notifications": true,
	"messages":      true,
	"i":             true,
	"settings":      true,
	"search":        true,
}

// Normalize ensures a handle carries exactly one leading "@".
func Normalize(s string) string {
	return "@" + strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// Valid reports whether the bare handle (no "@") is acceptable to the
// linking program: at most 30 characters of [A-Za-z0-9_].
func Valid(h string) bool {
	h = strings.TrimPrefix(h, "@")
	return len(h) > 0 && len(h) <= MaxLength && handlePattern.MatchString(h)
}

// Extract pulls a normalized "@handle" out of free-form input. It accepts
// direct handles ("@user" or "user"), profile URLs, and post URLs on
// twitter.com/x.com hosts. Returns false when no handle can be found.
func Extract(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	// Direct @handle, possibly followed by trailing text.
	if strings.HasPrefix(trimmed, "@") {
		h := splitFirst(trimmed)
		if len(h) > 1 {
			return h, true
		}
		return "", false
	}

	if u, err := url.Parse(trimmed); err == nil && profileHosts[u.Hostname()] {
		// Paths look like /username or /username/status/123456.
		parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
		if len(parts) > 0 && !excludedPaths[strings.ToLower(parts[0])] {
			return "@" + parts[0], true
		}
		return "", false
	}

	// A bare username.
	if handlePattern.MatchString(trimmed) {
		return "@" + trimmed, true
	}

	return "", false
}

// ExtractFromShareIntent extracts a handle from share-intent data,
// preferring the shared URL over the free text since Twitter shares put
// the canonical profile link there.
func ExtractFromShareIntent(text, webURL string) (string, bool) {
	if webURL != "" {
		if h, ok := Extract(webURL); ok {
			return h, true
		}
	}
	if text != "" {
		if h, ok := Extract(text); ok {
			return h, true
		}
	}
	return "", false
}

// splitFirst returns the input up to the first space or slash.
func splitFirst(s string) string {
	if i := strings.IndexAny(s, " \t/"); i >= 0 {
		return s[:i]
	}
	return s
}
