// Package sighting composes sighting submissions: the flat outbound payload
// built from form state, contextual tokens, and resolved credentials, and the
// platform entity document delivered upstream.
package sighting

import "strings"

// Form holds the user-entered sighting fields. The collecting layer owns
// mutation; this package only reads it.
type Form struct {
	Value           string
	Description     string
	Title           string
	Tags            string
	Type            string
	ConfidenceLevel string
}

// ContextTokens are the optional environment-supplied strings attached to a
// submission. Each is independently present or absent.
type ContextTokens struct {
	Index      string
	Host       string
	Source     string
	Sourcetype string
	Time       string
	Field      string
}

// tokenValue normalizes a context token. A token is absent when it is unset
// or still carries the calling environment's unexpanded `$name$` form.
func tokenValue(v string) string {
	if v == "" {
		return ""
	}
	if strings.HasPrefix(v, "$") && strings.HasSuffix(v, "$") {
		return ""
	}
	return v
}
