// Package normalizer cleans extracted document text into canonical Tamil text.
package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	tamilFirst = '\u0B80'
	tamilLast  = '\u0BFF'
)

var (
	// Collapsing whitespace already removes newlines; the blank-line rule is
	// kept so the output shape does not depend on that ordering.
	blankLinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)

	allowedPunct = map[rune]struct{}{
		'.': {}, ',': {}, '?': {}, '!': {}, '%': {}, '$': {}, '-': {},
		'(': {}, ')': {}, '[': {}, ']': {}, ':': {}, ';': {}, '\'': {}, '"': {},
	}
)

// Normalize replaces every disallowed character with a space, collapses
// whitespace and trims the result. It never fails and is idempotent.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return ' '
	}, raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = blankLinesRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

func allowed(r rune) bool {
	if IsTamil(r) || unicode.IsSpace(r) || unicode.Is(unicode.Nd, r) {
		return true
	}
	_, ok := allowedPunct[r]
	return ok
}

// IsTamil reports whether r lies in the Tamil Unicode block.
func IsTamil(r rune) bool { return r >= tamilFirst && r <= tamilLast }

// ContainsTamil reports whether s has at least one Tamil character.
func ContainsTamil(s string) bool {
	return strings.IndexFunc(s, IsTamil) >= 0
}

// TamilRuneCount counts the Tamil characters in s.
func TamilRuneCount(s string) int {
	n := 0
	for _, r := range s {
		if IsTamil(r) {
			n++
		}
	}
	return n
}
