// Package ingest reads raw wallet export files and turns them into
// normalized transaction records ready for the ledger merge.
package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases a free-text value and strips diacritics so that
// accented and unaccented variants ("Tómbola" / "tombola") compare equal.
// Empty or missing input yields "". It never fails.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
