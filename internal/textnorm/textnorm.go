// Package textnorm provides the case- and diacritic-insensitive folding
// used for CSV header alias resolution and archive role matching.
//
// Brazilian invoice exports drift between accented and accent-free
// headers ("DATA EMISSÃO" vs "DATA EMISSAO"), between cases, and between
// space and underscore separators. Fold collapses all of those so that
// alias lists stay short.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns a canonical comparison form: lowercase, diacritics
// removed, edge whitespace trimmed, inner runs of spaces/underscores
// collapsed to a single space.
func Fold(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fold what we got.
		out = s
	}
	out = strings.ToLower(out)

	var b strings.Builder
	b.Grow(len(out))
	space := false
	for _, r := range out {
		if r == ' ' || r == '\t' || r == '_' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// EqualFold reports whether a and b are equal under Fold.
func EqualFold(a, b string) bool { return Fold(a) == Fold(b) }

// ContainsFold reports whether s contains substr under Fold.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
