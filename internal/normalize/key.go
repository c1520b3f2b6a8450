package normalize

import (
	"regexp"
	"strings"
)

var (
	brandTokenRe = regexp.MustCompile(`\b(nvidia|amd|geforce|radeon|rtx|rx)\b`)
	wsRe         = regexp.MustCompile(`\s+`)
)

// ModelKey normalizes a GPU model string into the canonical key used for
// catalog lookups: lowercase, letter/digit boundaries split, vendor brand
// tokens removed, whitespace collapsed. Boundary splitting runs before token
// removal so concatenated spellings ("rtx5070ti") and spaced ones
// ("RTX 5070 Ti") produce the same key.
func ModelKey(raw string) string {
	if raw == "" {
		return ""
	}
	text := splitBoundaries(strings.ToLower(raw))
	text = brandTokenRe.ReplaceAllString(text, " ")
	text = wsRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// splitBoundaries inserts a space wherever a lowercase letter meets a digit
// in either direction.
func splitBoundaries(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	prev := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i > 0 && (isDigit(prev) && isLower(c) || isLower(prev) && isDigit(c)) {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
