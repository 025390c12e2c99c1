package profile

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFieldLen is the identifier limit shared by postgres and mysql.
const MaxFieldLen = 63

// NormalizeFieldName lowercases s, strips accents and keeps [a-z0-9_].
// Separators (space, '-', '.', '_') collapse into one underscore. A name with
// nothing left becomes "col".
func NormalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	return name
}

// TruncateFieldName keeps the first 10 and last 53 bytes of names longer
// than MaxFieldLen. Input is expected to be ASCII.
func TruncateFieldName(s string) string {
	if len(s) > MaxFieldLen {
		return s[:10] + s[len(s)-53:]
	}
	return s
}

// FieldNames normalizes and truncates every header, then suffixes repeats
// with _2, _3 and so on.
func FieldNames(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		base := TruncateFieldName(NormalizeFieldName(h))
		name := base
		for n := 2; seen[name]; n++ {
			suffix := "_" + strconv.Itoa(n)
			if len(base)+len(suffix) > MaxFieldLen {
				name = base[:MaxFieldLen-len(suffix)] + suffix
			} else {
				name = base + suffix
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
