package builtin

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CaseMode selects a case mapping.
type CaseMode uint8

const (
	CaseNone CaseMode = iota
	CaseUpper
	CaseLower
	CaseCapitalize
)

// ApplyCase maps s with full Unicode case rules ("ß" upper-cases to "SS").
// Capitalize upper-cases the first rune and lower-cases the rest.
func ApplyCase(s string, mode CaseMode) (string, bool) {
	switch mode {
	case CaseUpper:
		return cases.Upper(language.Und).String(s), true
	case CaseLower:
		return cases.Lower(language.Und).String(s), true
	case CaseCapitalize:
		if s == "" {
			return s, true
		}
		r, size := utf8.DecodeRuneInString(s)
		head := cases.Upper(language.Und).String(string(r))
		return head + cases.Lower(language.Und).String(s[size:]), true
	default:
		return s, false
	}
}

// Trim strips leading and trailing whitespace, including the byte order mark.
func Trim(s string) string {
	return strings.TrimFunc(s, isTrimSpace)
}

func isTrimSpace(r rune) bool { return unicode.IsSpace(r) || r == '\uFEFF' }

// Split splits s on delim and returns the trimmed token at keep. ok is false
// when delim is empty, keep is out of range, or the token is empty before
// trimming.
func Split(s, delim string, keep int) (string, bool) {
	if delim == "" || keep < 0 {
		return s, false
	}
	parts := strings.Split(s, delim)
	if keep >= len(parts) || parts[keep] == "" {
		return s, false
	}
	return Trim(parts[keep]), true
}
