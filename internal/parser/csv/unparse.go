package csv

import (
	"strings"
	"unicode"

	"csvpipe/internal/dataset"
)

// UnparseOptions configures serialization. Zero fields fall back to the
// parser defaults; Newline defaults to "\r\n".
type UnparseOptions struct {
	Delimiter  rune
	HasHeaders bool
	QuoteChar  rune
	EscapeChar rune
	Newline    string
}

// DefaultUnparseOptions writes a header line with comma delimiters.
func DefaultUnparseOptions() UnparseOptions {
	return UnparseOptions{Delimiter: ',', HasHeaders: true, QuoteChar: '"', EscapeChar: '"', Newline: "\r\n"}
}

// Unparse renders ds as delimited text. Null cells become empty fields,
// booleans render as true/false and numbers in shortest round-trip form. A
// field is quoted when it contains the delimiter, the quote character, a
// line break, or leading/trailing whitespace. Records are separated by
// Newline with no trailing terminator.
//
// The output reads back to an equal dataset with a strict Parser using the
// same delimiter and quote characters.
func Unparse(ds dataset.Dataset, opt UnparseOptions) string {
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	if opt.QuoteChar == 0 {
		opt.QuoteChar = '"'
	}
	if opt.EscapeChar == 0 {
		opt.EscapeChar = opt.QuoteChar
	}
	if opt.Newline == "" {
		opt.Newline = "\r\n"
	}

	var sb strings.Builder
	first := true
	writeLine := func(fields []string) {
		if !first {
			sb.WriteString(opt.Newline)
		}
		first = false
		// a lone empty field would read back as a blank line
		if len(fields) == 1 && fields[0] == "" {
			sb.WriteRune(opt.QuoteChar)
			sb.WriteRune(opt.QuoteChar)
			return
		}
		for i, f := range fields {
			if i > 0 {
				sb.WriteRune(opt.Delimiter)
			}
			sb.WriteString(quoteField(f, opt))
		}
	}

	if opt.HasHeaders {
		writeLine(ds.Headers)
	}
	fields := make([]string, len(ds.Headers))
	for _, row := range ds.Rows {
		fields = fields[:0]
		for _, c := range row {
			fields = append(fields, c.String())
		}
		writeLine(fields)
	}
	return sb.String()
}

func quoteField(f string, opt UnparseOptions) string {
	if !needsQuote(f, opt) {
		return f
	}
	var sb strings.Builder
	sb.Grow(len(f) + 2)
	sb.WriteRune(opt.QuoteChar)
	for _, r := range f {
		if r == opt.QuoteChar || (r == opt.EscapeChar && opt.EscapeChar != opt.QuoteChar) {
			sb.WriteRune(opt.EscapeChar)
		}
		sb.WriteRune(r)
	}
	sb.WriteRune(opt.QuoteChar)
	return sb.String()
}

func needsQuote(f string, opt UnparseOptions) bool {
	if f == "" {
		return false
	}
	if strings.ContainsRune(f, opt.Delimiter) || strings.ContainsRune(f, opt.QuoteChar) ||
		strings.ContainsAny(f, "\r\n") {
		return true
	}
	if opt.EscapeChar != opt.QuoteChar && strings.ContainsRune(f, opt.EscapeChar) {
		return true
	}
	rs := []rune(f)
	return unicode.IsSpace(rs[0]) || unicode.IsSpace(rs[len(rs)-1])
}
