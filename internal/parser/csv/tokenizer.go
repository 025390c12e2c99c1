package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// tokenizeStrict splits text into quote-aware records. It returns the records
// and the number of records that could not be read.
func (p *Parser) tokenizeStrict(text string) ([][]string, int) {
	if p.opt.QuoteChar == '"' && p.opt.EscapeChar == '"' {
		return p.readStdlib(text)
	}
	return p.readQuoted(text)
}

// readStdlib delegates the standard doubled-quote dialect to encoding/csv.
// encoding/csv always skips blank lines, so KeepEmptyLines has no effect here.
func (p *Parser) readStdlib(text string) ([][]string, int) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = p.opt.Delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var (
		out [][]string
		bad int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				bad++
				continue
			}
			// invalid delimiter or similar; nothing more can be read
			bad++
			break
		}
		out = append(out, rec)
	}
	return out, bad
}

// readQuoted is a small state machine for quote/escape pairs encoding/csv
// cannot express. Quotes are only special at the start of a field; a quote
// found mid-field is kept literally. A quoted field left open at end of
// input makes its record unreadable.
func (p *Parser) readQuoted(text string) ([][]string, int) {
	var (
		delim  = p.opt.Delimiter
		quote  = p.opt.QuoteChar
		escape = p.opt.EscapeChar

		out    [][]string
		rec    []string
		field  strings.Builder
		quoted bool // inside a quoted section
		fresh  = true
		// wasQuoted marks a field that started with a quote, so an empty
		// quoted field on its own line is not taken for a blank line.
		wasQuoted bool
	)

	rs := []rune(text)
	endRecord := func() {
		rec = append(rec, field.String())
		field.Reset()
		blank := len(rec) == 1 && rec[0] == "" && !wasQuoted
		if !blank || p.opt.KeepEmptyLines {
			out = append(out, rec)
		}
		rec = nil
		fresh = true
		wasQuoted = false
	}

	for i := 0; i < len(rs); i++ {
		c := rs[i]
		if quoted {
			switch {
			case c == escape && escape != quote && i+1 < len(rs) && (rs[i+1] == quote || rs[i+1] == escape):
				field.WriteRune(rs[i+1])
				i++
			case c == quote && escape == quote && i+1 < len(rs) && rs[i+1] == quote:
				field.WriteRune(quote)
				i++
			case c == quote:
				quoted = false
			default:
				field.WriteRune(c)
			}
			continue
		}
		switch {
		case c == quote && fresh:
			quoted = true
			wasQuoted = true
			fresh = false
		case c == delim:
			rec = append(rec, field.String())
			field.Reset()
			fresh = true
		case c == '\r' && i+1 < len(rs) && rs[i+1] == '\n':
			// folded into the following '\n'
		case c == '\n':
			endRecord()
		default:
			field.WriteRune(c)
			fresh = false
		}
	}

	if quoted {
		return out, 1
	}
	if len(rec) > 0 || field.Len() > 0 || wasQuoted {
		endRecord()
	}
	return out, 0
}
