// Package csv parses delimited text of unknown shape into a dataset.Dataset
// and serializes datasets back to delimited text.
//
// Two tokenizers are available. Lenient mode (the default) splits on line
// boundaries and the delimiter, trims every token and strips quote
// characters; it never looks at quoting structure. Strict mode honors quoting,
// so delimiters and newlines may appear inside quoted fields. In both modes a
// record whose width differs from the header is dropped and counted, never
// reported as an error.
package csv

import (
	"fmt"
	"io"
	"strings"

	"csvpipe/internal/dataset"
)

// Mode selects the tokenizer.
type Mode string

const (
	ModeLenient Mode = "lenient"
	ModeStrict  Mode = "strict"
)

// Options configures the parser. Zero fields fall back to defaults; use
// DefaultOptions for the usual header-first configuration.
type Options struct {
	// Delimiter separates fields. When zero, ',' is used.
	Delimiter rune

	// HasHeaders indicates the first record holds column names. When false,
	// names are synthesized as "Column 1".."Column N" from the first
	// record's width and that record is kept as data.
	HasHeaders bool

	// QuoteChar opens and closes quoted fields. When zero, '"' is used.
	QuoteChar rune

	// EscapeChar escapes QuoteChar inside a quoted field. When zero it
	// equals QuoteChar, i.e. quotes are escaped by doubling.
	EscapeChar rune

	// KeepEmptyLines keeps whitespace-only lines as records. By default
	// they are discarded before tokenizing.
	KeepEmptyLines bool

	// Mode selects the tokenizer. Empty means ModeLenient.
	Mode Mode
}

// DefaultOptions returns comma-delimited, header-first, lenient options.
func DefaultOptions() Options {
	return Options{Delimiter: ',', HasHeaders: true, QuoteChar: '"', EscapeChar: '"', Mode: ModeLenient}
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.QuoteChar == 0 {
		o.QuoteChar = '"'
	}
	if o.EscapeChar == 0 {
		o.EscapeChar = o.QuoteChar
	}
	if o.Mode == "" {
		o.Mode = ModeLenient
	}
	return o
}

// ParseMode validates a mode name. The empty string maps to ModeLenient.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown parse mode %q", s)
	}
}

// Parser parses delimited text according to Options. It holds no state
// between calls and is safe for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt.withDefaults()} }

// Options returns the effective options after defaults were applied.
func (p *Parser) Options() Options { return p.opt }

// Parse reads all of r (decoding a UTF-8 or UTF-16 byte order mark) and
// parses it. It returns the dataset and the number of dropped records. The
// error is non-nil only when r itself fails.
func (p *Parser) Parse(r io.Reader) (dataset.Dataset, int, error) {
	b, err := io.ReadAll(NewDecodingReader(r))
	if err != nil {
		return dataset.Dataset{}, 0, fmt.Errorf("read input: %w", err)
	}
	ds, dropped := p.ParseString(string(b))
	return ds, dropped, nil
}

// ParseString parses text and returns the dataset and the number of records
// dropped for having the wrong width (or, in strict mode, for being
// unreadable). A result with no headers means the input held no usable data.
func (p *Parser) ParseString(text string) (dataset.Dataset, int) {
	text = StripBOM(text)

	var (
		records [][]string
		bad     int
	)
	if p.opt.Mode == ModeStrict {
		records, bad = p.tokenizeStrict(text)
	} else {
		records = p.tokenizeLenient(text)
	}
	if len(records) == 0 {
		return dataset.Dataset{}, bad
	}

	var headers []string
	body := records
	if p.opt.HasHeaders {
		headers = records[0]
		body = records[1:]
	} else {
		headers = SyntheticHeaders(len(records[0]))
	}

	rows := make([]dataset.Row, 0, len(body))
	for _, rec := range body {
		row := make(dataset.Row, len(rec))
		for i, tok := range rec {
			row[i] = dataset.FromRaw(tok)
		}
		rows = append(rows, row)
	}
	ds, dropped := dataset.New(headers, rows)
	return ds, dropped + bad
}

// SyntheticHeaders returns "Column 1".."Column n".
func SyntheticHeaders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Column %d", i+1)
	}
	return out
}

// tokenizeLenient splits on "\n" (tolerating "\r\n"), then on the delimiter,
// trimming each token and removing every quote character. Headers and data
// go through the same cleanup.
func (p *Parser) tokenizeLenient(text string) [][]string {
	delim := string(p.opt.Delimiter)
	quote := string(p.opt.QuoteChar)

	lines := strings.Split(text, "\n")
	out := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if !p.opt.KeepEmptyLines && strings.TrimSpace(line) == "" {
			continue
		}
		toks := strings.Split(line, delim)
		for i, t := range toks {
			toks[i] = strings.ReplaceAll(strings.TrimSpace(t), quote, "")
		}
		out = append(out, toks)
	}
	// a trailing newline is a terminator, not an extra record
	if p.opt.KeepEmptyLines && len(out) > 0 && strings.HasSuffix(text, "\n") {
		last := out[len(out)-1]
		if len(last) == 1 && last[0] == "" {
			out = out[:len(out)-1]
		}
	}
	return out
}
