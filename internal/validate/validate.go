// Package validate checks every cell of a dataset against a small rule set
// and reports findings as data. Validation never fails and never modifies
// its input; severities are advisory.
package validate

import (
	"math"
	"sort"
	"unicode/utf8"

	"csvpipe/internal/dataset"
)

// Severity grades a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding messages.
const (
	MsgRequired      = "Required field is empty"
	MsgInvalidNumber = "Invalid number format"
	MsgLongText      = "Unusually long text value"
	MsgEmpty         = "Empty value"
)

// Defaults used when the corresponding Validator field is zero.
const (
	DefaultMaxTextLen = 1000
	DefaultEchoLen    = 50
)

// Finding is one problem with one cell. Row is 1-based.
type Finding struct {
	Row      int          `json:"row"`
	Column   string       `json:"column"`
	Value    dataset.Cell `json:"value"`
	Message  string       `json:"message"`
	Severity Severity     `json:"severity"`
}

// Validator holds the rule knobs. The zero value applies the standard rules:
// the first column is required, numbers must not be NaN, and text longer
// than 1000 characters draws a warning.
type Validator struct {
	// RequiredColumns replaces the "first column is required" rule.
	RequiredColumns []string
	// MaxTextLen is the longest text, in characters, accepted silently.
	MaxTextLen int
	// EchoLen is how many characters of a long value are echoed back.
	EchoLen int
	// FlagEmpty reports every empty cell as an error.
	FlagEmpty bool
}

func (v Validator) maxTextLen() int {
	if v.MaxTextLen > 0 {
		return v.MaxTextLen
	}
	return DefaultMaxTextLen
}

func (v Validator) echoLen() int {
	if v.EchoLen > 0 {
		return v.EchoLen
	}
	return DefaultEchoLen
}

// required returns, per column index, whether the column is required.
func (v Validator) required(headers []string) []bool {
	out := make([]bool, len(headers))
	if len(headers) == 0 {
		return out
	}
	names := v.RequiredColumns
	if names == nil {
		names = headers[:1]
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	for i, h := range headers {
		_, out[i] = set[h]
	}
	return out
}

// Validate returns findings in row-major order.
func (v Validator) Validate(ds dataset.Dataset) []Finding {
	var (
		out      []Finding
		required = v.required(ds.Headers)
		maxLen   = v.maxTextLen()
	)
	for r, row := range ds.Rows {
		for c, cell := range row {
			if c >= len(ds.Headers) {
				break
			}
			col := ds.Headers[c]
			blank := cell.IsBlank()
			switch {
			case required[c] && blank:
				out = append(out, Finding{Row: r + 1, Column: col, Value: cell, Message: MsgRequired, Severity: SeverityError})
			case v.FlagEmpty && blank:
				out = append(out, Finding{Row: r + 1, Column: col, Value: cell, Message: MsgEmpty, Severity: SeverityError})
			}
			if n, ok := cell.AsNumber(); ok && math.IsNaN(n) {
				out = append(out, Finding{Row: r + 1, Column: col, Value: cell, Message: MsgInvalidNumber, Severity: SeverityError})
			}
			if s, ok := cell.AsText(); ok && utf8.RuneCountInString(s) > maxLen {
				out = append(out, Finding{Row: r + 1, Column: col, Value: dataset.Text(v.echo(s)), Message: MsgLongText, Severity: SeverityWarning})
			}
		}
	}
	return out
}

// echo truncates s to EchoLen characters and marks the cut.
func (v Validator) echo(s string) string {
	n := v.echoLen()
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s + "..."
}

// Report is the full validation summary.
type Report struct {
	IsValid      bool                         `json:"isValid"`
	Findings     []Finding                    `json:"errors"`
	DataTypes    map[string][]dataset.TypeTag `json:"dataTypes"`
	TotalRows    int                          `json:"totalRows"`
	TotalColumns int                          `json:"totalColumns"`
}

// Report validates ds and collects the observed type tags per column.
func (v Validator) Report(ds dataset.Dataset) Report {
	findings := v.Validate(ds)
	if findings == nil {
		findings = []Finding{}
	}
	return Report{
		IsValid:      len(findings) == 0,
		Findings:     findings,
		DataTypes:    DataTypes(ds),
		TotalRows:    ds.RowCount(),
		TotalColumns: ds.ColumnCount(),
	}
}

// DataTypes returns, per column name, the sorted set of tags stored on its
// cells. Columns without rows map to an empty set.
func DataTypes(ds dataset.Dataset) map[string][]dataset.TypeTag {
	seen := make(map[string]map[dataset.TypeTag]struct{}, len(ds.Headers))
	for _, h := range ds.Headers {
		if seen[h] == nil {
			seen[h] = map[dataset.TypeTag]struct{}{}
		}
	}
	for _, row := range ds.Rows {
		for c, cell := range row {
			if c >= len(ds.Headers) {
				break
			}
			seen[ds.Headers[c]][cell.Tag()] = struct{}{}
		}
	}
	out := make(map[string][]dataset.TypeTag, len(seen))
	for col, set := range seen {
		tags := make([]dataset.TypeTag, 0, len(set))
		for t := range set {
			tags = append(tags, t)
		}
		sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
		out[col] = tags
	}
	return out
}

// Validate runs the default Validator.
func Validate(ds dataset.Dataset) []Finding { return Validator{}.Validate(ds) }
