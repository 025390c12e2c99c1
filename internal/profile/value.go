package profile

import (
	"math"
	"strings"

	"csvpipe/internal/dataset"
)

// SQLValue converts c into a database/sql driver value for a column of kind
// k. Blank cells become nil. A cell that does not fit k falls back to its
// text rendering so one odd value never aborts an export.
func SQLValue(c dataset.Cell, k Kind) any {
	if c.IsBlank() {
		return nil
	}
	switch k {
	case KindInteger:
		if f, ok := numberOf(c); ok && f == math.Trunc(f) && math.Abs(f) < maxInt64Float {
			return int64(f)
		}
	case KindReal:
		if f, ok := numberOf(c); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	case KindBoolean:
		if b, ok := c.AsBool(); ok {
			return b
		}
		s := strings.TrimSpace(c.String())
		if strings.EqualFold(s, "true") {
			return true
		}
		if strings.EqualFold(s, "false") {
			return false
		}
	case KindDate, KindTimestamp:
		if t, ok := dataset.ParseDate(c.String()); ok {
			return t
		}
	}
	return c.String()
}

// Rows converts every dataset row into driver values aligned with cols.
func Rows(ds dataset.Dataset, cols []Column) [][]any {
	out := make([][]any, 0, len(ds.Rows))
	for _, r := range ds.Rows {
		vals := make([]any, len(r))
		for i, c := range r {
			k := KindText
			if i < len(cols) {
				k = cols[i].Kind
			}
			vals[i] = SQLValue(c, k)
		}
		out = append(out, vals)
	}
	return out
}
