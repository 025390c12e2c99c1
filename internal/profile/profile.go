// Package profile infers a storage-oriented column kind for every column of a
// Dataset and derives SQL-safe field names, so a dataset can be exported to a
// relational sink without a hand-written table definition.
package profile

import (
	"math"
	"strconv"
	"strings"

	"csvpipe/internal/dataset"
	"csvpipe/internal/ddl"
)

// Kind is the inferred storage kind of a column.
type Kind string

const (
	KindInteger   Kind = "integer"
	KindReal      Kind = "real"
	KindBoolean   Kind = "boolean"
	KindDate      Kind = "date"
	KindTimestamp Kind = "timestamp"
	KindText      Kind = "text"
)

// Column is the profile of one dataset column.
type Column struct {
	Name     string `json:"name"`
	Field    string `json:"field"`
	Kind     Kind   `json:"kind"`
	Nullable bool   `json:"nullable"`
	NonBlank int    `json:"nonBlank"`
}

// Profile inspects every column of ds by position, so repeated header names
// are profiled separately. Field names are normalized and made unique.
func Profile(ds dataset.Dataset) []Column {
	fields := FieldNames(ds.Headers)
	out := make([]Column, len(ds.Headers))
	for i, h := range ds.Headers {
		cells := make([]dataset.Cell, len(ds.Rows))
		for r, row := range ds.Rows {
			cells[r] = row[i]
		}
		nonBlank := 0
		for _, c := range cells {
			if !c.IsBlank() {
				nonBlank++
			}
		}
		out[i] = Column{
			Name:     h,
			Field:    fields[i],
			Kind:     inferKind(cells),
			Nullable: nonBlank < len(cells) || len(cells) == 0,
			NonBlank: nonBlank,
		}
	}
	return out
}

// inferKind picks the narrowest kind every non-blank cell fits, in the order
// integer, boolean, real, date/timestamp, text. An all-blank column is text.
func inferKind(cells []dataset.Cell) Kind {
	vals := make([]dataset.Cell, 0, len(cells))
	for _, c := range cells {
		if !c.IsBlank() {
			vals = append(vals, c)
		}
	}
	if len(vals) == 0 {
		return KindText
	}
	if allMatch(vals, isInt) {
		return KindInteger
	}
	if allMatch(vals, isBool) {
		return KindBoolean
	}
	if allMatch(vals, isReal) {
		return KindReal
	}

	anyTime := false
	for _, c := range vals {
		if c.Tag() != dataset.TagDate {
			return KindText
		}
		_, hasTime, ok := dataset.ParseDateTime(c.String())
		if !ok {
			return KindText
		}
		anyTime = anyTime || hasTime
	}
	if anyTime {
		return KindTimestamp
	}
	return KindDate
}

func allMatch(vals []dataset.Cell, fn func(dataset.Cell) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

// maxInt64Float is the first float64 beyond the int64 range.
const maxInt64Float = 1 << 63

func isInt(c dataset.Cell) bool {
	if c.Tag() != dataset.TagInteger {
		return false
	}
	f, ok := numberOf(c)
	return ok && math.Abs(f) < maxInt64Float
}

func isReal(c dataset.Cell) bool {
	if c.Tag() != dataset.TagInteger && c.Tag() != dataset.TagFloat {
		return false
	}
	f, ok := numberOf(c)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isBool(c dataset.Cell) bool { return c.Tag() == dataset.TagBoolean }

func numberOf(c dataset.Cell) (float64, bool) {
	if n, ok := c.AsNumber(); ok {
		return n, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.String()), 64)
	return f, err == nil
}

// TableDef builds a DDL model for cols under fqn, typed for d.
func TableDef(cols []Column, fqn string, d ddl.Dialect) ddl.TableDef {
	t := ddl.TableDef{FQN: fqn, Columns: make([]ddl.ColumnDef, 0, len(cols))}
	for _, c := range cols {
		t.Columns = append(t.Columns, ddl.ColumnDef{
			Name:     c.Field,
			SQLType:  ddl.MapType(d, string(c.Kind)),
			Nullable: c.Nullable,
		})
	}
	return t
}
