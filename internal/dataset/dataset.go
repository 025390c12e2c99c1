// Package dataset holds the in-memory table shared by every pipeline stage:
// ordered headers, positional rows of tagged cells, and the single type
// classifier used both when cells are created and when types are reported.
//
// Stages never edit a Dataset in place. They return a new Dataset whose
// unchanged rows may share backing arrays with the input; a changed row is
// always a fresh slice, so earlier snapshots stay valid.
package dataset

import (
	"bytes"
	"encoding/json"
)

// Row is one record, positionally aligned with Dataset.Headers.
type Row []Cell

// Clone returns a copy of r that shares no memory with it.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Dataset is an ordered table. Header uniqueness is not enforced; lookups by
// name resolve to the first matching column.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// New builds a Dataset, dropping rows whose width differs from headers.
// It returns the dataset and the number of dropped rows.
func New(headers []string, rows []Row) (Dataset, int) {
	ds := Dataset{Headers: headers, Rows: make([]Row, 0, len(rows))}
	dropped := 0
	for _, r := range rows {
		if len(r) != len(headers) {
			dropped++
			continue
		}
		ds.Rows = append(ds.Rows, r)
	}
	return ds, dropped
}

// RowCount returns the number of rows.
func (d Dataset) RowCount() int { return len(d.Rows) }

// ColumnCount returns the number of headers.
func (d Dataset) ColumnCount() int { return len(d.Headers) }

// Empty reports a dataset with no headers, i.e. no usable data.
func (d Dataset) Empty() bool { return len(d.Headers) == 0 }

// Index returns the position of the first column named col, or -1.
func (d Dataset) Index(col string) int {
	for i, h := range d.Headers {
		if h == col {
			return i
		}
	}
	return -1
}

// Column returns the cells of column col in row order. Unknown columns
// return nil.
func (d Dataset) Column(col string) []Cell {
	ix := d.Index(col)
	if ix < 0 {
		return nil
	}
	out := make([]Cell, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[ix]
	}
	return out
}

// Clone returns a deep copy of d.
func (d Dataset) Clone() Dataset {
	out := Dataset{
		Headers: append([]string(nil), d.Headers...),
		Rows:    make([]Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// Equal compares headers and every cell.
func (d Dataset) Equal(o Dataset) bool {
	if len(d.Headers) != len(o.Headers) || len(d.Rows) != len(o.Rows) {
		return false
	}
	for i := range d.Headers {
		if d.Headers[i] != o.Headers[i] {
			return false
		}
	}
	for i := range d.Rows {
		if len(d.Rows[i]) != len(o.Rows[i]) {
			return false
		}
		for j := range d.Rows[i] {
			if !d.Rows[i][j].Equal(o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// Record is a row rendered as an ordered header -> value object.
type Record struct {
	keys   []string
	values []Cell
}

// Get returns the value for key and whether it exists.
func (r Record) Get(key string) (Cell, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return Cell{}, false
}

// Keys returns the keys in column order.
func (r Record) Keys() []string { return r.keys }

// MarshalJSON writes the object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Records renders every row as an ordered object keyed by header.
func (d Dataset) Records() []Record {
	out := make([]Record, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = Record{keys: d.Headers, values: r}
	}
	return out
}
