// Package query implements the projection, filter and sort stage.
//
// Stages run in a fixed order: projection, filter, distinct, sort. Unknown
// column names are ignored rather than reported, and the input dataset is
// never modified.
package query

import (
	"sort"
	"strings"

	"csvpipe/internal/dataset"
)

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Options selects the query. Zero values disable the matching stage.
type Options struct {
	// SelectedColumns keeps only these columns, in this order.
	SelectedColumns []string `json:"selectedColumns,omitempty"`
	// FilterText keeps rows where any cell contains it, case-insensitively.
	FilterText string `json:"filterQuery,omitempty"`
	// Distinct drops rows identical to an earlier row.
	Distinct bool `json:"distinct,omitempty"`
	// SortColumn orders rows by this column's raw values.
	SortColumn    string    `json:"sortColumn,omitempty"`
	SortDirection Direction `json:"sortDirection,omitempty"`
}

// Run applies o to ds.
func Run(ds dataset.Dataset, o Options) dataset.Dataset {
	out := ds
	if len(o.SelectedColumns) > 0 {
		out = Project(out, o.SelectedColumns)
	}
	if strings.TrimSpace(o.FilterText) != "" {
		out = Filter(out, o.FilterText)
	}
	if o.Distinct {
		out = Distinct(out)
	}
	if o.SortColumn != "" {
		out = Sort(out, o.SortColumn, o.SortDirection)
	}
	return out
}

// Project keeps the named columns in the given order. Unknown names are
// omitted; the row count never changes.
func Project(ds dataset.Dataset, columns []string) dataset.Dataset {
	idx := make([]int, 0, len(columns))
	headers := make([]string, 0, len(columns))
	for _, c := range columns {
		if i := ds.Index(c); i >= 0 {
			idx = append(idx, i)
			headers = append(headers, c)
		}
	}
	rows := make([]dataset.Row, len(ds.Rows))
	for r, row := range ds.Rows {
		nr := make(dataset.Row, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		rows[r] = nr
	}
	return dataset.Dataset{Headers: headers, Rows: rows}
}

// Filter keeps rows in which some cell's string form contains text, ignoring
// case. Null cells render as the empty string, so searching for "null" does
// not match a missing value; the JSON payloads show the same cell as null.
func Filter(ds dataset.Dataset, text string) dataset.Dataset {
	needle := strings.ToLower(text)
	rows := make([]dataset.Row, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		for _, c := range row {
			if strings.Contains(strings.ToLower(c.String()), needle) {
				rows = append(rows, row)
				break
			}
		}
	}
	return dataset.Dataset{Headers: ds.Headers, Rows: rows}
}

// Distinct drops every row whose content equals an earlier row. Rows are
// bucketed by xxh3 hash and compared cell by cell within a bucket.
func Distinct(ds dataset.Dataset) dataset.Dataset {
	buckets := make(map[uint64][]dataset.Row, len(ds.Rows))
	rows := make([]dataset.Row, 0, len(ds.Rows))
next:
	for _, row := range ds.Rows {
		h := dataset.RowHash(row)
		for _, prev := range buckets[h] {
			if rowsEqual(prev, row) {
				continue next
			}
		}
		buckets[h] = append(buckets[h], row)
		rows = append(rows, row)
	}
	return dataset.Dataset{Headers: ds.Headers, Rows: rows}
}

func rowsEqual(a, b dataset.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Sort orders rows stably by the raw values of column. Cells of different
// kinds order Null < Bool < Number < Text. Desc reverses the comparison, so
// equal rows keep their input order in both directions. An unknown column
// leaves the order unchanged.
func Sort(ds dataset.Dataset, column string, dir Direction) dataset.Dataset {
	ix := ds.Index(column)
	rows := make([]dataset.Row, len(ds.Rows))
	copy(rows, ds.Rows)
	if ix < 0 {
		return dataset.Dataset{Headers: ds.Headers, Rows: rows}
	}
	sign := 1
	if dir == Desc {
		sign = -1
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return sign*dataset.Compare(rows[i][ix], rows[j][ix]) < 0
	})
	return dataset.Dataset{Headers: ds.Headers, Rows: rows}
}
