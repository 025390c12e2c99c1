// Package json decodes JSON row payloads into a dataset.Dataset.
//
// Accepted shapes:
//
//   - a top-level array of rows (when AllowArrays is set)
//   - newline-delimited rows, one JSON value per line
//
// A row is either an object keyed by column name or an array of positional
// values. Object key order is preserved: headers are the union of keys in
// first-seen order unless Options.Headers fixes them. Array rows whose width
// differs from the header count are dropped and counted, mirroring the CSV
// parser.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"csvpipe/internal/config"
	"csvpipe/internal/dataset"
	pcsv "csvpipe/internal/parser/csv"
)

// Options configures decoding.
type Options struct {
	// AllowArrays accepts a single top-level array of rows.
	AllowArrays bool

	// Headers fixes the column order. Object keys not listed are ignored.
	Headers []string
}

// FromConfigOptions reads "allow_arrays" and "headers" from a generic
// options bag.
func FromConfigOptions(o config.Options) Options {
	return Options{
		AllowArrays: o.Bool("allow_arrays", false),
		Headers:     o.StringSlice("headers"),
	}
}

// parsed is one decoded row before alignment to headers.
type parsed struct {
	keys   []string // nil for positional rows
	values []dataset.Cell
}

// DecodeAll reads every row from r and returns the dataset and the number of
// dropped positional rows. Malformed JSON is an error; an empty stream is an
// empty dataset.
func DecodeAll(r io.Reader, opt Options) (dataset.Dataset, int, error) {
	d := json.NewDecoder(r)
	d.UseNumber()

	var rows []parsed
	first := true
	for {
		var raw json.RawMessage
		if err := d.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return dataset.Dataset{}, 0, fmt.Errorf("json parser: decode: %w", err)
		}
		raw = bytes.TrimSpace(raw)
		if first && len(raw) > 0 && raw[0] == '[' && isRowList(raw) {
			if !opt.AllowArrays {
				return dataset.Dataset{}, 0, fmt.Errorf("json parser: top-level array encountered but allow_arrays=false")
			}
			var elems []json.RawMessage
			if err := json.Unmarshal(raw, &elems); err != nil {
				return dataset.Dataset{}, 0, fmt.Errorf("json parser: decode root: %w", err)
			}
			for i, e := range elems {
				p, err := decodeRow(e)
				if err != nil {
					return dataset.Dataset{}, 0, fmt.Errorf("json parser: element %d: %w", i, err)
				}
				rows = append(rows, p)
			}
			first = false
			continue
		}
		first = false
		p, err := decodeRow(raw)
		if err != nil {
			return dataset.Dataset{}, 0, fmt.Errorf("json parser: %w", err)
		}
		rows = append(rows, p)
	}
	ds, dropped := align(rows, opt.Headers)
	return ds, dropped, nil
}

// DecodeBytes is DecodeAll over an in-memory payload with arrays allowed,
// the shape the HTTP API receives.
func DecodeBytes(b []byte, headers []string) (dataset.Dataset, int, error) {
	return DecodeAll(bytes.NewReader(b), Options{AllowArrays: true, Headers: headers})
}

// isRowList reports whether an array holds rows (objects or arrays) rather
// than being a single positional row of scalars. An empty array is a list.
func isRowList(raw json.RawMessage) bool {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return false
	}
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || (e[0] != '{' && e[0] != '[') {
			return false
		}
	}
	return true
}

func decodeRow(raw json.RawMessage) (parsed, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return parsed{}, fmt.Errorf("empty row")
	}
	switch raw[0] {
	case '{':
		return decodeObject(raw)
	case '[':
		var cells []dataset.Cell
		if err := json.Unmarshal(raw, &cells); err != nil {
			return parsed{}, err
		}
		return parsed{values: cells}, nil
	default:
		return parsed{}, fmt.Errorf("row is not an object or array")
	}
}

// decodeObject walks the object token by token so key order survives.
func decodeObject(raw json.RawMessage) (parsed, error) {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	if _, err := d.Token(); err != nil { // '{'
		return parsed{}, err
	}
	var p parsed
	p.keys = []string{}
	for d.More() {
		tok, err := d.Token()
		if err != nil {
			return parsed{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return parsed{}, fmt.Errorf("unexpected object key %v", tok)
		}
		var c dataset.Cell
		if err := d.Decode(&c); err != nil {
			return parsed{}, fmt.Errorf("field %q: %w", key, err)
		}
		p.keys = append(p.keys, key)
		p.values = append(p.values, c)
	}
	return p, nil
}

// align builds headers and positions every row under them. Missing object
// keys become Null.
func align(rows []parsed, headers []string) (dataset.Dataset, int) {
	if headers == nil {
		seen := map[string]bool{}
		for _, p := range rows {
			for _, k := range p.keys {
				if !seen[k] {
					seen[k] = true
					headers = append(headers, k)
				}
			}
		}
		if headers == nil && len(rows) > 0 {
			headers = pcsv.SyntheticHeaders(len(rows[0].values))
		}
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	out := make([]dataset.Row, 0, len(rows))
	for _, p := range rows {
		if p.keys == nil {
			out = append(out, dataset.Row(p.values))
			continue
		}
		r := make(dataset.Row, len(headers))
		for i := range r {
			r[i] = dataset.Null()
		}
		for i, k := range p.keys {
			if ix, ok := index[k]; ok {
				r[ix] = p.values[i]
			}
		}
		out = append(out, r)
	}
	return dataset.New(headers, out)
}
