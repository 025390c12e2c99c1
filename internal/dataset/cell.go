package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind is the variant held by a Cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

// Cell is an immutable tagged scalar. Besides its variant it carries the
// TypeTag assigned by Classify when the cell was created, so reporting never
// has to re-derive a type from the rendered value.
type Cell struct {
	kind Kind
	b    bool
	n    float64
	s    string
	tag  TypeTag
}

// Null returns the empty cell.
func Null() Cell { return Cell{kind: KindNull, tag: TagEmpty} }

// Bool returns a boolean cell.
func Bool(v bool) Cell { return Cell{kind: KindBool, b: v, tag: TagBoolean} }

// Number returns a numeric cell tagged integer or float by its value.
func Number(v float64) Cell {
	return Cell{kind: KindNumber, n: v, tag: numberTag(v)}
}

// Text returns a text cell tagged by Classify(s). The value is kept verbatim;
// "12" stays text but reports as integer.
func Text(s string) Cell { return Cell{kind: KindText, s: s, tag: Classify(s)} }

// FromRaw coerces a raw token the way the parser does: empty becomes Null,
// numbers become Number, true/false become Bool and everything else is Text.
func FromRaw(raw string) Cell {
	tag := Classify(raw)
	switch tag {
	case TagEmpty:
		return Null()
	case TagInteger, TagFloat:
		f, _ := parseNumber(raw)
		return Cell{kind: KindNumber, n: f, tag: tag}
	case TagBoolean:
		return Bool(strings.EqualFold(strings.TrimSpace(raw), "true"))
	default:
		return Cell{kind: KindText, s: raw, tag: tag}
	}
}

func numberTag(v float64) TypeTag {
	if !math.IsNaN(v) && !math.IsInf(v, 0) && v == math.Trunc(v) {
		return TagInteger
	}
	return TagFloat
}

// Kind returns the cell variant.
func (c Cell) Kind() Kind { return c.kind }

// Tag returns the TypeTag assigned when the cell was created.
func (c Cell) Tag() TypeTag { return c.tag }

func (c Cell) IsNull() bool { return c.kind == KindNull }

func (c Cell) IsText() bool { return c.kind == KindText }

func (c Cell) IsNumber() bool { return c.kind == KindNumber }

// AsBool returns the boolean payload and whether the cell is a Bool.
func (c Cell) AsBool() (bool, bool) { return c.b, c.kind == KindBool }

// AsNumber returns the numeric payload and whether the cell is a Number.
func (c Cell) AsNumber() (float64, bool) { return c.n, c.kind == KindNumber }

// AsText returns the text payload and whether the cell is Text.
func (c Cell) AsText() (string, bool) { return c.s, c.kind == KindText }

// IsBlank reports a Null cell or a Text cell with zero length.
func (c Cell) IsBlank() bool {
	return c.kind == KindNull || (c.kind == KindText && c.s == "")
}

// String renders the cell as it would appear in delimited output. Null
// renders as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case KindBool:
		return strconv.FormatBool(c.b)
	case KindNumber:
		return FormatNumber(c.n)
	case KindText:
		return c.s
	default:
		return ""
	}
}

// FormatNumber renders v in its shortest round-trip decimal form.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	if a := math.Abs(v); a != 0 && (a >= 1e21 || a < 1e-6) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Equal compares variant and payload; tags follow from the payload.
func (c Cell) Equal(o Cell) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindBool:
		return c.b == o.b
	case KindNumber:
		return c.n == o.n || (math.IsNaN(c.n) && math.IsNaN(o.n))
	case KindText:
		return c.s == o.s
	default:
		return true
	}
}

// Compare is a three-way comparison of raw values. Cells of different kinds
// order Null < Bool < Number < Text; NaN sorts before every other number.
func Compare(a, b Cell) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case KindNumber:
		an, bn := math.IsNaN(a.n), math.IsNaN(b.n)
		switch {
		case an && bn:
			return 0
		case an:
			return -1
		case bn:
			return 1
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
		return 0
	case KindText:
		return strings.Compare(a.s, b.s)
	default:
		return 0
	}
}

// MarshalJSON encodes the payload as a JSON scalar. Non-finite numbers have
// no JSON form and encode as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindBool:
		return json.Marshal(c.b)
	case KindNumber:
		if math.IsNaN(c.n) || math.IsInf(c.n, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(c.n, 'g', -1, 64)), nil
	case KindText:
		return json.Marshal(c.s)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON scalar. Strings are kept as Text; nested
// objects and arrays are stored as their compact JSON text.
func (c *Cell) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*c = FromJSONValue(v)
	return nil
}

// FromJSONValue converts a value produced by encoding/json (with or without
// UseNumber) into a Cell.
func FromJSONValue(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return Text(t.String())
	case string:
		return Text(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return Null()
		}
		return Text(string(raw))
	}
}
