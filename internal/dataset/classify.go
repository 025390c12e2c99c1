package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TypeTag is the reported type of a raw value.
type TypeTag string

const (
	TagEmpty   TypeTag = "empty"
	TagInteger TypeTag = "integer"
	TagFloat   TypeTag = "float"
	TagBoolean TypeTag = "boolean"
	TagDate    TypeTag = "date"
	TagString  TypeTag = "string"
)

// Classify returns the TypeTag of raw. Precedence, first match wins: empty,
// numeric (integer when there is no fractional part, float otherwise),
// boolean, date, string.
//
// The parser picks the Cell variant from this result and stores the tag on
// the cell, so parse-time coercion and report-time typing always agree.
func Classify(raw string) TypeTag {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TagEmpty
	}
	if f, ok := parseNumber(s); ok {
		if f == math.Trunc(f) {
			return TagInteger
		}
		return TagFloat
	}
	if strings.EqualFold(s, "true") || strings.EqualFold(s, "false") {
		return TagBoolean
	}
	if IsDate(s) {
		return TagDate
	}
	return TagString
}

// parseNumber parses a complete decimal number. Any 'n' rules out the NaN
// and infinity spellings; underscores and hex are Go-only syntax.
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, "_xXpPnN") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// dateLayouts are common date formats (no time component).
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01.02.2006",
	"02/01/2006",
	"01/02/2006",
	"2/1/2006",
	"1/2/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

// timestampLayouts are common timestamp formats (with time component).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}

// IsDate reports whether s parses with one of the known date or timestamp
// layouts.
func IsDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// ParseDate tries every timestamp layout, then every date layout.
func ParseDate(s string) (time.Time, bool) {
	t, _, ok := ParseDateTime(s)
	return t, ok
}

// ParseDateTime is ParseDate that also reports whether the matching layout
// carries a time of day.
func ParseDateTime(s string) (t time.Time, hasTime bool, ok bool) {
	st := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, st); err == nil {
			return t, true, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, st); err == nil {
			return t, false, true
		}
	}
	return time.Time{}, false, false
}
