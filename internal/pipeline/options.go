package pipeline

import (
	"encoding/json"
	"fmt"

	"csvpipe/internal/config"
	pcsv "csvpipe/internal/parser/csv"
	"csvpipe/internal/query"
)

// ParseOptions builds parser options from a request option bag, falling back
// to the configured defaults for keys the request leaves out. Recognized
// keys: delimiter, hasHeaders, quoteChar, escapeChar, skipEmptyLines, mode.
// hasHeaders and skipEmptyLines default to true.
func ParseOptions(def config.ParserDefaults, o config.Options) (pcsv.Options, error) {
	mode, err := pcsv.ParseMode(o.String("mode", def.Mode))
	if err != nil {
		return pcsv.Options{}, err
	}
	return pcsv.Options{
		Delimiter:      o.Rune("delimiter", firstRune(def.Delimiter, ',')),
		HasHeaders:     o.Bool("hasHeaders", boolOr(def.HasHeaders, true)),
		QuoteChar:      o.Rune("quoteChar", firstRune(def.QuoteChar, '"')),
		EscapeChar:     o.Rune("escapeChar", firstRune(def.EscapeChar, '"')),
		KeepEmptyLines: !o.Bool("skipEmptyLines", boolOr(def.SkipEmptyLines, true)),
		Mode:           mode,
	}, nil
}

// UnparseOptions is ParseOptions for serialization.
func UnparseOptions(def config.ParserDefaults, o config.Options) pcsv.UnparseOptions {
	return pcsv.UnparseOptions{
		Delimiter:  o.Rune("delimiter", firstRune(def.Delimiter, ',')),
		HasHeaders: o.Bool("hasHeaders", boolOr(def.HasHeaders, true)),
		QuoteChar:  o.Rune("quoteChar", firstRune(def.QuoteChar, '"')),
		EscapeChar: o.Rune("escapeChar", firstRune(def.EscapeChar, '"')),
		Newline:    o.String("newline", "\r\n"),
	}
}

// QueryOptions reads selectedColumns, filterQuery, distinct, sortColumn and
// sortDirection.
func QueryOptions(o config.Options) query.Options {
	return query.Options{
		SelectedColumns: o.StringSlice("selectedColumns"),
		FilterText:      o.String("filterQuery", ""),
		Distinct:        o.Bool("distinct", false),
		SortColumn:      o.String("sortColumn", ""),
		SortDirection:   query.ParseDirection(o.String("sortDirection", "")),
	}
}

// ParseRules decodes a JSON list of rules sent with a request. Unlike rule
// files it is not checked against the schema; broken parameters surface as
// per-rule errors when the rules run. Missing ids are assigned.
func ParseRules(raw []byte) ([]config.Rule, error) {
	var rules []config.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("decode transformations: %w", err)
	}
	return config.AssignIDs(rules), nil
}

func firstRune(s string, def rune) rune {
	for _, r := range s {
		return r
	}
	return def
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
