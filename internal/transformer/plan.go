package transformer

import (
	"fmt"

	"csvpipe/internal/config"
	"csvpipe/internal/dataset"
	"csvpipe/internal/transformer/builtin"
)

// cellFunc maps one non-null cell. ok=false leaves the cell untouched.
type cellFunc func(c dataset.Cell) (dataset.Cell, bool)

// compiledRule is a rule with its parameters prepared.
type compiledRule struct {
	rule config.Rule
	fn   cellFunc // nil: rule is a no-op
	err  error
}

// Compile prepares every rule. Compile problems are kept on the step and
// surface in its RuleResult.
func Compile(rules []config.Rule) Chain {
	chain := make(Chain, 0, len(rules))
	for _, r := range rules {
		cr := compiledRule{rule: r}
		if r.Enabled {
			cr.fn, cr.err = compileRule(r)
		}
		chain = append(chain, cr)
	}
	return chain
}

// Apply runs the rule over its column.
func (cr compiledRule) Apply(ds dataset.Dataset) (dataset.Dataset, RuleResult) {
	res := RuleResult{ID: cr.rule.ID, Kind: cr.rule.Kind, Column: cr.rule.Column}
	if !cr.rule.Enabled {
		res.Skipped = true
		return ds, res
	}
	if cr.err != nil {
		res.Error = cr.err.Error()
	}
	ix := ds.Index(cr.rule.Column)
	if ix < 0 {
		res.Skipped = true
		return ds, res
	}
	if cr.fn == nil {
		return ds, res
	}

	var rows []dataset.Row // allocated on first change
	for i, row := range ds.Rows {
		c := row[ix]
		if c.IsNull() {
			continue
		}
		nc, ok := cr.fn(c)
		if !ok || nc.Equal(c) {
			continue
		}
		if rows == nil {
			rows = make([]dataset.Row, len(ds.Rows))
			copy(rows, ds.Rows)
		}
		nr := row.Clone()
		nr[ix] = nc
		rows[i] = nr
		res.CellsChanged++
	}
	if rows == nil {
		return ds, res
	}
	return dataset.Dataset{Headers: ds.Headers, Rows: rows}, res
}

// compileRule builds the cell function for r. A nil function with a nil
// error means the rule is well-formed but has nothing to do.
func compileRule(r config.Rule) (cellFunc, error) {
	cfg := r.Config
	switch r.Kind {
	case config.RuleReplace:
		return compileSubstitution(cfg.String("find", ""), cfg.String("replace", ""))
	case config.RuleRegex:
		return compileSubstitution(cfg.String("pattern", ""), cfg.String("replacement", ""))
	case config.RuleCase:
		mode := builtin.CaseNone
		switch {
		case cfg.Truthy("toUpper"):
			mode = builtin.CaseUpper
		case cfg.Truthy("toLower"):
			mode = builtin.CaseLower
		case cfg.Truthy("capitalize"):
			mode = builtin.CaseCapitalize
		}
		if mode == builtin.CaseNone {
			return nil, nil
		}
		return textFunc(func(s string) (string, bool) { return builtin.ApplyCase(s, mode) }), nil
	case config.RuleTrim:
		return textFunc(func(s string) (string, bool) { return builtin.Trim(s), true }), nil
	case config.RuleSplit:
		delim := cfg.String("delimiter", "")
		keep, ok := cfg.IntOK("keepIndex")
		if delim == "" || !ok {
			return nil, nil
		}
		return textFunc(func(s string) (string, bool) { return builtin.Split(s, delim, keep) }), nil
	case config.RuleFormula:
		src := cfg.String("formula", "")
		if src == "" {
			return nil, nil
		}
		f, err := builtin.CompileFormula(src)
		if err != nil {
			return nil, err
		}
		return func(c dataset.Cell) (dataset.Cell, bool) {
			v, ok := c.AsNumber()
			if !ok {
				return c, false
			}
			out, ok := f.Eval(v)
			if !ok {
				return c, false
			}
			return dataset.Number(out), true
		}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.Kind)
	}
}

// compileSubstitution backs both replace and regex rules: a global regex
// substitution over text cells. An empty pattern is a no-op.
func compileSubstitution(pattern, replacement string) (cellFunc, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := builtin.CompileRegex(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	tmpl := builtin.TranslateReplacement(replacement)
	return textFunc(func(s string) (string, bool) {
		return builtin.ReplaceAll(re, s, tmpl), true
	}), nil
}

// textFunc lifts a string operation to text cells; other kinds pass through.
// The result is a Text cell re-tagged by the classifier.
func textFunc(op func(string) (string, bool)) cellFunc {
	return func(c dataset.Cell) (dataset.Cell, bool) {
		s, ok := c.AsText()
		if !ok {
			return c, false
		}
		out, ok := op(s)
		if !ok {
			return c, false
		}
		return dataset.Text(out), true
	}
}
