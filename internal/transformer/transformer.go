// Package transformer applies an ordered list of user rules to a dataset.
//
// Rules are compiled once into a Chain (regexes, templates and formulas are
// prepared up front), then folded left over the dataset. A rule never fails
// the fold: a broken parameter makes that rule a no-op and is reported in its
// RuleResult. Input datasets are never modified; a row touched by a rule is
// copied first, untouched rows are shared with the input.
package transformer

import (
	"fmt"

	"csvpipe/internal/config"
	"csvpipe/internal/dataset"
)

// RuleResult describes what one rule did.
type RuleResult struct {
	ID     string `json:"id"`
	Kind   string `json:"type"`
	Column string `json:"column"`
	// CellsChanged counts cells whose value differs after the rule.
	CellsChanged int `json:"cellsChanged"`
	// Skipped is set for disabled rules and rules naming an unknown column.
	Skipped bool `json:"skipped"`
	// Error holds a compile problem that turned the rule into a no-op.
	Error string `json:"error,omitempty"`
}

// Transformer is one compiled step of the fold.
type Transformer interface {
	Apply(ds dataset.Dataset) (dataset.Dataset, RuleResult)
}

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply folds the chain over ds and returns the final dataset together with
// one result per step.
func (c Chain) Apply(ds dataset.Dataset) (dataset.Dataset, []RuleResult) {
	out := ds
	results := make([]RuleResult, 0, len(c))
	for _, t := range c {
		var res RuleResult
		out, res = t.Apply(out)
		results = append(results, res)
	}
	return out, results
}

// Result is the outcome of Apply.
type Result struct {
	Dataset dataset.Dataset
	Rules   []RuleResult
	// Applied is the number of enabled rules.
	Applied int
}

// Apply compiles rules and folds them over ds.
func Apply(rules []config.Rule, ds dataset.Dataset) Result {
	out, results := Compile(rules).Apply(ds)
	return Result{Dataset: out, Rules: results, Applied: CountEnabled(rules)}
}

// CountEnabled returns the number of enabled rules.
func CountEnabled(rules []config.Rule) int {
	n := 0
	for _, r := range rules {
		if r.Enabled {
			n++
		}
	}
	return n
}

// Lint runs config.ValidateRules and adds formula compile checks.
func Lint(rules []config.Rule) []config.Issue {
	issues := config.ValidateRules(rules)
	for i, r := range rules {
		if r.Kind != config.RuleFormula {
			continue
		}
		if _, err := compileRule(r); err != nil {
			issues = append(issues, config.Issue{
				Severity: config.SeverityError,
				Path:     fmt.Sprintf("rules[%d].config.formula", i),
				Message:  err.Error(),
			})
		}
	}
	return issues
}
