// This file adds a lightweight linter for rule lists and application
// configs. It performs static checks and returns a list of issues (errors
// and warnings) that callers can surface in a CLI, the HTTP API or tests.

package config

import (
	"fmt"
	"regexp"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding.
//
// Path is a dotted path into the config (e.g. "rules[1].config.find",
// "storage.kind"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Path     string        `json:"path"`
	Message  string        `json:"message"`
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRules lints a rule list without mutating it. Regex parameters are
// compiled with Go's regexp syntax; formula expressions are checked by the
// transformer package, which owns the evaluator.
//
// Broken rules never stop the engine (they degrade to no-ops), so a rule
// error here is a heads-up for authors rather than a hard failure.
func ValidateRules(rules []Rule) []Issue {
	var issues []Issue
	seen := map[string]int{}

	for i, r := range rules {
		base := fmt.Sprintf("rules[%d]", i)
		add := func(sev IssueSeverity, path, msg string) {
			issues = append(issues, Issue{Severity: sev, Path: base + path, Message: msg})
		}

		if id := strings.TrimSpace(r.ID); id != "" {
			if prev, dup := seen[id]; dup {
				add(SeverityWarning, ".id", fmt.Sprintf("duplicate id %q (also rules[%d])", id, prev))
			} else {
				seen[id] = i
			}
		}
		if strings.TrimSpace(r.Column) == "" {
			add(SeverityError, ".column", "column must not be empty")
		}

		cfg := r.Config
		switch r.Kind {
		case RuleReplace:
			find := cfg.String("find", "")
			if find == "" {
				add(SeverityWarning, ".config.find", "find is empty; rule has no effect")
			} else if _, err := regexp.Compile(find); err != nil {
				add(SeverityError, ".config.find", fmt.Sprintf("invalid regular expression: %v", err))
			}
		case RuleRegex:
			pat := cfg.String("pattern", "")
			if pat == "" {
				add(SeverityWarning, ".config.pattern", "pattern is empty; rule has no effect")
			} else if _, err := regexp.Compile(pat); err != nil {
				add(SeverityError, ".config.pattern", fmt.Sprintf("invalid regular expression: %v", err))
			}
		case RuleCase:
			if !cfg.Truthy("toUpper") && !cfg.Truthy("toLower") && !cfg.Truthy("capitalize") {
				add(SeverityWarning, ".config", "none of toUpper, toLower or capitalize is set; rule has no effect")
			}
		case RuleTrim:
		case RuleSplit:
			if cfg.String("delimiter", "") == "" {
				add(SeverityWarning, ".config.delimiter", "delimiter is empty; rule has no effect")
			}
			if k, ok := cfg.IntOK("keepIndex"); !ok || k < 0 {
				add(SeverityWarning, ".config.keepIndex", "keepIndex must be a non-negative integer; rule has no effect")
			}
		case RuleFormula:
			if strings.TrimSpace(cfg.String("formula", "")) == "" {
				add(SeverityWarning, ".config.formula", "formula is empty; rule has no effect")
			}
		case "":
			add(SeverityError, ".type", "type must not be empty")
		default:
			add(SeverityError, ".type", fmt.Sprintf("unknown rule type %q (known: %s)", r.Kind, strings.Join(KnownRuleKinds, ", ")))
		}
	}
	return issues
}

// ValidateApp lints an application config.
func ValidateApp(a App) []Issue {
	var issues []Issue
	if a.Limits.MaxBytes <= 0 {
		issues = append(issues, Issue{SeverityError, "limits.max_bytes", "max_bytes must be positive"})
	}
	if n := len([]rune(a.Parser.Delimiter)); n > 1 {
		issues = append(issues, Issue{SeverityError, "parser.delimiter", "delimiter must be a single character"})
	}
	if n := len([]rune(a.Parser.QuoteChar)); n > 1 {
		issues = append(issues, Issue{SeverityError, "parser.quote_char", "quote_char must be a single character"})
	}
	if n := len([]rune(a.Parser.EscapeChar)); n > 1 {
		issues = append(issues, Issue{SeverityError, "parser.escape_char", "escape_char must be a single character"})
	}
	switch strings.ToLower(a.Parser.Mode) {
	case "", "lenient", "strict":
	default:
		issues = append(issues, Issue{SeverityError, "parser.mode", fmt.Sprintf("unknown mode %q (lenient|strict)", a.Parser.Mode)})
	}
	switch strings.ToLower(a.Metrics.Backend) {
	case "", "none", "pushgateway", "datadog":
	default:
		issues = append(issues, Issue{SeverityWarning, "metrics.backend", fmt.Sprintf("unknown metrics backend %q; metrics disabled", a.Metrics.Backend)})
	}
	if a.Storage.Kind != "" {
		if strings.TrimSpace(a.Storage.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "storage.dsn", "storage.dsn must not be empty when storage.kind is set"})
		}
		if strings.TrimSpace(a.Storage.Table) == "" {
			issues = append(issues, Issue{SeverityError, "storage.table", "storage.table must not be empty when storage.kind is set"})
		}
	}
	if d, err := a.HTTP.TimeoutDuration(); err != nil || d < 0 {
		issues = append(issues, Issue{SeverityError, "http.timeout", fmt.Sprintf("timeout %q is not a positive duration", a.HTTP.Timeout)})
	}
	if a.HTTP.Retries < 0 {
		issues = append(issues, Issue{SeverityError, "http.retries", "retries must not be negative"})
	}
	if a.Storage.BatchSize < 0 {
		issues = append(issues, Issue{SeverityWarning, "storage.batch_size", "batch_size is negative; treated as a single batch"})
	}
	return issues
}
