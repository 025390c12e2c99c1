package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Rule kinds.
const (
	RuleReplace = "replace"
	RuleRegex   = "regex"
	RuleCase    = "case"
	RuleTrim    = "trim"
	RuleSplit   = "split"
	RuleFormula = "formula"
)

// KnownRuleKinds lists every supported rule kind.
var KnownRuleKinds = []string{RuleReplace, RuleRegex, RuleCase, RuleTrim, RuleSplit, RuleFormula}

// Rule is one user-supplied transformation. Config keys depend on Kind:
//
//	replace  find (regex), replace
//	regex    pattern, replacement
//	case     toUpper | toLower | capitalize
//	trim     (none)
//	split    delimiter, keepIndex
//	formula  formula, e.g. "{value} * 1.2"
type Rule struct {
	ID      string  `json:"id,omitempty" yaml:"id"`
	Kind    string  `json:"type" yaml:"type"`
	Column  string  `json:"column" yaml:"column"`
	Config  Options `json:"config,omitempty" yaml:"config"`
	Enabled bool    `json:"enabled" yaml:"enabled"`
}

// RuleSet is the document shape of a rule file. A bare array of rules is
// accepted as well.
type RuleSet struct {
	Rules []Rule `json:"rules"`
}

//go:embed schema/rules.schema.json
var rulesSchema []byte

const rulesSchemaURL = "https://csvpipe.local/schemas/rules.schema.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// getCompiledSchema compiles the embedded schema once.
func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal(rulesSchema, &doc); err != nil {
			schemaInitErr = fmt.Errorf("parse embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(rulesSchemaURL, doc); err != nil {
			schemaInitErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaInitErr = c.Compile(rulesSchemaURL)
	})
	return compiledSchema, schemaInitErr
}

// SchemaError reports a rule document that does not match the schema.
type SchemaError struct {
	Issues []Issue
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, iss := range e.Issues {
		msgs[i] = iss.Error()
	}
	return "rule file does not match schema: " + strings.Join(msgs, "; ")
}

// LoadRules reads a JSON or YAML rule file (by extension).
func LoadRules(path string) ([]Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules, err := DecodeRules(b, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rules, nil
}

// DecodeRules parses a rule document, checks it against the embedded JSON
// Schema and assigns an id to every rule that lacks one. Schema violations
// come back as *SchemaError.
func DecodeRules(b []byte, format string) ([]Rule, error) {
	var doc any
	switch format {
	case "json":
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	if doc == nil {
		return nil, nil
	}
	if arr, ok := doc.([]any); ok {
		doc = map[string]any{"rules": arr}
	}

	sch, err := getCompiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return nil, &SchemaError{Issues: schemaIssues(ve)}
		}
		return nil, &SchemaError{Issues: []Issue{{Severity: SeverityError, Path: "/", Message: err.Error()}}}
	}

	// Round-trip through JSON so both formats land in the same typed shape.
	norm, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize rules: %w", err)
	}
	var set RuleSet
	if err := json.NewDecoder(bytes.NewReader(norm)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return AssignIDs(set.Rules), nil
}

// AssignIDs returns a copy of rules where every empty ID is replaced by a
// random UUID.
func AssignIDs(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	for i := range out {
		if strings.TrimSpace(out[i].ID) == "" {
			out[i].ID = uuid.NewString()
		}
		if out[i].Config == nil {
			out[i].Config = Options{}
		}
	}
	return out
}

// schemaIssues flattens a validation error tree into leaf issues.
func schemaIssues(err *jsonschema.ValidationError) []Issue {
	if len(err.Causes) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     instancePath(err.InstanceLocation),
			Message:  err.Error(),
		}}
	}
	var out []Issue
	for _, c := range err.Causes {
		out = append(out, schemaIssues(c)...)
	}
	return out
}

func instancePath(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}
