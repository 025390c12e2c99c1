package builtin

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Formula is a compiled arithmetic expression over a single numeric cell.
type Formula struct {
	src  string
	prog *vm.Program
}

// CompileFormula compiles src. The cell value is available as `value`;
// the placeholder `{value}` is accepted and rewritten to it. Only `value` is
// defined, so a typo in a variable name fails here rather than per cell.
func CompileFormula(src string) (*Formula, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty formula")
	}
	code := strings.ReplaceAll(src, "{value}", "value")
	prog, err := expr.Compile(code, expr.Env(map[string]any{"value": float64(0)}))
	if err != nil {
		return nil, fmt.Errorf("compile formula %q: %w", src, err)
	}
	return &Formula{src: src, prog: prog}, nil
}

// String returns the source text.
func (f *Formula) String() string { return f.src }

// Eval runs the formula for v. ok is false when evaluation fails or the
// result is not a finite number.
func (f *Formula) Eval(v float64) (float64, bool) {
	out, err := expr.Run(f.prog, map[string]any{"value": v})
	if err != nil {
		return 0, false
	}
	var n float64
	switch t := out.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
