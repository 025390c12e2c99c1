package builtin

import "testing"

func TestFormula(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		in   float64
		want float64
		ok   bool
	}{
		{"{value} * 1.5", 2, 3, true},
		{"({value} + 1) * {value}", 3, 12, true},
		{"value - 10", 4, -6, true},
		{"round({value} * 100) / 100", 1.23456, 1.23, true},
		{"{value} / 0", 1, 0, false},
		{"{value} == 1", 1, 0, false},
	}
	for _, tc := range tests {
		f, err := CompileFormula(tc.src)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.src, err)
		}
		got, ok := f.Eval(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("%q(%v)=%v,%v want %v,%v", tc.src, tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCompileFormulaErrors(t *testing.T) {
	t.Parallel()
	for _, src := range []string{"", "  ", "{value} +", "other * 2"} {
		if _, err := CompileFormula(src); err == nil {
			t.Fatalf("CompileFormula(%q) should fail", src)
		}
	}
}
