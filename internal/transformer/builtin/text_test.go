package builtin

import "testing"

func TestApplyCase(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		mode CaseMode
		want string
		ok   bool
	}{
		{"bob", CaseUpper, "BOB", true},
		{"BOB", CaseLower, "bob", true},
		{"hELLO wORLD", CaseCapitalize, "Hello world", true},
		{"", CaseCapitalize, "", true},
		{"x", CaseNone, "x", false},
	}
	for _, tc := range tests {
		got, ok := ApplyCase(tc.in, tc.mode)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ApplyCase(%q,%d)=%q,%v want %q,%v", tc.in, tc.mode, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()
	if got := Trim("\uFEFF  x y\r\n"); got != "x y" {
		t.Fatalf("Trim=%q", got)
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		s, delim string
		keep     int
		want     string
		ok       bool
	}{
		{"John Smith", " ", 1, "Smith", true},
		{"Solo", " ", 1, "Solo", false},
		{"a||b", "||", 1, "b", true},
		{"a,b", "", 0, "a,b", false},
		{"a,b", ",", -1, "a,b", false},
		{" , x", ",", 0, "", true},
	}
	for _, tc := range tests {
		got, ok := Split(tc.s, tc.delim, tc.keep)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Split(%q,%q,%d)=%q,%v want %q,%v", tc.s, tc.delim, tc.keep, got, ok, tc.want, tc.ok)
		}
	}
}
