package dataset

import "testing"

func TestClassify(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want TypeTag
	}{
		{"", TagEmpty},
		{"   ", TagEmpty},
		{"42", TagInteger},
		{" -7 ", TagInteger},
		{"2024", TagInteger},
		{"1e3", TagInteger},
		{"3.14", TagFloat},
		{".5", TagFloat},
		{"true", TagBoolean},
		{"FALSE", TagBoolean},
		{"2024-01-15", TagDate},
		{"15.01.2024", TagDate},
		{"2024-01-15T10:00:00Z", TagDate},
		{"NaN", TagString},
		{"Infinity", TagString},
		{"0x1F", TagString},
		{"1_000", TagString},
		{"hello", TagString},
		{"yes", TagString},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.in); got != tc.want {
				t.Fatalf("Classify(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

/*
TestFromRawAgreesWithClassify verifies that the cell variant chosen at parse
time and the tag reported later come from the same decision.
*/
func TestFromRawAgreesWithClassify(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "1", "2.5", "true", "2024-01-15", "abc", "2024"} {
		c := FromRaw(raw)
		if c.Tag() != Classify(raw) {
			t.Fatalf("FromRaw(%q).Tag()=%q want %q", raw, c.Tag(), Classify(raw))
		}
		switch c.Tag() {
		case TagEmpty:
			if !c.IsNull() {
				t.Fatalf("%q: want Null, got %v", raw, c.Kind())
			}
		case TagInteger, TagFloat:
			if !c.IsNumber() {
				t.Fatalf("%q: want Number, got %v", raw, c.Kind())
			}
		case TagBoolean:
			if c.Kind() != KindBool {
				t.Fatalf("%q: want Bool, got %v", raw, c.Kind())
			}
		default:
			if !c.IsText() {
				t.Fatalf("%q: want Text, got %v", raw, c.Kind())
			}
		}
	}
}
