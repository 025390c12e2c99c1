package csv_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"csvpipe/internal/dataset"
	pcsv "csvpipe/internal/parser/csv"
)

func row(cells ...dataset.Cell) dataset.Row { return dataset.Row(cells) }

func mustEqual(t *testing.T, got, want dataset.Dataset) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("dataset mismatch:\n got: %v %v\nwant: %v %v", got.Headers, got.Rows, want.Headers, want.Rows)
	}
}

/*
TestParseDropsShortRow covers the basic lenient contract: numeric coercion,
text kept verbatim, and a record of the wrong width dropped and counted.
*/
func TestParseDropsShortRow(t *testing.T) {
	t.Parallel()
	p := pcsv.NewParser(pcsv.DefaultOptions())
	ds, dropped := p.ParseString("a,b\n1,2\n3,x\n5")

	mustEqual(t, ds, dataset.Dataset{
		Headers: []string{"a", "b"},
		Rows: []dataset.Row{
			row(dataset.Number(1), dataset.Number(2)),
			row(dataset.Number(3), dataset.Text("x")),
		},
	})
	if dropped != 1 {
		t.Fatalf("dropped=%d want 1", dropped)
	}
}

func TestParseLenient(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		opt     pcsv.Options
		in      string
		headers []string
		rows    []dataset.Row
		dropped int
	}{
		{
			name:    "crlf and blank lines",
			opt:     pcsv.DefaultOptions(),
			in:      "\uFEFFname,ok\r\n\r\n alice , TRUE \r\n  \r\nbob,false\r\n",
			headers: []string{"name", "ok"},
			rows: []dataset.Row{
				row(dataset.Text("alice"), dataset.Bool(true)),
				row(dataset.Text("bob"), dataset.Bool(false)),
			},
		},
		{
			name:    "quotes stripped everywhere",
			opt:     pcsv.DefaultOptions(),
			in:      `"id","note"` + "\n" + `"7","say ""hi"""`,
			headers: []string{"id", "note"},
			rows:    []dataset.Row{row(dataset.Number(7), dataset.Text("say hi"))},
		},
		{
			name:    "embedded delimiter splits",
			opt:     pcsv.DefaultOptions(),
			in:      "a,b\n\"x,y\",z\n1,2",
			headers: []string{"a", "b"},
			rows:    []dataset.Row{row(dataset.Number(1), dataset.Number(2))},
			dropped: 1,
		},
		{
			name:    "no headers",
			opt:     pcsv.Options{Delimiter: ';'},
			in:      "1;;x\n2;3;y",
			headers: []string{"Column 1", "Column 2", "Column 3"},
			rows: []dataset.Row{
				row(dataset.Number(1), dataset.Null(), dataset.Text("x")),
				row(dataset.Number(2), dataset.Number(3), dataset.Text("y")),
			},
		},
		{
			name:    "tab delimited",
			opt:     pcsv.Options{Delimiter: '\t', HasHeaders: true},
			in:      "k\tv\n1.5\t2024-01-02",
			headers: []string{"k", "v"},
			rows:    []dataset.Row{row(dataset.Number(1.5), dataset.Text("2024-01-02"))},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ds, dropped := pcsv.NewParser(tc.opt).ParseString(tc.in)
			mustEqual(t, ds, dataset.Dataset{Headers: tc.headers, Rows: tc.rows})
			if dropped != tc.dropped {
				t.Fatalf("dropped=%d want %d", dropped, tc.dropped)
			}
		})
	}
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "\n\n", "   \r\n"} {
		ds, _ := pcsv.NewParser(pcsv.DefaultOptions()).ParseString(in)
		if !ds.Empty() {
			t.Fatalf("%q: want empty dataset, got headers %v", in, ds.Headers)
		}
	}
}

func TestParseStrict(t *testing.T) {
	t.Parallel()
	opt := pcsv.DefaultOptions()
	opt.Mode = pcsv.ModeStrict
	in := "name,note\n\"Smith, J\",\"line1\nline2\"\nplain,\"say \"\"hi\"\"\"\nshort\n"
	ds, dropped := pcsv.NewParser(opt).ParseString(in)

	mustEqual(t, ds, dataset.Dataset{
		Headers: []string{"name", "note"},
		Rows: []dataset.Row{
			row(dataset.Text("Smith, J"), dataset.Text("line1\nline2")),
			row(dataset.Text("plain"), dataset.Text(`say "hi"`)),
		},
	})
	if dropped != 1 {
		t.Fatalf("dropped=%d want 1", dropped)
	}
}

func TestParseStrictCustomQuote(t *testing.T) {
	t.Parallel()
	opt := pcsv.Options{Delimiter: '|', HasHeaders: true, QuoteChar: '\'', EscapeChar: '\\', Mode: pcsv.ModeStrict}
	in := "a|b\n'x|y'|'it\\'s'\n\n'open|1"
	ds, dropped := pcsv.NewParser(opt).ParseString(in)

	mustEqual(t, ds, dataset.Dataset{
		Headers: []string{"a", "b"},
		Rows:    []dataset.Row{row(dataset.Text("x|y"), dataset.Text("it's"))},
	})
	if dropped != 1 {
		t.Fatalf("dropped=%d want 1 (unterminated quote)", dropped)
	}
}

func TestParseReaderDecodesUTF16(t *testing.T) {
	t.Parallel()
	// "a,b\n1,2" as UTF-16LE with a byte order mark
	src := []byte{0xFF, 0xFE}
	for _, r := range "a,b\n1,2" {
		src = append(src, byte(r), 0)
	}
	ds, dropped, err := pcsv.NewParser(pcsv.DefaultOptions()).Parse(bytes.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dropped != 0 || !reflect.DeepEqual(ds.Headers, []string{"a", "b"}) || ds.RowCount() != 1 {
		t.Fatalf("got headers=%v rows=%d dropped=%d", ds.Headers, ds.RowCount(), dropped)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	if m, err := pcsv.ParseMode(" Strict "); err != nil || m != pcsv.ModeStrict {
		t.Fatalf("ParseMode(Strict)=%q,%v", m, err)
	}
	if m, err := pcsv.ParseMode(""); err != nil || m != pcsv.ModeLenient {
		t.Fatalf("ParseMode(\"\")=%q,%v", m, err)
	}
	if _, err := pcsv.ParseMode("loose"); err == nil {
		t.Fatalf("want error for unknown mode")
	}
}

func TestRowCountNeverExceedsRecords(t *testing.T) {
	t.Parallel()
	in := "a,b\n1\n2,3\n4,5,6\n\n7,8"
	ds, dropped := pcsv.NewParser(pcsv.DefaultOptions()).ParseString(in)
	records := 4 // non-blank lines after the header
	if ds.RowCount()+dropped != records || ds.RowCount() > records {
		t.Fatalf("rows=%d dropped=%d records=%d", ds.RowCount(), dropped, records)
	}
	if !strings.EqualFold(ds.Headers[0], "a") {
		t.Fatalf("headers=%v", ds.Headers)
	}
}
