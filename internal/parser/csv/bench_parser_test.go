package csv

import (
	"strings"
	"testing"
)

func buildCSV(n int) string {
	var sb strings.Builder
	sb.Grow(n * 64)
	sb.WriteString("id,name,state,valid_from,active\n")
	for i := 0; i < n; i++ {
		sb.WriteString("123456,\"Evidence, E\",Unknown,07.10.2011,True\n")
	}
	return sb.String()
}

func benchParse(b *testing.B, mode Mode) {
	in := buildCSV(20_000)
	p := NewParser(Options{HasHeaders: true, Mode: mode})
	b.SetBytes(int64(len(in)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ds, _ := p.ParseString(in)
		if ds.ColumnCount() != 5 {
			b.Fatalf("columns=%d", ds.ColumnCount())
		}
	}
}

func BenchmarkParseLenient(b *testing.B) { benchParse(b, ModeLenient) }

func BenchmarkParseStrict(b *testing.B) { benchParse(b, ModeStrict) }
