package dataset

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// unit separator between fields; kind bytes keep "1" and 1 apart.
const fieldSep = 0x1f

// RowHash returns a 64-bit xxh3 digest of the row's kinds and payloads.
// Equal rows (per Cell.Equal) hash equally.
func RowHash(r Row) uint64 {
	h := xxh3.New()
	writeRow(h, r)
	return h.Sum64()
}

// Fingerprint digests headers and every row in order. Two datasets with the
// same fingerprint are, with overwhelming probability, Equal.
func (d Dataset) Fingerprint() uint64 {
	h := xxh3.New()
	for _, name := range d.Headers {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{fieldSep})
	}
	var buf [8]byte
	for _, r := range d.Rows {
		binary.LittleEndian.PutUint64(buf[:], RowHash(r))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func writeRow(h *xxh3.Hasher, r Row) {
	var buf [9]byte
	for _, c := range r {
		buf[0] = byte(c.kind)
		n := 1
		switch c.kind {
		case KindBool:
			if c.b {
				buf[1] = 1
			} else {
				buf[1] = 0
			}
			n = 2
		case KindNumber:
			v := c.n
			if math.IsNaN(v) {
				v = math.NaN()
			}
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(v))
			n = 9
		}
		_, _ = h.Write(buf[:n])
		if c.kind == KindText {
			_, _ = h.WriteString(c.s)
		}
		_, _ = h.Write([]byte{fieldSep})
	}
}
