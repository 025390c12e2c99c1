package csv

import (
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const utf8BOM = "\uFEFF"

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(s string) string { return strings.TrimPrefix(s, utf8BOM) }

// NewDecodingReader returns a reader producing UTF-8. A UTF-16 byte order
// mark switches decoding to UTF-16 of that endianness; a UTF-8 mark is
// dropped; input without a mark passes through as UTF-8.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
