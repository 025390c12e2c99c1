// Package render turns a dataset into a downloadable document: comma
// separated text, indented JSON records, or a SpreadsheetML workbook that
// spreadsheet applications open as .xls.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"csvpipe/internal/dataset"
	pcsv "csvpipe/internal/parser/csv"
)

// Format names an output document type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatCSV, FormatXLSX, FormatJSON}

// ErrUnknownFormat is returned for a format outside Formats.
var ErrUnknownFormat = errors.New("render: unsupported format")

// ParseFormat matches s against Formats, ignoring case and surrounding space.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Document is a rendered dataset with the metadata needed to send it as a
// file.
type Document struct {
	Body        []byte
	ContentType string
	// Extension is the file suffix without the dot. SpreadsheetML is
	// served as .xls.
	Extension string
}

// Filename joins base and the document extension.
func (d Document) Filename(base string) string { return base + "." + d.Extension }

// Render serializes ds as f. CSV output has a header line, comma delimiters
// and "\n" between records.
func Render(ds dataset.Dataset, f Format) (Document, error) {
	switch f {
	case FormatCSV:
		body := pcsv.Unparse(ds, pcsv.UnparseOptions{
			Delimiter:  ',',
			HasHeaders: true,
			QuoteChar:  '"',
			Newline:    "\n",
		})
		return Document{Body: []byte(body), ContentType: "text/csv", Extension: "csv"}, nil

	case FormatJSON:
		body, err := json.MarshalIndent(ds.Records(), "", "  ")
		if err != nil {
			return Document{}, fmt.Errorf("render json: %w", err)
		}
		return Document{Body: body, ContentType: "application/json", Extension: "json"}, nil

	case FormatXLSX:
		var buf bytes.Buffer
		if err := WriteSpreadsheet(&buf, ds); err != nil {
			return Document{}, err
		}
		return Document{Body: buf.Bytes(), ContentType: "application/vnd.ms-excel", Extension: "xls"}, nil
	}
	return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}
