package render

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"

	"csvpipe/internal/dataset"
)

const spreadsheetNS = "urn:schemas-microsoft-com:office:spreadsheet"

// SpreadsheetML cell types.
const (
	cellString  = "String"
	cellNumber  = "Number"
	cellBoolean = "Boolean"
)

// WriteSpreadsheet writes ds as a single-sheet SpreadsheetML 2003 workbook.
// The header row is written as strings. Numbers and booleans keep their
// cell type, and null cells are empty strings.
func WriteSpreadsheet(w io.Writer, ds dataset.Dataset) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString(`<?mso-application progid="Excel.Sheet"?>` + "\n")
	fmt.Fprintf(bw, `<Workbook xmlns="%[1]s" xmlns:ss="%[1]s">`+"\n", spreadsheetNS)
	bw.WriteString(`<Worksheet ss:Name="Sheet1">` + "\n<Table>\n")

	bw.WriteString("<Row>\n")
	for _, h := range ds.Headers {
		if err := writeCell(bw, cellString, h); err != nil {
			return err
		}
	}
	bw.WriteString("</Row>\n")

	for _, row := range ds.Rows {
		bw.WriteString("<Row>\n")
		for _, c := range row {
			typ, val := cellData(c)
			if err := writeCell(bw, typ, val); err != nil {
				return err
			}
		}
		bw.WriteString("</Row>\n")
	}

	bw.WriteString("</Table>\n</Worksheet>\n</Workbook>\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render spreadsheet: %w", err)
	}
	return nil
}

func writeCell(bw *bufio.Writer, typ, val string) error {
	fmt.Fprintf(bw, `<Cell><Data ss:Type="%s">`, typ)
	if err := xml.EscapeText(bw, []byte(val)); err != nil {
		return fmt.Errorf("render spreadsheet: %w", err)
	}
	bw.WriteString("</Data></Cell>\n")
	return nil
}

// cellData maps a cell to its SpreadsheetML type and text. Non-finite
// numbers have no Number form and are written as strings.
func cellData(c dataset.Cell) (string, string) {
	if b, ok := c.AsBool(); ok {
		if b {
			return cellBoolean, "1"
		}
		return cellBoolean, "0"
	}
	if n, ok := c.AsNumber(); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return cellString, dataset.FormatNumber(n)
		}
		return cellNumber, dataset.FormatNumber(n)
	}
	if s, ok := c.AsText(); ok {
		return cellString, s
	}
	return cellString, ""
}
