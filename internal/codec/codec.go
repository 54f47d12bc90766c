// Package codec converts between raw byte streams and row-of-cells data
// for the supported container formats: delimited text, spreadsheet
// workbook and JSON array.
//
// Codecs are format plumbing only. They know nothing about fund fields:
// decoding yields untyped cell strings and encoding renders whatever
// table it is handed. Cells are carried as formatted display strings
// (spreadsheet cells included) to avoid locale ambiguity in numeric and
// date cells.
package codec

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// FormatKind selects one of the supported container formats.
type FormatKind string

const (
	FormatCSV  FormatKind = "csv"
	FormatXLSX FormatKind = "xlsx"
	FormatJSON FormatKind = "json"
)

// ParseFormat maps a user-supplied format name (or file extension) to a
// FormatKind.
func ParseFormat(s string) (FormatKind, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "."))) {
	case "csv", "txt", "tsv":
		return FormatCSV, nil
	case "xlsx", "xls", "excel":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", s)
	}
}

// Extension returns the file extension for artifacts of this format.
func (k FormatKind) Extension() string {
	return string(k)
}

// ContentType returns the MIME type for artifacts of this format.
func (k FormatKind) ContentType() string {
	switch k {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Table is the row-of-cells intermediate representation shared by all
// codecs. Rows hold display strings; ragged rows are allowed on decode.
type Table struct {
	Headers []string
	Rows    [][]string
	// Widths are optional per-column width hints, consumed by the
	// spreadsheet codec and ignored elsewhere.
	Widths []int
}

// Metadata describes an export for the auxiliary traceability region
// (the "Export Info" sheet, the JSON metadata envelope, the appended CSV
// section). Nil metadata means encode only the primary data.
type Metadata struct {
	ExportedAt  time.Time
	RecordCount int
	Fields      []string
	// Statistics is an optional supplementary table (per-field
	// completeness, numeric min/max/avg).
	Statistics *Table
}

// Codec reads and writes one container format.
type Codec interface {
	// Decode parses raw bytes into a table. Empty input yields an empty
	// table, not an error; structural problems (malformed JSON root,
	// header-only workbook) fail before any row is returned.
	Decode(r io.Reader) (*Table, error)
	// Encode renders a table, with an optional metadata region.
	Encode(w io.Writer, table *Table, meta *Metadata) error
}

// Options tunes the delimited-text codec; the other formats ignore it.
type Options struct {
	// Delimiter for delimited text; 0 means comma.
	Delimiter rune
	// BOM prepends a UTF-8 byte-order marker on encode so spreadsheet
	// applications in non-UTF-8 locales open the file correctly.
	BOM bool
}

// For returns the codec for a format.
func For(kind FormatKind, opts Options) (Codec, error) {
	switch kind {
	case FormatCSV:
		d := opts.Delimiter
		if d == 0 {
			d = ','
		}
		return &delimitedCodec{delimiter: d, bom: opts.BOM}, nil
	case FormatXLSX:
		return &spreadsheetCodec{}, nil
	case FormatJSON:
		return &jsonCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %q", kind)
	}
}

// IsEmptyRow reports whether every cell in the row trims to "".
func IsEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
