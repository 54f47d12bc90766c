package codec

// delimited.go implements the delimited-text codec.
//
// Decode tolerates the usual CSV mess: UTF-8 BOM, lazy quoting, ragged
// rows. Encode quotes every field so values containing the delimiter,
// quotes or newlines survive any downstream spreadsheet import, and can
// prepend a BOM for locale-correct opening in Excel.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type delimitedCodec struct {
	delimiter rune
	bom       bool
}

func (c *delimitedCodec) Decode(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)

	// Strip a leading BOM if present.
	if peek, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(peek, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("skip BOM: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = c.delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

func (c *delimitedCodec) Encode(w io.Writer, table *Table, meta *Metadata) error {
	if c.bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	if err := c.writeRow(w, table.Headers); err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := c.writeRow(w, row); err != nil {
			return err
		}
	}

	if meta == nil {
		return nil
	}

	// Traceability region: a blank line, then key/value rows, then the
	// statistics table when present.
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	metaRows := [][]string{
		{"Export Info", ""},
		{"Generated at", meta.ExportedAt.Format("2006-01-02 15:04:05")},
		{"Record count", fmt.Sprintf("%d", meta.RecordCount)},
		{"Fields", strings.Join(meta.Fields, ", ")},
	}
	for _, row := range metaRows {
		if err := c.writeRow(w, row); err != nil {
			return err
		}
	}

	if meta.Statistics != nil {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := c.writeRow(w, meta.Statistics.Headers); err != nil {
			return err
		}
		for _, row := range meta.Statistics.Rows {
			if err := c.writeRow(w, row); err != nil {
				return err
			}
		}
	}

	return nil
}

// writeRow emits one record with every field quoted.
func (c *delimitedCodec) writeRow(w io.Writer, row []string) error {
	var b strings.Builder
	for i, cell := range row {
		if i > 0 {
			b.WriteRune(c.delimiter)
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
