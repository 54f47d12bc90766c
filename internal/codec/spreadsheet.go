package codec

// spreadsheet.go implements the workbook codec on top of excelize.
//
// Decode reads the first sheet only and takes cell values as formatted
// display strings, sidestepping locale ambiguity in numeric and date
// cells. Encode writes the primary data sheet plus an optional
// "Export Info" sheet carrying the traceability metadata. Cell styling
// is deliberately minimal: column widths only.

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	dataSheet  = "Fonduri"
	infoSheet  = "Export Info"
	statsSheet = "Statistici"
)

type spreadsheetCodec struct{}

func (c *spreadsheetCodec) Decode(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	if len(rows) == 1 {
		return nil, fmt.Errorf("workbook has no data rows")
	}

	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

func (c *spreadsheetCodec) Encode(w io.Writer, table *Table, meta *Metadata) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeSheet(f, dataSheet, table.Headers, table.Rows); err != nil {
		return err
	}

	for i, width := range table.Widths {
		if width <= 0 {
			continue
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(dataSheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if meta != nil {
		if _, err := f.NewSheet(infoSheet); err != nil {
			return fmt.Errorf("create info sheet: %w", err)
		}
		infoRows := [][]string{
			{"Generated at", meta.ExportedAt.Format("2006-01-02 15:04:05")},
			{"Record count", fmt.Sprintf("%d", meta.RecordCount)},
		}
		for _, field := range meta.Fields {
			infoRows = append(infoRows, []string{"Field", field})
		}
		if err := writeSheet(f, infoSheet, []string{"Property", "Value"}, infoRows); err != nil {
			return err
		}

		if meta.Statistics != nil {
			if _, err := f.NewSheet(statsSheet); err != nil {
				return fmt.Errorf("create statistics sheet: %w", err)
			}
			if err := writeSheet(f, statsSheet, meta.Statistics.Headers, meta.Statistics.Rows); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeSheet fills a sheet with a header row followed by data rows.
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("set header cell: %w", err)
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("set cell: %w", err)
			}
		}
	}
	return nil
}
