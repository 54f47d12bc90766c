package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arhivare/fondio/internal/fond"
)

// ErrEmptyRow marks a row whose every cell is blank after trimming.
// Such rows are excluded from the batch rather than reported: trailing
// blank spreadsheet rows must not fail an import.
var ErrEmptyRow = errors.New("empty row")

// RowError is a normalization failure for one source row.
type RowError struct {
	Row   int    // 1-based data row number
	Field string // canonical field key
	Msg   string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Msg)
}

// Defaults supplies caller-controlled fallbacks for normalization.
type Defaults struct {
	// Active is used when the active cell is blank or unrecognized.
	Active bool
}

// Record converts one raw row, keyed by canonical field key, into an
// ImportRecord. Cells under unknown keys are ignored. Returns ErrEmptyRow
// for structurally empty rows and *RowError when a required field is
// missing or empty after trimming.
func Record(cells map[string]string, row int, defaults Defaults) (fond.ImportRecord, error) {
	empty := true
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			empty = false
			break
		}
	}
	if empty {
		return fond.ImportRecord{}, ErrEmptyRow
	}

	company := strings.TrimSpace(cells["company_name"])
	if company == "" {
		return fond.ImportRecord{}, &RowError{Row: row, Field: "company_name", Msg: "required field is empty"}
	}
	holder := strings.TrimSpace(cells["holder_name"])
	if holder == "" {
		return fond.ImportRecord{}, &RowError{Row: row, Field: "holder_name", Msg: "required field is empty"}
	}

	return fond.ImportRecord{
		CompanyName: company,
		HolderName:  holder,
		Address:     fond.OptString(cells["address"]),
		Email:       fond.OptString(cells["email"]),
		Phone:       fond.OptString(cells["phone"]),
		Notes:       fond.OptString(cells["notes"]),
		SourceURL:   fond.OptString(cells["source_url"]),
		Active:      fond.ParseActive(cells["active"], defaults.Active),
	}, nil
}

// Row zips a header row (already passed through Header) with one row of
// cells into the map Record consumes. Cells beyond the header width are
// dropped; missing trailing cells read as empty.
func Row(headers []string, cells []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(cells) {
			m[h] = cells[i]
		} else {
			m[h] = ""
		}
	}
	return m
}
