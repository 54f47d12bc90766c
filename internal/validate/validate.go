// Package validate applies field-level rules to normalized fund records
// and computes per-batch statistics.
//
// Validation never throws away work on the first violation: every check
// appends to the issue list, so a single pass over a batch surfaces all
// problems in every row. Errors block the commit of their row; warnings
// are advisory and the row stays eligible.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/arhivare/fondio/internal/dedupe"
	"github.com/arhivare/fondio/internal/fond"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, anchored to its source row with a
// snapshot of the offending record so callers can reconstruct what in
// the source file caused it.
type Issue struct {
	Row      int               `json:"row"` // 1-based data row number
	Field    string            `json:"field,omitempty"`
	Message  string            `json:"message"`
	Severity Severity          `json:"severity"`
	Record   fond.ImportRecord `json:"record"`
}

// Stats summarizes a validated batch. DuplicateRows is filled in by the
// pipeline after the cross-check against the record store; the validator
// only sees the batch.
type Stats struct {
	TotalRows     int `json:"total_rows"`
	ValidRows     int `json:"valid_rows"`
	ErrorRows     int `json:"error_rows"`
	DuplicateRows int `json:"duplicate_rows"`
}

// Result is the outcome of validating a batch.
type Result struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
	Stats    Stats   `json:"stats"`
}

// Row is one record paired with its source row number. Row numbers are
// carried explicitly because structurally empty rows have already been
// dropped and the remaining numbering is not contiguous.
type Row struct {
	Num    int
	Record fond.ImportRecord
}

const (
	minNameLen = 2
	maxNameLen = 255
)

var (
	// Simple mailbox pattern, same shape the original API schema enforces.
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	// Permissive phone pattern: digits, spaces, +, parentheses, hyphens,
	// dots; 7-20 characters overall, the leading + included in the count.
	phoneRegex = regexp.MustCompile(`^(\+[0-9][0-9 ().\-]{4,17}[0-9)]|[0-9][0-9 ().\-]{5,18}[0-9)])$`)
)

// Batch validates a set of rows and returns all errors, warnings and
// batch statistics.
func Batch(rows []Row) *Result {
	res := &Result{}
	errorRows := make(map[int]bool)

	for _, row := range rows {
		issues := record(row.Num, row.Record)
		for _, is := range issues {
			if is.Severity == SeverityError {
				res.Errors = append(res.Errors, is)
				errorRows[is.Row] = true
			} else {
				res.Warnings = append(res.Warnings, is)
			}
		}
	}

	res.Warnings = append(res.Warnings, intraBatchDuplicates(rows)...)

	res.Stats.TotalRows = len(rows)
	res.Stats.ErrorRows = len(errorRows)
	res.Stats.ValidRows = res.Stats.TotalRows - res.Stats.ErrorRows
	return res
}

// record applies the field-level rules to one record.
func record(row int, rec fond.ImportRecord) []Issue {
	var issues []Issue

	add := func(field, msg string, sev Severity) {
		issues = append(issues, Issue{Row: row, Field: field, Message: msg, Severity: sev, Record: rec})
	}

	if n := len([]rune(rec.CompanyName)); n < minNameLen || n > maxNameLen {
		add("company_name", fmt.Sprintf("length must be between %d and %d characters", minNameLen, maxNameLen), SeverityError)
	}
	if n := len([]rune(rec.HolderName)); n < minNameLen || n > maxNameLen {
		add("holder_name", fmt.Sprintf("length must be between %d and %d characters", minNameLen, maxNameLen), SeverityError)
	}

	if rec.Email != nil && !emailRegex.MatchString(*rec.Email) {
		add("email", fmt.Sprintf("invalid email address: %q", *rec.Email), SeverityError)
	}

	if rec.SourceURL != nil {
		if u, err := url.Parse(*rec.SourceURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			add("source_url", fmt.Sprintf("invalid URL: %q", *rec.SourceURL), SeverityError)
		}
	}

	if rec.Phone != nil && !phoneRegex.MatchString(*rec.Phone) {
		add("phone", fmt.Sprintf("invalid phone number: %q", *rec.Phone), SeverityError)
	}

	if rec.Address == nil {
		add("address", "address is missing", SeverityWarning)
	}
	if rec.Email == nil && rec.Phone == nil {
		add("", "no contact information (email or phone)", SeverityWarning)
	}

	return issues
}

// intraBatchDuplicates finds rows sharing a normalized (company, holder)
// pair. One pass builds the key map; every involved row gets a finding
// citing all offending row numbers, not just the later occurrences.
func intraBatchDuplicates(rows []Row) []Issue {
	byKey := make(map[string][]int)
	recs := make(map[int]fond.ImportRecord, len(rows))

	for _, row := range rows {
		key := dedupe.NormalizeName(row.Record.CompanyName) + "\x00" + dedupe.NormalizeName(row.Record.HolderName)
		byKey[key] = append(byKey[key], row.Num)
		recs[row.Num] = row.Record
	}

	var issues []Issue
	for _, nums := range byKey {
		if len(nums) < 2 {
			continue
		}
		sort.Ints(nums)
		parts := make([]string, len(nums))
		for i, n := range nums {
			parts[i] = fmt.Sprintf("%d", n)
		}
		msg := fmt.Sprintf("duplicate company and holder within the file at rows %s", strings.Join(parts, ", "))
		for _, n := range nums {
			issues = append(issues, Issue{
				Row:      n,
				Field:    "company_name",
				Message:  msg,
				Severity: SeverityWarning,
				Record:   recs[n],
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Row < issues[j].Row })
	return issues
}
