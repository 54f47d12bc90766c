package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/codec"
	"github.com/arhivare/fondio/internal/dedupe"
	"github.com/arhivare/fondio/internal/normalize"
	"github.com/arhivare/fondio/internal/validate"
)

// ImportOptions configures one import job.
type ImportOptions struct {
	Format   codec.FormatKind
	FileName string
	// DryRun runs parsing and validation but commits nothing.
	DryRun bool
	// SkipDuplicates blocks rows whose company name scores at or above
	// the hard duplicate threshold against an existing record.
	SkipDuplicates bool
	// DefaultActive is the active flag for rows that leave it blank.
	DefaultActive bool
	// OwnerID is assigned to every created record; uuid.Nil leaves the
	// record unowned.
	OwnerID uuid.UUID
}

// ImportResult is the final accounting of an import job.
type ImportResult struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
	DryRun   bool   `json:"dry_run"`
	// TotalRows counts source data rows, empty rows excluded.
	TotalRows int `json:"total_rows"`
	// Imported counts rows actually persisted. Always 0 on a dry run.
	Imported int `json:"imported"`
	// WouldImport counts rows that passed every check; on a real run it
	// equals Imported plus rows lost to persistence errors.
	WouldImport int              `json:"would_import"`
	Skipped     int              `json:"skipped"`
	Errors      []validate.Issue `json:"errors,omitempty"`
	Warnings    []validate.Issue `json:"warnings,omitempty"`
	Cancelled   bool             `json:"cancelled,omitempty"`
	// Error is set only when the whole job failed before any row could
	// be considered.
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// StartImport begins an asynchronous import and returns its job id
// immediately. Observe it with Subscribe, collect it with
// ImportResultOf.
func (s *Service) StartImport(data []byte, opts ImportOptions) (string, error) {
	c, err := codec.For(opts.Format, codec.Options{})
	if err != nil {
		return "", err
	}

	jobID := s.launch(kindImport, opts.FileName, StageParsing, func(ctx context.Context, job *activeJob) {
		s.runImport(ctx, job, c, data, opts)
	})
	return jobID, nil
}

func (s *Service) runImport(ctx context.Context, job *activeJob, c codec.Codec, data []byte, opts ImportOptions) {
	started := time.Now()
	result := &ImportResult{
		JobID:    job.ID,
		FileName: opts.FileName,
		DryRun:   opts.DryRun,
	}
	job.importResult = result

	fail := func(err error) {
		result.Error = err.Error()
		result.Duration = time.Since(started)
		job.update(func(p *Progress) {
			p.Stage = StageError
			p.Error = result.Error
		})
		s.log.Error("import failed", "job_id", job.ID, "file", opts.FileName, "error", err)
	}

	job.update(func(p *Progress) { p.Stage = StageParsing })

	table, err := c.Decode(bytes.NewReader(data))
	if err != nil {
		fail(fmt.Errorf("parse %s: %w", opts.Format, err))
		return
	}
	if len(table.Headers) == 0 {
		result.Duration = time.Since(started)
		job.update(func(p *Progress) {
			p.Stage = StageComplete
			p.Message = "empty file, nothing to import"
		})
		return
	}

	headers := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		headers[i] = normalize.Header(h)
	}

	rows, normIssues := normalizeRows(headers, table.Rows, opts)
	result.TotalRows = len(rows) + len(normIssues)
	result.Errors = append(result.Errors, normIssues...)

	job.update(func(p *Progress) {
		p.Stage = StageValidating
		p.Total = result.TotalRows
	})

	res := validate.Batch(rows)
	result.Errors = append(result.Errors, res.Errors...)
	result.Warnings = append(result.Warnings, res.Warnings...)

	badRows := make(map[int]bool)
	for _, issue := range res.Errors {
		badRows[issue.Row] = true
	}

	importable := rows[:0]
	for _, row := range rows {
		if !badRows[row.Num] {
			importable = append(importable, row)
		}
	}

	blocked, dupWarnings, err := s.crossCheckDuplicates(ctx, importable, opts)
	if err != nil {
		fail(err)
		return
	}
	result.Warnings = append(result.Warnings, dupWarnings...)

	if opts.DryRun {
		for _, row := range importable {
			if !blocked[row.Num] {
				result.WouldImport++
			}
		}
		result.Skipped = result.TotalRows - result.WouldImport
		result.Errors = sortIssues(result.Errors)
		result.Warnings = sortIssues(result.Warnings)
		result.Duration = time.Since(started)
		job.update(func(p *Progress) {
			p.Stage = StageComplete
			p.Processed = result.TotalRows
			p.Message = fmt.Sprintf("dry run: %d of %d rows would import", result.WouldImport, result.TotalRows)
		})
		return
	}

	job.update(func(p *Progress) {
		p.Stage = StageImporting
		p.Processed = 0
		p.Total = len(importable)
	})

	// Commit row by row. Rows committed before a cancellation or a
	// per-row failure stay committed.
	for i, row := range importable {
		if i%s.cfg.BatchSize == 0 && ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		if blocked[row.Num] {
			continue
		}
		result.WouldImport++

		if _, err := s.store.Create(ctx, row.Record, opts.OwnerID); err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				break
			}
			result.Errors = append(result.Errors, validate.Issue{
				Row:      row.Num,
				Field:    "",
				Message:  fmt.Sprintf("persist: %v", err),
				Severity: validate.SeverityError,
				Record:   row.Record,
			})
			continue
		}
		result.Imported++

		if (i+1)%s.cfg.BatchSize == 0 {
			processed := i + 1
			job.update(func(p *Progress) {
				p.Processed = processed
				p.EstimatedSecondsRemaining = job.eta(processed, len(importable))
			})
		}
	}

	result.Skipped = result.TotalRows - result.Imported
	result.Errors = sortIssues(result.Errors)
	result.Warnings = sortIssues(result.Warnings)
	result.Duration = time.Since(started)

	if result.Cancelled {
		job.update(func(p *Progress) {
			p.Stage = StageError
			p.Error = fmt.Sprintf("cancelled after %d imported rows", result.Imported)
		})
		s.log.Info("import cancelled",
			"job_id", job.ID, "file", opts.FileName, "imported", result.Imported)
		return
	}

	job.update(func(p *Progress) {
		p.Stage = StageComplete
		p.Processed = len(importable)
		p.Message = fmt.Sprintf("%d imported, %d skipped", result.Imported, result.Skipped)
	})
	s.log.Info("import complete",
		"job_id", job.ID,
		"file", opts.FileName,
		"total", result.TotalRows,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
}

// normalizeRows converts raw cells to candidate records. Empty rows are
// dropped silently; rows that fail normalization become error findings.
func normalizeRows(headers []string, raw [][]string, opts ImportOptions) ([]validate.Row, []validate.Issue) {
	defaults := normalize.Defaults{Active: opts.DefaultActive}

	var (
		rows   []validate.Row
		issues []validate.Issue
	)
	for i, cells := range raw {
		rowNum := i + 2 // 1-indexed, after the header row
		if codec.IsEmptyRow(cells) {
			continue
		}

		rec, err := normalize.Record(normalize.Row(headers, cells), rowNum, defaults)
		if err != nil {
			if errors.Is(err, normalize.ErrEmptyRow) {
				continue
			}
			var rowErr *normalize.RowError
			issue := validate.Issue{
				Row:      rowNum,
				Message:  err.Error(),
				Severity: validate.SeverityError,
			}
			if errors.As(err, &rowErr) {
				issue.Field = rowErr.Field
				issue.Message = rowErr.Msg
			}
			issues = append(issues, issue)
			continue
		}
		rows = append(rows, validate.Row{Num: rowNum, Record: rec})
	}
	return rows, issues
}

// crossCheckDuplicates scores each candidate against the existing
// records. Scores in the soft band produce warnings; at or above the
// hard threshold the row is additionally blocked when SkipDuplicates is
// set.
func (s *Service) crossCheckDuplicates(ctx context.Context, rows []validate.Row, opts ImportOptions) (map[int]bool, []validate.Issue, error) {
	if len(rows) == 0 {
		return nil, nil, nil
	}

	index, err := s.store.NameIndex(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load duplicate index: %w", err)
	}
	if len(index) == 0 {
		return nil, nil, nil
	}

	blocked := make(map[int]bool)
	var warnings []validate.Issue

	for _, row := range rows {
		company := dedupe.NormalizeName(row.Record.CompanyName)
		holder := dedupe.NormalizeName(row.Record.HolderName)

		best := 0.0
		for _, e := range index {
			score := dedupe.Similarity(company, e.NormalizedCompany)
			// An identical holder makes a same-company match certain.
			if score >= s.cfg.HardThreshold && holder == e.NormalizedHolder {
				score = 1.0
			}
			if score > best {
				best = score
			}
		}

		if best < s.cfg.SoftThreshold {
			continue
		}

		issue := validate.Issue{
			Row:      row.Num,
			Field:    "company_name",
			Severity: validate.SeverityWarning,
			Record:   row.Record,
		}
		switch {
		case best >= s.cfg.HardThreshold && opts.SkipDuplicates:
			blocked[row.Num] = true
			issue.Message = fmt.Sprintf("skipped: matches an existing record (similarity %.2f)", best)
		case best >= s.cfg.HardThreshold:
			issue.Message = fmt.Sprintf("likely duplicate of an existing record (similarity %.2f)", best)
		default:
			issue.Message = fmt.Sprintf("possible duplicate of an existing record (similarity %.2f)", best)
		}
		warnings = append(warnings, issue)
	}
	return blocked, warnings, nil
}

func sortIssues(issues []validate.Issue) []validate.Issue {
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Row < issues[j].Row })
	return issues
}
