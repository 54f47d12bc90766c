package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/catalog"
	"github.com/arhivare/fondio/internal/codec"
	"github.com/arhivare/fondio/internal/export"
	"github.com/arhivare/fondio/internal/logging"
	"github.com/arhivare/fondio/internal/store"
)

// handleExport runs a query-driven export and streams the artifact as a
// download. The export runs as a job so it shares cancellation and
// timeout handling with imports; this handler just waits for it.
//
// Query parameters: format, template, role, fields (comma-separated),
// status (active|inactive|all), q, from, to (YYYY-MM-DD), owner_id,
// sort (field or field:desc, comma-separated), stats (true).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := s.exportRequest(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	jobID := s.service.StartExport(req)
	artifact, err := s.service.ArtifactOf(r.Context(), jobID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("export served",
		"job_id", jobID,
		"filename", artifact.Filename,
		"records", artifact.RecordCount,
		"bytes", artifact.FileSize,
	)

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", artifact.FileSize))
	_, _ = w.Write(artifact.Bytes)
}

func (s *Server) exportRequest(r *http.Request) (export.Request, error) {
	q := r.URL.Query()

	req := export.Request{
		TemplateID:        q.Get("template"),
		Role:              q.Get("role"),
		Query:             q.Get("q"),
		IncludeStatistics: q.Get("stats") == "true",
		BOM:               s.cfg.Export.CSVBom,
	}

	formatName := q.Get("format")
	if formatName == "" {
		formatName = "csv"
		if tpl, ok := catalog.TemplateByID(req.TemplateID, req.Role); ok {
			formatName = tpl.Format
		}
	}
	format, err := codec.ParseFormat(formatName)
	if err != nil {
		return export.Request{}, err
	}
	req.Format = format

	// An absent status stays unset so a template's default status can
	// apply; "all" explicitly overrides a template default.
	switch q.Get("status") {
	case "":
	case "all":
		req.Status = store.StatusAll
	case "active":
		req.Status = store.StatusActive
	case "inactive":
		req.Status = store.StatusInactive
	default:
		return export.Request{}, fmt.Errorf("invalid status: %q", q.Get("status"))
	}

	if fields := q.Get("fields"); fields != "" {
		req.Fields = strings.Split(fields, ",")
	}

	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return export.Request{}, fmt.Errorf("invalid from date: %q", from)
		}
		req.CreatedFrom = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return export.Request{}, fmt.Errorf("invalid to date: %q", to)
		}
		// Inclusive end of day.
		t = t.Add(24*time.Hour - time.Nanosecond)
		req.CreatedTo = &t
	}

	if owner := q.Get("owner_id"); owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			return export.Request{}, fmt.Errorf("invalid owner_id")
		}
		req.OwnerID = &id
	}

	for _, part := range strings.Split(q.Get("sort"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := export.SortKey{Field: part}
		if field, dir, ok := strings.Cut(part, ":"); ok {
			key.Field = field
			key.Desc = dir == "desc"
		}
		req.Sort = append(req.Sort, key)
	}

	return req, nil
}

// handleExportTemplates lists the export presets visible to a role.
func (s *Server) handleExportTemplates(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		writeError(w, r, http.StatusBadRequest, "missing role parameter")
		return
	}
	writeJSON(w, catalog.TemplatesFor(role))
}

// handleImportTemplate serves the canonical CSV template with sample
// rows for users preparing an import file.
func (s *Server) handleImportTemplate(w http.ResponseWriter, r *http.Request) {
	data := catalog.ImportTemplateCSV()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="model_import_fonduri.csv"`)
	_, _ = w.Write(data)
}
