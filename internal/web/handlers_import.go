package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/codec"
	"github.com/arhivare/fondio/internal/logging"
	"github.com/arhivare/fondio/internal/pipeline"
)

// handleStartImport accepts a multipart upload and starts an import
// job. The response carries the job id; progress arrives over the
// events stream.
//
// Form fields: file (required), format (optional, inferred from the
// file extension when absent), dry_run, skip_duplicates, owner_id.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.cfg.Import.MaxFileSize))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	formatName := r.FormValue("format")
	if formatName == "" {
		formatName = filepath.Ext(header.Filename)
	}
	format, err := codec.ParseFormat(formatName)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	opts := pipeline.ImportOptions{
		Format:         format,
		FileName:       header.Filename,
		DryRun:         r.FormValue("dry_run") == "true",
		SkipDuplicates: r.FormValue("skip_duplicates") == "true",
		DefaultActive:  s.cfg.Import.DefaultActive,
	}
	if owner := r.FormValue("owner_id"); owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid owner_id")
			return
		}
		opts.OwnerID = id
	}

	jobID, err := s.service.StartImport(data, opts)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("import started",
		"job_id", jobID,
		"file", header.Filename,
		"format", string(format),
		"dry_run", opts.DryRun,
	)

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"job_id": jobID})
}

// handleImportEvents streams job progress as server-sent events. The
// stream ends with a terminal snapshot followed by a complete event.
func (s *Server) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	progressCh, err := s.service.Subscribe(jobID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventID := 0
	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			eventID++
			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", eventID, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleImportProgress returns the current snapshot without blocking.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	progress, err := s.service.ProgressOf(jobID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, progress)
}

// handleImportResult blocks until the job finishes, then returns the
// full accounting including row-level findings.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	result, err := s.service.ImportResultOf(r.Context(), jobID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, result)
}

// handleCancelJob requests cancellation. Rows already committed stay
// committed; the result reports how far the job got.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := s.service.Cancel(jobID); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "cancelling"})
}
