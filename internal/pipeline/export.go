package pipeline

import (
	"context"
	"fmt"

	"github.com/arhivare/fondio/internal/export"
	"github.com/arhivare/fondio/internal/store"
)

// StartExport begins an asynchronous export and returns its job id.
// Collect the artifact with ArtifactOf.
//
// Small exports could run synchronously, but sharing the job machinery
// gives them the same progress stream, cancellation and retention as
// imports.
func (s *Service) StartExport(req export.Request) string {
	return s.launch(kindExport, "", StageGenerating, func(ctx context.Context, job *activeJob) {
		s.runExport(ctx, job, req)
	})
}

func (s *Service) runExport(ctx context.Context, job *activeJob, req export.Request) {
	fail := func(err error) {
		job.update(func(p *Progress) {
			p.Stage = StageError
			p.Error = err.Error()
		})
		s.log.Error("export failed", "job_id", job.ID, "error", err)
	}

	job.update(func(p *Progress) { p.Stage = StageGenerating })

	// Fetch everything; Compose applies the request's filters so every
	// store backend exports identically.
	records, err := s.store.List(ctx, store.ListFilters{})
	if err != nil {
		fail(fmt.Errorf("fetch records: %w", err))
		return
	}

	if ctx.Err() != nil {
		job.update(func(p *Progress) {
			p.Stage = StageError
			p.Error = "export cancelled"
		})
		return
	}

	job.update(func(p *Progress) { p.Total = len(records) })

	artifact, err := export.Compose(records, req)
	if err != nil {
		fail(err)
		return
	}
	job.artifact = artifact

	job.update(func(p *Progress) {
		p.Stage = StageComplete
		p.Processed = len(records)
		p.Message = fmt.Sprintf("%s: %d records, %d bytes", artifact.Filename, artifact.RecordCount, artifact.FileSize)
	})
	s.log.Info("export complete",
		"job_id", job.ID,
		"filename", artifact.Filename,
		"records", artifact.RecordCount,
		"bytes", artifact.FileSize,
	)
}
