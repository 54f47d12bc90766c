// Package pipeline runs asynchronous import and export jobs. A job is
// started, observed through a progress subscription, optionally
// cancelled, and its result collected after the Done channel closes.
// Finished jobs linger for a retention window so late readers can still
// fetch the result.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/export"
	"github.com/arhivare/fondio/internal/store"
)

// Stage is the coarse phase a job is in.
type Stage string

const (
	StageParsing    Stage = "parsing"
	StageValidating Stage = "validating"
	StageImporting  Stage = "importing"
	StageGenerating Stage = "generating"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// Terminal reports whether no further progress will follow. A cancelled
// job terminates in StageError with a cancellation message; the result
// distinguishes cancellation from failure.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Progress is a point-in-time snapshot of a running job.
type Progress struct {
	JobID     string `json:"job_id"`
	Stage     Stage  `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
	// EstimatedSecondsRemaining is 0 until enough rows have been
	// processed to observe a throughput.
	EstimatedSecondsRemaining int    `json:"estimated_seconds_remaining,omitempty"`
	Error                     string `json:"error,omitempty"`
}

// Config tunes job execution. Zero values fall back to defaults.
type Config struct {
	JobTimeout time.Duration
	// Retention is how long finished jobs stay queryable.
	Retention time.Duration
	// BatchSize is the row interval between cancellation checks and
	// progress notifications.
	BatchSize int
	// SoftThreshold and HardThreshold tune the duplicate detector.
	SoftThreshold float64
	HardThreshold float64
}

func (c *Config) applyDefaults() {
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.SoftThreshold <= 0 {
		c.SoftThreshold = 0.6
	}
	if c.HardThreshold <= 0 {
		c.HardThreshold = 0.8
	}
}

// Service owns all running and recently finished jobs.
type Service struct {
	store store.Store
	cfg   Config
	log   *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*activeJob
}

type jobKind string

const (
	kindImport jobKind = "import"
	kindExport jobKind = "export"
)

type activeJob struct {
	ID       string
	Kind     jobKind
	FileName string
	Cancel   context.CancelFunc
	Done     chan struct{}

	progressMu sync.RWMutex
	progress   Progress

	listenerMu sync.Mutex
	listeners  []chan Progress

	importResult *ImportResult
	artifact     *export.Artifact
	started      time.Time
}

// NewService creates a job service over a record store.
func NewService(st store.Store, cfg Config, log *slog.Logger) *Service {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store: st,
		cfg:   cfg,
		log:   log,
		jobs:  make(map[string]*activeJob),
	}
}

// Subscribe returns a channel receiving progress snapshots for a job,
// starting with the current one. The channel closes when the job ends.
// Slow subscribers miss intermediate snapshots, never the terminal one.
func (s *Service) Subscribe(jobID string) (<-chan Progress, error) {
	job, err := s.job(jobID)
	if err != nil {
		return nil, err
	}

	ch := make(chan Progress, 10)

	job.listenerMu.Lock()
	select {
	case <-job.Done:
		// Already finished: deliver the final snapshot and close.
		ch <- job.snapshot()
		close(ch)
	default:
		job.listeners = append(job.listeners, ch)
		select {
		case ch <- job.snapshot():
		default:
		}
	}
	job.listenerMu.Unlock()

	return ch, nil
}

// Cancel requests cancellation of a running job. Rows committed before
// the cancellation point stay committed.
func (s *Service) Cancel(jobID string) error {
	job, err := s.job(jobID)
	if err != nil {
		return err
	}
	job.Cancel()
	return nil
}

// ProgressOf returns the current snapshot without blocking.
func (s *Service) ProgressOf(jobID string) (Progress, error) {
	job, err := s.job(jobID)
	if err != nil {
		return Progress{}, err
	}
	return job.snapshot(), nil
}

// ImportResultOf blocks until the import job finishes, then returns its
// result.
func (s *Service) ImportResultOf(ctx context.Context, jobID string) (*ImportResult, error) {
	job, err := s.job(jobID)
	if err != nil {
		return nil, err
	}
	if job.Kind != kindImport {
		return nil, fmt.Errorf("job %s is not an import", jobID)
	}
	select {
	case <-job.Done:
		return job.importResult, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ArtifactOf blocks until the export job finishes, then returns its
// artifact. A cancelled or failed export returns an error carried in
// the job's terminal progress.
func (s *Service) ArtifactOf(ctx context.Context, jobID string) (*export.Artifact, error) {
	job, err := s.job(jobID)
	if err != nil {
		return nil, err
	}
	if job.Kind != kindExport {
		return nil, fmt.Errorf("job %s is not an export", jobID)
	}
	select {
	case <-job.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if job.artifact == nil {
		p := job.snapshot()
		if p.Error != "" {
			return nil, fmt.Errorf("export failed: %s", p.Error)
		}
		return nil, fmt.Errorf("export produced no artifact")
	}
	return job.artifact, nil
}

func (s *Service) job(jobID string) (*activeJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// launch registers a job and runs fn in a goroutine with panic
// recovery. fn owns progress updates; launch owns the terminal
// bookkeeping.
func (s *Service) launch(kind jobKind, fileName string, first Stage, fn func(ctx context.Context, job *activeJob)) string {
	jobID := uuid.New().String()
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)

	job := &activeJob{
		ID:       jobID,
		Kind:     kind,
		FileName: fileName,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		started:  time.Now(),
		progress: Progress{JobID: jobID, Stage: first},
	}

	s.mu.Lock()
	s.jobs[jobID] = job
	s.mu.Unlock()

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in job",
					"job_id", jobID,
					"kind", string(kind),
					"panic", r,
				)
				job.update(func(p *Progress) {
					p.Stage = StageError
					p.Error = fmt.Sprintf("internal error: %v", r)
				})
			}
			// Done closes before the listener channels so a subscriber
			// arriving in between still lands in one of the two paths.
			close(job.Done)
			job.closeListeners()
			s.cleanup(jobID, s.cfg.Retention)
		}()
		fn(ctx, job)
	}()

	return jobID
}

// cleanup removes a finished job after the retention delay.
func (s *Service) cleanup(jobID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
	})
}

func (j *activeJob) snapshot() Progress {
	j.progressMu.RLock()
	defer j.progressMu.RUnlock()
	return j.progress
}

// update mutates the progress snapshot and notifies listeners.
func (j *activeJob) update(fn func(*Progress)) {
	j.progressMu.Lock()
	fn(&j.progress)
	p := j.progress
	j.progressMu.Unlock()

	j.listenerMu.Lock()
	for _, ch := range j.listeners {
		select {
		case ch <- p:
		default:
			// Listener is not keeping up; it will get the next snapshot.
		}
	}
	j.listenerMu.Unlock()
}

func (j *activeJob) closeListeners() {
	// The terminal snapshot must reach every listener, so drain one slot
	// if the buffer is full before sending it.
	final := j.snapshot()
	j.listenerMu.Lock()
	for _, ch := range j.listeners {
		select {
		case ch <- final:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- final
		}
		close(ch)
	}
	j.listeners = nil
	j.listenerMu.Unlock()
}

// eta estimates remaining seconds from observed throughput. No estimate
// before 10% of the rows are processed.
func (j *activeJob) eta(processed, total int) int {
	if total == 0 || processed*10 < total {
		return 0
	}
	elapsed := time.Since(j.started).Seconds()
	if elapsed <= 0 || processed == 0 {
		return 0
	}
	rate := float64(processed) / elapsed
	return int(float64(total-processed) / rate)
}
