// Package queue provides the in-process background job queue: typed units
// of work executed serially by a single worker, with status lookup by job
// identifier and retention of terminal jobs for a grace period.
//
// The queue has no persistence. A process restart loses all pending and
// in-flight jobs; identifiers are only valid within one process run.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of work a job carries.
type Type string

const (
	TypeIndexing      Type = "indexing"
	TypeTranscription Type = "transcription"
)

// Status is the lifecycle state of a job. Transitions are monotonic:
// pending -> processing -> completed | failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Payload is the closed set of job payloads.
type Payload interface {
	jobType() Type
}

// IndexingPayload asks for a project's repository to be (re)indexed.
type IndexingPayload struct {
	ProjectID string `json:"project_id"`
	RepoURL   string `json:"repo_url"`
}

func (IndexingPayload) jobType() Type { return TypeIndexing }

// TranscriptionPayload asks for one uploaded recording to be transcribed.
type TranscriptionPayload struct {
	MeetingID string `json:"meeting_id"`
	AudioPath string `json:"audio_path"`
	ProjectID string `json:"project_id"`
}

func (TranscriptionPayload) jobType() Type { return TypeTranscription }

// Job is one asynchronous unit of work.
type Job struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Status      Status     `json:"status"`
	Payload     Payload    `json:"-"`
	Error       string     `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsDone reports whether the job reached a terminal state.
func (j *Job) IsDone() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Handler executes the pipeline for one job type. A returned error marks
// the job failed; it never aborts other queued jobs.
type Handler func(ctx context.Context, job Job) error

// Service owns the pending list and the active-job table. Enqueue is safe
// under concurrent callers; job bodies execute one at a time in FIFO order
// on a single worker goroutine.
type Service struct {
	mu       sync.Mutex
	pending  []*Job
	active   map[string]*Job
	running  bool
	handlers map[Type]Handler

	retention time.Duration
}

// New creates a queue service. Terminal jobs remain queryable for the
// retention window, then disappear from status lookups.
func New(retention time.Duration) *Service {
	return &Service{
		active:    make(map[string]*Job),
		handlers:  make(map[Type]Handler),
		retention: retention,
	}
}

// Register installs the handler for a job type. Must be called before any
// job of that type is enqueued.
func (s *Service) Register(t Type, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[t] = h
}

// Enqueue appends a job to the pending list and wakes the worker if it is
// idle. It never blocks on the job's execution and never fails: a
// malformed payload surfaces as a job failure, not an enqueue-time error.
func (s *Service) Enqueue(payload Payload) string {
	job := &Job{
		ID:         newJobID(payload.jobType()),
		Type:       payload.jobType(),
		Status:     StatusPending,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}

	s.mu.Lock()
	s.pending = append(s.pending, job)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	slog.Info("job queued", "job_id", job.ID, "type", job.Type)

	if start {
		go s.run()
	}

	return job.ID
}

// Status looks up a job by identifier: the active-job table first, then
// the pending list. Returns false once a job has passed its retention
// window (or never existed).
func (s *Service) Status(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.active[id]; ok {
		return *job, true
	}
	for _, job := range s.pending {
		if job.ID == id {
			return *job, true
		}
	}
	return Job{}, false
}

// run drains the pending list. Exactly one run goroutine exists at a time;
// it exits when the list is empty and is restarted by the next enqueue.
func (s *Service) run() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		job := s.pending[0]
		s.pending = s.pending[1:]
		job.Status = StatusProcessing
		s.active[job.ID] = job
		handler := s.handlers[job.Type]
		s.mu.Unlock()

		slog.Info("job processing", "job_id", job.ID, "type", job.Type)

		err := s.dispatch(job, handler)

		s.mu.Lock()
		now := time.Now()
		job.CompletedAt = &now
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = StatusCompleted
		}
		s.mu.Unlock()

		if err != nil {
			slog.Error("job failed", "job_id", job.ID, "error", err)
		} else {
			slog.Info("job completed", "job_id", job.ID)
		}

		// Keep the terminal record queryable for the retention window so
		// pollers can observe the final status.
		s.scheduleEviction(job.ID)
	}
}

// dispatch runs the handler, converting panics and missing handlers into
// ordinary job failures so the worker loop survives.
func (s *Service) dispatch(job *Job, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "job_id", job.ID, "panic", r)
			err = fmt.Errorf("internal panic: %v", r)
		}
	}()

	if handler == nil {
		return fmt.Errorf("no handler registered for job type %q", job.Type)
	}
	return handler(context.Background(), *job)
}

func (s *Service) scheduleEviction(id string) {
	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	})
}

// newJobID builds a collision-resistant identifier from the job type, the
// enqueue timestamp and a random component.
func newJobID(t Type) string {
	return fmt.Sprintf("%s-%d-%s", t, time.Now().UnixMilli(), uuid.NewString()[:8])
}
