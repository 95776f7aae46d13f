package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobGenerateTitle  JobKind = "generate-title"
	JobRefreshSummary JobKind = "refresh-summary"
)

type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// BackgroundJob records one detached task (title generation, project summary
// refresh). Jobs never surface errors to the conversation; failures land in
// the log and in this record.
type BackgroundJob struct {
	ID        string
	Kind      JobKind
	Status    JobStatus
	StartedAt time.Time
	EndedAt   time.Time
	Err       string
}

const defaultJobTimeout = 60 * time.Second

// JobRunner launches detached jobs and keeps a bounded in-memory record of
// recent ones.
type JobRunner struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	log    *Logger
	recent []BackgroundJob
	keep   int
}

func NewJobRunner(log *Logger) *JobRunner {
	return &JobRunner{log: log, keep: 32}
}

// Run starts fn detached. The job gets its own context; callers return
// immediately and must not depend on the outcome.
func (r *JobRunner) Run(kind JobKind, fn func(ctx context.Context) error) {
	job := BackgroundJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    JobRunning,
		StartedAt: time.Now().UTC(),
	}
	r.record(job)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
		defer cancel()

		err := fn(ctx)
		job.EndedAt = time.Now().UTC()
		if err != nil {
			job.Status = JobFailed
			job.Err = err.Error()
			if r.log != nil {
				r.log.Error("background job failed", map[string]interface{}{
					"kind": string(kind),
					"err":  err.Error(),
				})
			}
		} else {
			job.Status = JobDone
		}
		r.record(job)
	}()
}

// Wait blocks until all launched jobs finished. Tests use it to join the
// detached work; the TUI never calls it.
func (r *JobRunner) Wait() {
	r.wg.Wait()
}

// Recent returns the most recent job records, newest first.
func (r *JobRunner) Recent(n int) []BackgroundJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BackgroundJob, 0, n)
	for i := len(r.recent) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.recent[i])
	}
	return out
}

func (r *JobRunner) record(job BackgroundJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.recent {
		if r.recent[i].ID == job.ID {
			r.recent[i] = job
			return
		}
	}
	r.recent = append(r.recent, job)
	if len(r.recent) > r.keep {
		r.recent = r.recent[len(r.recent)-r.keep:]
	}
}
