package scheduler

import (
	"time"

	"github.com/google/uuid"
	"github.com/sellerops/console/internal/domain/marketplace"
)

// JobKind selects what a job does.
type JobKind string

const (
	JobKindSync      JobKind = "SYNC"
	JobKindStockPush JobKind = "STOCK_PUSH"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusSkipped JobStatus = "SKIPPED"
	JobStatusFailed  JobStatus = "FAILED"
)

// maxRetryDelay caps the exponential retry delay.
const maxRetryDelay = 30 * time.Minute

// Job is one scheduled sync or stock push for one marketplace.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	Marketplace marketplace.Marketplace
	Status      JobStatus
	Error       string
	Summary     string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

// NewJob creates a new pending job
func NewJob(kind JobKind, m marketplace.Marketplace, maxRetries int) *Job {
	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		Marketplace: m,
		Status:      JobStatusPending,
		MaxRetries:  maxRetries,
	}
}

// Key identifies the job's lane; one job per key is in flight at a time.
func (j *Job) Key() string {
	return string(j.Kind) + ":" + string(j.Marketplace)
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as finished; partial runs are not retried.
func (j *Job) Complete(partial bool, summary string) {
	now := time.Now()
	j.CompletedAt = &now
	j.Summary = summary
	if partial {
		j.Status = JobStatusPartial
	} else {
		j.Status = JobStatusSuccess
	}
}

// Skip marks a job that found its lane busy in another process.
func (j *Job) Skip(reason string) {
	now := time.Now()
	j.CompletedAt = &now
	j.Status = JobStatusSkipped
	j.Summary = reason
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff and
// returns the delay.
func (j *Job) ScheduleRetry(baseDelay time.Duration) time.Duration {
	j.RetryCount++
	j.Status = JobStatusPending
	delay := baseDelay << (j.RetryCount - 1)
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
	return delay
}
