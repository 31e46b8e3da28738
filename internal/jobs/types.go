// Package jobs defines the asynchronous ingestion job model and the
// queue abstractions it travels through. The interfaces keep the API and
// worker binaries independent of the queue implementation.
package jobs

import (
	"context"
	"time"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

// JobType discriminates job payloads on a shared queue.
type JobType string

// JobTypeProcessUpload is the only job type today: ingest one uploaded
// statement end to end.
const JobTypeProcessUpload JobType = "process_upload"

// JobStatus is the lifecycle state of a job. Pending jobs sit in the
// queue, running jobs are with a worker, and retrying jobs are waiting
// out a backoff before going back to pending.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ProcessUploadJob carries everything a worker needs to ingest one
// uploaded statement, plus the bookkeeping the job store tracks across
// attempts.
type ProcessUploadJob struct {
	JobID string `json:"job_id"`

	// Upload coordinates. ObjectPath is either a bare object path in the
	// configured bucket or a full gs:// URI.
	UploadID   string `json:"upload_id"`
	UserID     string `json:"user_id"`
	ObjectPath string `json:"object_path"`

	// Filename picks the parser; MonthHint (YYYY-MM) dates rows whose
	// lines carry no usable date.
	Filename  string `json:"filename,omitempty"`
	MonthHint string `json:"month_hint,omitempty"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the handler's message when the last attempt failed.
	Error string `json:"error,omitempty"`

	// Summary holds the ingestion counts once the job has run.
	Summary *domain.Summary `json:"summary,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the minimal view a queue needs of any job payload.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ProcessUploadJob) GetID() string        { return j.JobID }
func (j *ProcessUploadJob) GetType() JobType     { return JobTypeProcessUpload }
func (j *ProcessUploadJob) GetStatus() JobStatus { return j.Status }

// JobHandler processes one job. A returned error marks the attempt failed
// and, below the retry limit, schedules another.
type JobHandler func(ctx context.Context, job Job) error

// Publisher enqueues jobs. Implementations range from the in-memory
// channel queue to Cloud Tasks or Pub/Sub.
type Publisher interface {
	PublishProcessUpload(ctx context.Context, job *ProcessUploadJob) error
	Close() error
}

// Consumer runs a handler over published jobs until stopped. Stop waits
// for in-flight jobs before returning.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobStore records job state so status outlives the queue's channels and
// can be served over the API.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessUploadJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessUploadJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessUploadJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs. Zero values match everything; Limit and
// Offset paginate the newest-first result.
type JobFilter struct {
	UploadID string
	UserID   string
	Status   JobStatus
	Limit    int
	Offset   int
}
