// Package inmemory backs the jobs interfaces with channels and maps for
// single-process deployments. Nothing here survives a restart.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidrdinardo/smart-spend-map/internal/jobs"
)

// DefaultWorkerCount is how many jobs run concurrently when NewQueue is
// given a worker count of zero or less.
const DefaultWorkerCount = 4

const defaultMaxRetries = 3

// Queue distributes ingestion jobs over a buffered channel. One Queue acts
// as both Publisher and Consumer, which is enough for a single instance; a
// multi-instance deployment would put Cloud Tasks or Pub/Sub behind the
// same interfaces.
type Queue struct {
	pending chan *jobs.ProcessUploadJob
	quit    chan struct{}
	workers int
	store   jobs.JobStore

	mu       sync.Mutex
	closed   bool
	inFlight sync.WaitGroup
}

// NewQueue builds a queue that holds up to buffer jobs before publishing
// blocks, served by the given number of workers once Start is called.
func NewQueue(buffer, workers int, store jobs.JobStore) *Queue {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	return &Queue{
		pending: make(chan *jobs.ProcessUploadJob, buffer),
		quit:    make(chan struct{}),
		workers: workers,
		store:   store,
	}
}

// PublishProcessUpload stamps the job with an ID, pending status and retry
// defaults, records it in the store and hands it to the workers.
func (q *Queue) PublishProcessUpload(ctx context.Context, job *jobs.ProcessUploadJob) error {
	if q.isClosed() {
		return fmt.Errorf("queue is closed")
	}

	stampNewJob(job)

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
	}

	select {
	case q.pending <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return fmt.Errorf("queue is closed")
	}
}

// stampNewJob fills the fields a caller is allowed to leave blank.
func stampNewJob(job *jobs.ProcessUploadJob) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}
}

// Start launches the worker goroutines and returns immediately. Workers
// run until Stop is called or the context is cancelled.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	if q.isClosed() {
		return fmt.Errorf("queue is closed")
	}

	for i := 0; i < q.workers; i++ {
		q.inFlight.Add(1)
		go func() {
			defer q.inFlight.Done()
			q.consume(ctx, handler)
		}()
	}
	return nil
}

func (q *Queue) consume(ctx context.Context, handler jobs.JobHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.quit:
			return
		case job := <-q.pending:
			if job == nil {
				return
			}
			q.run(ctx, job, handler)
		}
	}
}

// run executes one job and settles its final status. A failure below the
// retry limit re-publishes the job after a backoff; at the limit the job
// lands in failed with the handler's error on the record.
func (q *Queue) run(ctx context.Context, job *jobs.ProcessUploadJob, handler jobs.JobHandler) {
	started := time.Now()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &started
	q.save(ctx, job)

	err := handler(ctx, job)

	finished := time.Now()
	job.CompletedAt = &finished

	switch {
	case err == nil:
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
	case job.RetryCount < job.MaxRetries:
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		job.Error = err.Error()
		q.scheduleRetry(ctx, job)
	default:
		job.Status = jobs.JobStatusFailed
		job.Error = err.Error()
	}

	q.save(ctx, job)
}

// scheduleRetry re-publishes a reset copy of the job after a backoff that
// grows with the attempt count. The copy keeps its job ID so the store
// tracks one record per logical job.
func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.ProcessUploadJob) {
	retry := *job
	retry.Status = jobs.JobStatusPending
	retry.StartedAt = nil
	retry.CompletedAt = nil

	backoff := time.Duration(retry.RetryCount) * time.Second
	time.AfterFunc(backoff, func() {
		_ = q.PublishProcessUpload(ctx, &retry)
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.ProcessUploadJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Stop closes the queue and waits for the workers to finish what they are
// running, or until the context expires.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
