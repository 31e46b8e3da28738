package inmemory_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs"
	"github.com/davidrdinardo/smart-spend-map/internal/jobs/inmemory"
)

// waitForStatus polls the store until the job reaches the wanted status.
func waitForStatus(t *testing.T, store *inmemory.Store, jobID string, want jobs.JobStatus) *jobs.ProcessUploadJob {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}

	job, err := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached status %s (last: %+v, err %v)", jobID, want, job, err)
	return nil
}

func TestQueueProcessesJob(t *testing.T) {
	store := inmemory.NewStore()
	q := inmemory.NewQueue(10, 2, store)
	defer q.Close()

	handler := func(_ context.Context, j jobs.Job) error {
		uploadJob, ok := j.(*jobs.ProcessUploadJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", j)
		}
		uploadJob.Summary = &domain.Summary{
			UploadID:             uploadJob.UploadID,
			Success:              true,
			InsertedTransactions: 3,
		}
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ProcessUploadJob{
		UploadID:   "up-1",
		UserID:     "u-1",
		ObjectPath: "uploads/u-1/jan.csv",
	}
	if err := q.PublishProcessUpload(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessUpload() error = %v", err)
	}

	if job.JobID == "" {
		t.Fatal("publish left the job without an ID")
	}
	if job.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default 3", job.MaxRetries)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("completed job missing start or completion timestamps")
	}
	if got.Summary == nil || got.Summary.InsertedTransactions != 3 {
		t.Errorf("stored summary = %+v, want 3 inserted", got.Summary)
	}
	if got.Error != "" {
		t.Errorf("completed job carries error %q", got.Error)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := inmemory.NewStore()
	q := inmemory.NewQueue(10, 1, store)
	defer q.Close()

	var attempts atomic.Int32
	handler := func(_ context.Context, _ jobs.Job) error {
		if attempts.Add(1) == 1 {
			return fmt.Errorf("transient storage error")
		}
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ProcessUploadJob{
		UploadID:   "up-1",
		UserID:     "u-1",
		ObjectPath: "uploads/u-1/jan.csv",
	}
	if err := q.PublishProcessUpload(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessUpload() error = %v", err)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}
	if n := attempts.Load(); n != 2 {
		t.Errorf("handler ran %d times, want 2", n)
	}
}

func TestQueueExhaustsRetries(t *testing.T) {
	store := inmemory.NewStore()
	q := inmemory.NewQueue(10, 1, store)
	defer q.Close()

	handler := func(_ context.Context, _ jobs.Job) error {
		return fmt.Errorf("bucket not reachable")
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ProcessUploadJob{
		UploadID:   "up-1",
		UserID:     "u-1",
		ObjectPath: "uploads/u-1/jan.csv",
		MaxRetries: 1,
	}
	if err := q.PublishProcessUpload(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessUpload() error = %v", err)
	}

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if got.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", got.RetryCount)
	}
	if got.Error == "" {
		t.Error("failed job lost its error message")
	}
}

func TestQueueStopWaitsForInflight(t *testing.T) {
	q := inmemory.NewQueue(10, 1, inmemory.NewStore())

	started := make(chan struct{})
	var finished atomic.Bool
	handler := func(_ context.Context, _ jobs.Job) error {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ProcessUploadJob{UploadID: "up-1", UserID: "u-1", ObjectPath: "a.csv"}
	if err := q.PublishProcessUpload(context.Background(), job); err != nil {
		t.Fatalf("PublishProcessUpload() error = %v", err)
	}

	<-started

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := q.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !finished.Load() {
		t.Error("Stop() returned before the in-flight job finished")
	}
}

func TestQueuePublishAfterClose(t *testing.T) {
	q := inmemory.NewQueue(10, 1, inmemory.NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	job := &jobs.ProcessUploadJob{UploadID: "up-1", UserID: "u-1", ObjectPath: "a.csv"}
	if err := q.PublishProcessUpload(context.Background(), job); err == nil {
		t.Error("publish on a closed queue must fail")
	}
}
