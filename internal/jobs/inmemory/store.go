package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/davidrdinardo/smart-spend-map/internal/jobs"
)

// Store keeps job records in a map guarded by a mutex. A database-backed
// JobStore would replace it where job history must survive restarts.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*jobs.ProcessUploadJob
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*jobs.ProcessUploadJob)}
}

// clone keeps callers from mutating a stored record through a shared pointer.
func clone(job *jobs.ProcessUploadJob) *jobs.ProcessUploadJob {
	c := *job
	return &c
}

// SaveJob inserts or replaces the record for job.JobID.
func (s *Store) SaveJob(ctx context.Context, job *jobs.ProcessUploadJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[job.JobID] = clone(job)
	return nil
}

// GetJob returns a copy of the record for jobID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ProcessUploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.byID[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return clone(job), nil
}

// ListJobs returns matching jobs newest first, honoring the filter's limit
// and offset.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ProcessUploadJob, error) {
	s.mu.RLock()
	matched := make([]*jobs.ProcessUploadJob, 0)
	for _, job := range s.byID {
		if matchesFilter(job, filter) {
			matched = append(matched, clone(job))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*jobs.ProcessUploadJob{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matchesFilter(job *jobs.ProcessUploadJob, filter jobs.JobFilter) bool {
	if filter.UploadID != "" && job.UploadID != filter.UploadID {
		return false
	}
	if filter.UserID != "" && job.UserID != filter.UserID {
		return false
	}
	if filter.Status != "" && job.Status != filter.Status {
		return false
	}
	return true
}

// UpdateJobStatus rewrites the status, and the error message when one is
// given, on an existing record.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.byID[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
