// Package jobs runs analyses in the background and tracks their state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mixlens/model"
)

var (
	// ErrNotFound is returned for an unknown job ID.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady is returned by Result while the job has not finished.
	ErrNotReady = errors.New("result not ready")
	// ErrExists is returned when creating a job whose ID is taken.
	ErrExists = errors.New("job already exists")
)

// Store keeps job status and results.
type Store interface {
	Create(ctx context.Context, job model.Job) error
	Get(ctx context.Context, id string) (model.Job, error)
	SetRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result *model.Result) error
	Fail(ctx context.Context, id string, jobErr *model.JobError) error
	Result(ctx context.Context, id string) (*model.Result, error)
}

type memoryEntry struct {
	job    model.Job
	result *model.Result
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*memoryEntry
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, job.ID)
	}
	if job.State == "" {
		job.State = model.StateQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now()
	}
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = &memoryEntry{job: job}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	if !ok {
		return model.Job{}, ErrNotFound
	}
	return e.job, nil
}

func (s *MemoryStore) SetRunning(_ context.Context, id string) error {
	return s.update(id, func(e *memoryEntry) {
		e.job.State = model.StateRunning
	})
}

func (s *MemoryStore) Complete(_ context.Context, id string, result *model.Result) error {
	return s.update(id, func(e *memoryEntry) {
		e.job.State = model.StateDone
		e.job.Error = nil
		e.result = result
	})
}

func (s *MemoryStore) Fail(_ context.Context, id string, jobErr *model.JobError) error {
	return s.update(id, func(e *memoryEntry) {
		e.job.State = model.StateError
		e.job.Error = jobErr
	})
}

func (s *MemoryStore) Result(_ context.Context, id string) (*model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.job.State != model.StateDone || e.result == nil {
		return nil, ErrNotReady
	}
	return e.result, nil
}

func (s *MemoryStore) update(id string, fn func(*memoryEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	fn(e)
	e.job.UpdatedAt = s.now()
	return nil
}
