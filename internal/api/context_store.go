package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sitebridge/internal/models"
)

// ImportJob is one pending image import. The context is persisted before the
// job is queued so in-flight imports survive a restart.
type ImportJob struct {
	ID        string               `json:"id"`
	Context   models.ImportContext `json:"context"`
	SourceURL string               `json:"sourceUrl"`
	FileName  string               `json:"fileName,omitempty"`
	Folder    string               `json:"folder,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// ContextStore persists pending import jobs keyed by id.
type ContextStore interface {
	Put(ctx context.Context, job ImportJob) error
	Get(ctx context.Context, id string) (ImportJob, bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]ImportJob, error)
	Ping(ctx context.Context) error
}

// MemoryContextStore keeps pending jobs in process memory. Suitable for
// development and tests; production deployments should prefer the Redis store
// so contexts survive restarts.
type MemoryContextStore struct {
	mu   sync.RWMutex
	jobs map[string]ImportJob
}

func NewMemoryContextStore() *MemoryContextStore {
	return &MemoryContextStore{jobs: make(map[string]ImportJob)}
}

func (s *MemoryContextStore) Put(_ context.Context, job ImportJob) error {
	if job.ID == "" {
		return fmt.Errorf("import job id is required")
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return nil
}

func (s *MemoryContextStore) Get(_ context.Context, id string) (ImportJob, bool, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	return job, ok, nil
}

func (s *MemoryContextStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryContextStore) List(_ context.Context) ([]ImportJob, error) {
	s.mu.RLock()
	jobs := make([]ImportJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

func (s *MemoryContextStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
