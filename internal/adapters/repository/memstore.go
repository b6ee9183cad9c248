package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fitbert/internal/domain/model"
	"github.com/okian/fitbert/pkg/metrics"
)

const (
	defaultJobTTL        = 15 * time.Minute
	defaultSweepInterval = 30 * time.Second
)

// MemoryStore keeps jobs in memory and drops finished ones after their TTL.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]model.Job

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs a job store and starts its sweeper, which runs
// until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs:          make(map[string]model.Job),
		ttl:           defaultJobTTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateJobsStored(0)
	s.startSweeper(ctx)
	return s
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, job.ID)
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = job
	metrics.UpdateJobsStored(len(s.jobs))
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok || s.expired(job) {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, id string, fn func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(&job)
	job.ID = id
	job.UpdatedAt = s.now()
	s.jobs[id] = job
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Sweep removes finished jobs older than the TTL and returns how many went.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
			removed++
		}
	}
	metrics.UpdateJobsStored(len(s.jobs))
	return removed
}

// expired must be called with s.mu held.
func (s *MemoryStore) expired(job model.Job) bool {
	if s.ttl == 0 || !job.Status.Terminal() {
		return false
	}
	return s.now().Sub(job.UpdatedAt) > s.ttl
}

var _ Store = (*MemoryStore)(nil)
