package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/lifecycle"
)

// Store persists job records for the duration of their TTL. Updates enforce
// two invariants regardless of backend: progress never decreases, and a
// terminal record never changes again.
type Store interface {
	Start(lc *lifecycle.Coordinator) error
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	Update(ctx context.Context, job *Job) error
}

type memoryEntry struct {
	job       *Job
	expiresAt time.Time
}

// MemoryStore is the default single-process backend. Records expire TTL
// after their last update; a janitor sweeps expired entries.
type MemoryStore struct {
	config Config

	mu      sync.RWMutex
	entries map[uuid.UUID]*memoryEntry
}

func NewMemoryStore(config Config) *MemoryStore {
	return &MemoryStore{
		config:  config,
		entries: make(map[uuid.UUID]*memoryEntry),
	}
}

func (s *MemoryStore) Start(lc *lifecycle.Coordinator) error {
	lc.OnShutdown(func() {
		ticker := time.NewTicker(s.config.SweepIntervalDuration())
		defer ticker.Stop()
		for {
			select {
			case <-lc.Context().Done():
				return
			case <-ticker.C:
				s.sweep(time.Now())
			}
		}
	})
	return nil
}

func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, job.ID)
	}

	s.entries[job.ID] = &memoryEntry{
		job:       job.Clone(),
		expiresAt: time.Now().Add(s.config.TTLDuration()),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entry.job.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[job.ID]
	if !ok || time.Now().After(entry.expiresAt) {
		return fmt.Errorf("%w: %s", ErrNotFound, job.ID)
	}
	if entry.job.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, job.ID)
	}

	next := job.Clone()
	if next.Progress < entry.job.Progress {
		next.Progress = entry.job.Progress
	}
	next.UpdatedAt = time.Now()

	entry.job = next
	entry.expiresAt = next.UpdatedAt.Add(s.config.TTLDuration())
	return nil
}

func (s *MemoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
