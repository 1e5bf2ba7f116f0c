package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRunStore implements RunStore for testing and one-off sessions.
type InMemoryRunStore struct {
	mu   sync.RWMutex
	runs []Run
}

// NewInMemoryRunStore creates an empty in-memory store.
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{}
}

// Record stores a copy of run.
func (s *InMemoryRunStore) Record(ctx context.Context, run *Run) error {
	prepare(run)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.runs {
		if r.ID == run.ID {
			return fmt.Errorf("run %s already recorded", run.ID)
		}
	}
	s.runs = append(s.runs, copyRun(*run))
	return nil
}

// Get returns the run with the given ID.
func (s *InMemoryRunStore) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.runs {
		if r.ID == id {
			c := copyRun(r)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// List returns up to limit runs, most recent first.
func (s *InMemoryRunStore) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Reverse insertion order breaks timestamp ties.
	runs := make([]Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		runs = append(runs, copyRun(s.runs[i]))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if limit > 0 && limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close is a no-op.
func (s *InMemoryRunStore) Close() error {
	return nil
}

func copyRun(r Run) Run {
	r.Outputs = append([]int(nil), r.Outputs...)
	if r.Decision != nil {
		d := *r.Decision
		r.Decision = &d
	}
	return r
}
