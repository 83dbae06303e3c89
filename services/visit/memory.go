package visit

import (
	"context"
	"sync"
)

// memoryStore is a process-local session store for single-instance
// deployments and tests.
type memoryStore struct {
	mu     sync.RWMutex
	visits map[string]Visit
}

func NewMemoryStore() Store {
	return &memoryStore{visits: make(map[string]Visit)}
}

func (s *memoryStore) Get(_ context.Context, visitID string) (*Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visits[visitID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	out := v
	out.Tasks = make([]TaskState, len(v.Tasks))
	copy(out.Tasks, v.Tasks)
	return &out, nil
}

func (s *memoryStore) Save(_ context.Context, visit *Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Merge under the lock so concurrent read-modify-write callers cannot
	// overwrite each other's task progress.
	current, ok := s.visits[visit.ID]
	if !ok {
		current = Visit{}
	}
	s.visits[visit.ID] = *merge(&current, visit)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, visitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.visits, visitID)
	return nil
}
