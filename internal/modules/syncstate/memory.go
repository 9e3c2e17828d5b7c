package syncstate

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryRepo is an in-memory Repository used by tests.
type memoryRepo struct {
	mu     sync.RWMutex
	states map[string]SyncState
}

// NewMemoryRepository creates an empty in-memory sync-state repository.
func NewMemoryRepository() Repository {
	return &memoryRepo{states: make(map[string]SyncState)}
}

func (r *memoryRepo) Get(_ context.Context, tableName string) (*SyncState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[tableName]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepo) Upsert(_ context.Context, tableName string, lastSyncAt time.Time, recordsSynced int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[tableName] = SyncState{
		TableName:     tableName,
		LastSyncAt:    lastSyncAt,
		RecordsSynced: recordsSynced,
		UpdatedAt:     time.Now(),
	}
	return nil
}

func (r *memoryRepo) List(_ context.Context) ([]*SyncState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]*SyncState, 0, len(r.states))
	for name := range r.states {
		s := r.states[name]
		states = append(states, &s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].TableName < states[j].TableName })
	return states, nil
}
