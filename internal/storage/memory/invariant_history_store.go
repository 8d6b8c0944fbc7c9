package memory

import (
	"context"
	"sync"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

// InvariantHistoryStore is an in-memory implementation of
// storage.InvariantHistoryStore.
type InvariantHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]domain.InvariantRecord // keyed by run_id, tick order
}

// NewInvariantHistoryStore creates a new in-memory invariant history store.
func NewInvariantHistoryStore() *InvariantHistoryStore {
	return &InvariantHistoryStore{
		data: make(map[string][]domain.InvariantRecord),
	}
}

// Compile-time interface check.
var _ storage.InvariantHistoryStore = (*InvariantHistoryStore)(nil)

// InsertBulk writes the complete invariant history for a run. Returns
// ErrDuplicateKey if the run already has history.
func (s *InvariantHistoryStore) InsertBulk(_ context.Context, runID string, records []domain.InvariantRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	history := make([]domain.InvariantRecord, len(records))
	copy(history, records)
	s.data[runID] = history
	return nil
}

// GetByRunID retrieves a run's history in tick order.
func (s *InvariantHistoryStore) GetByRunID(_ context.Context, runID string) ([]domain.InvariantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[runID]
	result := make([]domain.InvariantRecord, len(history))
	copy(result, history)
	return result, nil
}

// GetViolations retrieves only the ticks where an invariant failed.
func (s *InvariantHistoryStore) GetViolations(_ context.Context, runID string) ([]domain.InvariantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.InvariantRecord
	for _, rec := range s.data[runID] {
		if !rec.Status.AllPassed {
			result = append(result, rec)
		}
	}
	return result, nil
}
