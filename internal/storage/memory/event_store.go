package memory

import (
	"context"
	"sync"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[string][]domain.SimulationEvent // keyed by run_id, emission order
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[string][]domain.SimulationEvent),
	}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// InsertBulk writes the complete event log for a run. Returns
// ErrDuplicateKey if the run already has events.
func (s *EventStore) InsertBulk(_ context.Context, runID string, events []domain.SimulationEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}

	log := make([]domain.SimulationEvent, len(events))
	copy(log, events)
	s.data[runID] = log
	return nil
}

// GetByRunID retrieves a run's events in emission order.
func (s *EventStore) GetByRunID(_ context.Context, runID string) ([]domain.SimulationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.data[runID]
	result := make([]domain.SimulationEvent, len(log))
	copy(result, log)
	return result, nil
}

// GetByKind retrieves a run's events of one kind, in emission order.
func (s *EventStore) GetByKind(_ context.Context, runID string, kind domain.EventKind) ([]domain.SimulationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SimulationEvent
	for _, ev := range s.data[runID] {
		if ev.Kind == kind {
			result = append(result, ev)
		}
	}
	return result, nil
}
