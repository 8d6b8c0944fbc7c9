package storage

import (
	"context"

	"securemint-lab/internal/domain"
)

// RunStore provides access to simulation_runs storage.
type RunStore interface {
	// Insert adds a new run header. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetByScenario retrieves all runs for a scenario, newest first.
	GetByScenario(ctx context.Context, scenarioID string) ([]*domain.RunRecord, error)

	// GetAll retrieves all runs, newest first.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}

// EventStore provides access to simulation_events storage. A run's event log
// is written once, in emission order.
type EventStore interface {
	// InsertBulk writes the complete event log for a run. Returns
	// ErrDuplicateKey if the run already has events.
	InsertBulk(ctx context.Context, runID string, events []domain.SimulationEvent) error

	// GetByRunID retrieves a run's events in emission order.
	GetByRunID(ctx context.Context, runID string) ([]domain.SimulationEvent, error)

	// GetByKind retrieves a run's events of one kind, in emission order.
	GetByKind(ctx context.Context, runID string, kind domain.EventKind) ([]domain.SimulationEvent, error)
}

// InvariantHistoryStore provides access to invariant_history storage. A
// run's history is written once, in tick order.
type InvariantHistoryStore interface {
	// InsertBulk writes the complete invariant history for a run. Returns
	// ErrDuplicateKey if the run already has history.
	InsertBulk(ctx context.Context, runID string, records []domain.InvariantRecord) error

	// GetByRunID retrieves a run's history in tick order.
	GetByRunID(ctx context.Context, runID string) ([]domain.InvariantRecord, error)

	// GetViolations retrieves only the ticks where an invariant failed.
	GetViolations(ctx context.Context, runID string) ([]domain.InvariantRecord, error)
}
