package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse. Event payloads
// and invariant snapshots are stored as JSON strings; the emission order is
// preserved through an explicit seq column, since MergeTree has no insertion
// order of its own.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// InsertBulk writes the complete event log for a run. Returns
// ErrDuplicateKey if the run already has events. MergeTree does not enforce
// uniqueness, so the check is an explicit count before insert.
func (s *EventStore) InsertBulk(ctx context.Context, runID string, events []domain.SimulationEvent) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.hasEvents(ctx, runID)
	if err != nil {
		return fmt.Errorf("check existing events: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO simulation_events (
			run_id, seq, event_time, kind, details, invariants
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare event batch: %w", err)
	}

	for i, ev := range events {
		details, err := json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		invariants, err := json.Marshal(ev.Invariants)
		if err != nil {
			return fmt.Errorf("marshal event invariants: %w", err)
		}

		err = batch.Append(
			runID,
			uint64(i),
			ev.Timestamp,
			string(ev.Kind),
			string(details),
			string(invariants),
		)
		if err != nil {
			return fmt.Errorf("append event to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send event batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's events in emission order.
func (s *EventStore) GetByRunID(ctx context.Context, runID string) ([]domain.SimulationEvent, error) {
	query := `
		SELECT event_time, kind, details, invariants
		FROM simulation_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`
	return s.queryEvents(ctx, query, runID)
}

// GetByKind retrieves a run's events of one kind, in emission order.
func (s *EventStore) GetByKind(ctx context.Context, runID string, kind domain.EventKind) ([]domain.SimulationEvent, error) {
	query := `
		SELECT event_time, kind, details, invariants
		FROM simulation_events
		WHERE run_id = ? AND kind = ?
		ORDER BY seq ASC
	`
	return s.queryEvents(ctx, query, runID, string(kind))
}

func (s *EventStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.SimulationEvent, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var result []domain.SimulationEvent
	for rows.Next() {
		var (
			eventTime  time.Time
			kind       string
			details    string
			invariants string
		)
		if err := rows.Scan(&eventTime, &kind, &details, &invariants); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		decoded, err := domain.DecodeEventDetails(domain.EventKind(kind), []byte(details))
		if err != nil {
			return nil, fmt.Errorf("decode event details: %w", err)
		}

		var inv domain.InvariantStatus
		if err := json.Unmarshal([]byte(invariants), &inv); err != nil {
			return nil, fmt.Errorf("unmarshal event invariants: %w", err)
		}

		result = append(result, domain.SimulationEvent{
			Timestamp:  eventTime.UTC(),
			Kind:       domain.EventKind(kind),
			Details:    decoded,
			Invariants: inv,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return result, nil
}

func (s *EventStore) hasEvents(ctx context.Context, runID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM simulation_events WHERE run_id = ?`, runID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
