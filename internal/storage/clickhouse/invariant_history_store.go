package clickhouse

import (
	"context"
	"fmt"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

// InvariantHistoryStore implements storage.InvariantHistoryStore using
// ClickHouse, one row per tick with the status flags as Bool columns so
// violation scans stay cheap.
type InvariantHistoryStore struct {
	conn *Conn
}

// NewInvariantHistoryStore creates a new InvariantHistoryStore.
func NewInvariantHistoryStore(conn *Conn) *InvariantHistoryStore {
	return &InvariantHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.InvariantHistoryStore = (*InvariantHistoryStore)(nil)

// InsertBulk writes the complete invariant history for a run. Returns
// ErrDuplicateKey if the run already has history.
func (s *InvariantHistoryStore) InsertBulk(ctx context.Context, runID string, records []domain.InvariantRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.hasHistory(ctx, runID)
	if err != nil {
		return fmt.Errorf("check existing history: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO invariant_history (
			run_id, tick, event_time,
			supply_backed, no_mint_while_paused, no_mint_with_stale_oracle,
			epoch_mint_within_cap, all_passed
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare history batch: %w", err)
	}

	for _, rec := range records {
		err := batch.Append(
			runID,
			uint32(rec.Tick),
			rec.Timestamp,
			rec.Status.SupplyBacked,
			rec.Status.NoMintWhilePaused,
			rec.Status.NoMintWithStaleOracle,
			rec.Status.EpochMintWithinCap,
			rec.Status.AllPassed,
		)
		if err != nil {
			return fmt.Errorf("append history record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send history batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's history in tick order.
func (s *InvariantHistoryStore) GetByRunID(ctx context.Context, runID string) ([]domain.InvariantRecord, error) {
	query := `
		SELECT tick, event_time,
		       supply_backed, no_mint_while_paused, no_mint_with_stale_oracle,
		       epoch_mint_within_cap, all_passed
		FROM invariant_history
		WHERE run_id = ?
		ORDER BY tick ASC
	`
	return s.queryHistory(ctx, query, runID)
}

// GetViolations retrieves only the ticks where an invariant failed.
func (s *InvariantHistoryStore) GetViolations(ctx context.Context, runID string) ([]domain.InvariantRecord, error) {
	query := `
		SELECT tick, event_time,
		       supply_backed, no_mint_while_paused, no_mint_with_stale_oracle,
		       epoch_mint_within_cap, all_passed
		FROM invariant_history
		WHERE run_id = ? AND all_passed = false
		ORDER BY tick ASC
	`
	return s.queryHistory(ctx, query, runID)
}

func (s *InvariantHistoryStore) queryHistory(ctx context.Context, query string, args ...any) ([]domain.InvariantRecord, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var result []domain.InvariantRecord
	for rows.Next() {
		var (
			tick      uint32
			eventTime time.Time
			status    domain.InvariantStatus
		)
		err := rows.Scan(
			&tick, &eventTime,
			&status.SupplyBacked, &status.NoMintWhilePaused, &status.NoMintWithStaleOracle,
			&status.EpochMintWithinCap, &status.AllPassed,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		result = append(result, domain.InvariantRecord{
			Tick:      int(tick),
			Timestamp: eventTime.UTC(),
			Status:    status,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return result, nil
}

func (s *InvariantHistoryStore) hasHistory(ctx context.Context, runID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM invariant_history WHERE run_id = ?`, runID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
