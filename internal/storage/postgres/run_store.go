package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL. Config, summary,
// and metrics persist as JSONB so the schema survives field additions.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run header. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	configJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	summaryJSON, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	metricsJSON, err := json.Marshal(r.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	query := `
		INSERT INTO simulation_runs (
			run_id, scenario_id, seed, created_at, total_ticks,
			config, summary, metrics
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8
		)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.ScenarioID, r.Seed, r.CreatedAt, r.TotalTicks,
		configJSON, summaryJSON, metricsJSON,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `
		SELECT run_id, scenario_id, seed, created_at, total_ticks,
		       config, summary, metrics
		FROM simulation_runs
		WHERE run_id = $1
	`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// GetByScenario retrieves all runs for a scenario, newest first.
func (s *RunStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.RunRecord, error) {
	query := `
		SELECT run_id, scenario_id, seed, created_at, total_ticks,
		       config, summary, metrics
		FROM simulation_runs
		WHERE scenario_id = $1
		ORDER BY created_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get runs by scenario: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves all runs, newest first.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `
		SELECT run_id, scenario_id, seed, created_at, total_ticks,
		       config, summary, metrics
		FROM simulation_runs
		ORDER BY created_at DESC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var (
		r           domain.RunRecord
		createdAt   time.Time
		configJSON  []byte
		summaryJSON []byte
		metricsJSON []byte
	)

	err := row.Scan(
		&r.RunID, &r.ScenarioID, &r.Seed, &createdAt, &r.TotalTicks,
		&configJSON, &summaryJSON, &metricsJSON,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt = createdAt.UTC()
	if err := json.Unmarshal(configJSON, &r.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal(summaryJSON, &r.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &r.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return &r, nil
}

func scanRuns(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*domain.RunRecord, error) {
	var result []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return result, nil
}
