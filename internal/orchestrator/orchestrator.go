// Package orchestrator runs the scenario suite end to end.
// It coordinates: simulation → persistence → gate verdict
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/observability"
	"securemint-lab/internal/simulation"
	"securemint-lab/internal/storage"
)

// Orchestrator coordinates suite execution. Scenarios run concurrently, one
// goroutine each; every scenario gets its own runner-internal random source
// seeded from the shared base seed, so suite results stay reproducible.
type Orchestrator struct {
	// Stores (each optional; nil skips that persistence step)
	runStore     storage.RunStore
	eventStore   storage.EventStore
	historyStore storage.InvariantHistoryStore

	scenarios []string
	seed      int64
	startDate time.Time
	endDate   time.Time

	verbose bool
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Optional stores
	RunStore              storage.RunStore
	EventStore            storage.EventStore
	InvariantHistoryStore storage.InvariantHistoryStore

	// Scenario selection; empty means the full predefined suite
	Scenarios []string

	// Base seed; scenario i runs with Seed+i
	Seed int64

	// Simulation window start
	StartDate time.Time

	// Optional window end; zero keeps each scenario's default year
	EndDate time.Time

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	scenarios := opts.Scenarios
	if len(scenarios) == 0 {
		scenarios = domain.ScenarioIDs
	}

	return &Orchestrator{
		runStore:     opts.RunStore,
		eventStore:   opts.EventStore,
		historyStore: opts.InvariantHistoryStore,
		scenarios:    scenarios,
		seed:         opts.Seed,
		startDate:    opts.StartDate,
		endDate:      opts.EndDate,
		verbose:      opts.Verbose,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SuiteResult contains results from one suite execution.
type SuiteResult struct {
	Results             []*domain.SimulationResult // scenario order
	Errors              []string
	AllInvariantsPassed bool
}

// RunSuite executes every scenario and persists the outcomes.
// Phases:
//  1. Run all scenarios concurrently
//  2. Persist run headers, event logs, and invariant histories
//  3. Fold the per-run verdicts into the suite verdict
//
// A failed scenario is reported in Errors; it fails the suite verdict but
// does not abort the other scenarios.
func (o *Orchestrator) RunSuite(ctx context.Context) (*SuiteResult, error) {
	o.log("Phase 1: Running %d scenarios...", len(o.scenarios))

	results := make([]*domain.SimulationResult, len(o.scenarios))
	runErrs := make([]error, len(o.scenarios))

	runner := simulation.NewRunner()
	var wg sync.WaitGroup
	for i, scenarioID := range o.scenarios {
		wg.Add(1)
		go func(i int, scenarioID string) {
			defer wg.Done()

			cfg := domain.ScenarioConfig(scenarioID, o.startDate)
			if !o.endDate.IsZero() {
				cfg.EndDate = o.endDate
			}
			seed := o.seed + int64(i)

			started := o.now()
			res, err := runner.Run(ctx, scenarioID, seed, cfg)
			elapsed := o.now().Sub(started).Seconds()

			if err != nil {
				observability.RecordRun(scenarioID, "error", elapsed)
				runErrs[i] = err
				return
			}

			observability.RecordRun(scenarioID, "ok", elapsed)
			observability.RecordTicks(res.TotalTicks)
			observability.RecordViolations(scenarioID, res.Summary.InvariantViolations)
			observability.SetSecurityScore(scenarioID, res.Metrics.EconomicSecurityScore)
			results[i] = res
		}(i, scenarioID)
	}
	wg.Wait()

	suite := &SuiteResult{AllInvariantsPassed: true}
	for i, scenarioID := range o.scenarios {
		if runErrs[i] != nil {
			suite.Errors = append(suite.Errors, fmt.Sprintf("run %s: %v", scenarioID, runErrs[i]))
			suite.AllInvariantsPassed = false
			continue
		}

		res := results[i]
		suite.Results = append(suite.Results, res)
		if res.Summary.InvariantViolations > 0 {
			suite.AllInvariantsPassed = false
		}
		o.log("  %s: score %.2f, %d violations",
			scenarioID, res.Metrics.EconomicSecurityScore, res.Summary.InvariantViolations)
	}

	// Context cancellation aborts the whole suite, not just one scenario.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.log("Phase 2: Persisting %d runs...", len(suite.Results))
	for _, res := range suite.Results {
		if err := o.persist(ctx, res); err != nil {
			suite.Errors = append(suite.Errors, fmt.Sprintf("persist %s: %v", res.RunID, err))
		}
	}

	o.log("Suite completed: %d runs, %d errors, gate passed=%v",
		len(suite.Results), len(suite.Errors), suite.AllInvariantsPassed)

	return suite, nil
}

// persist writes a result through every configured store. Duplicate key
// errors mean the run was already persisted and are not failures.
func (o *Orchestrator) persist(ctx context.Context, res *domain.SimulationResult) error {
	if o.runStore != nil {
		err := o.runStore.Insert(ctx, domain.NewRunRecord(res, o.now()))
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordPersistenceError("runs")
			return fmt.Errorf("insert run header: %w", err)
		}
		if err == nil {
			observability.RecordRunPersisted()
		}
	}

	if o.eventStore != nil {
		err := o.eventStore.InsertBulk(ctx, res.RunID, res.Events)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordPersistenceError("events")
			return fmt.Errorf("insert event log: %w", err)
		}
	}

	if o.historyStore != nil {
		err := o.historyStore.InsertBulk(ctx, res.RunID, res.InvariantHistory)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			observability.RecordPersistenceError("invariant_history")
			return fmt.Errorf("insert invariant history: %w", err)
		}
	}

	return nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
