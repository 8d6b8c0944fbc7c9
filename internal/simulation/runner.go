// Package simulation drives one complete run: it advances the market, the
// oracle, and the protocol state machine tick by tick in a fixed order,
// checks invariants after every tick, and assembles the terminal
// SimulationResult.
package simulation

import (
	"context"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/idhash"
	"securemint-lab/internal/invariant"
	"securemint-lab/internal/market"
	"securemint-lab/internal/metrics"
	"securemint-lab/internal/oracle"
	"securemint-lab/internal/protocol"
	"securemint-lab/internal/randx"
)

// Runner executes simulation runs. A single Runner is reusable across runs;
// each Run builds its own seeded source and component set, so results depend
// only on (config, seed).
type Runner struct{}

// NewRunner creates a simulation runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes one simulation.
// Steps:
//  1. Validate the config
//  2. Seed one random source shared by all components
//  3. Tick loop, fixed sub-step order: market, oracle, solvency rebalance,
//     epoch rollover, pause rules, mint attempt, redemption attempt,
//     invariant check
//  4. Compute summary and metrics, assemble the SimulationResult
//
// Every emitted event carries the invariant status evaluated right after its
// sub-step. The context is checked once per tick; cancellation abandons the
// run with ctx.Err().
func (r *Runner) Run(ctx context.Context, scenarioID string, seed int64, cfg domain.SimulationConfig) (*domain.SimulationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := randx.NewSource(seed)
	marketSim := market.NewSimulator(rng)
	oracleSim := oracle.NewSimulator(rng)
	machine := protocol.NewMachine(rng)
	monitor := invariant.NewMonitor()

	state := domain.NewProtocolState(cfg)
	mkt := domain.NewMarketState(cfg.StartDate)

	totalTicks := cfg.TickCount()
	step := cfg.TickDuration()
	events := make([]domain.SimulationEvent, 0, totalTicks)

	summary := domain.SimulationSummary{
		MinBackingRatio: state.BackingRatio,
		MaxSupply:       state.TotalSupply,
	}
	peakRatio := state.BackingRatio

	now := cfg.StartDate
	for tick := 0; tick < totalTicks; tick++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now = now.Add(step)

		emit := func(details []domain.EventDetails) {
			if len(details) == 0 {
				return
			}
			snap := invariant.Evaluate(state, cfg)
			for _, d := range details {
				events = append(events, domain.NewEvent(now, d, snap))
			}
		}

		var crashes []domain.EventDetails
		mkt, crashes = marketSim.Step(mkt, cfg, now)
		emit(crashes)

		emit(oracleSim.Step(mkt, &state, cfg, now))
		emit(machine.Rebalance(&state, cfg))
		emit(machine.RollEpoch(&state, cfg, now))
		emit(machine.ApplyPauseRules(&state))
		emit(machine.AttemptMint(&state, cfg))
		emit(machine.AttemptRedemption(&state, cfg))

		status, check := monitor.Check(state, cfg, tick, now)
		events = append(events, domain.NewEvent(now, check, status))

		if state.TotalSupply > summary.MaxSupply {
			summary.MaxSupply = state.TotalSupply
		}
		if state.BackingRatio < summary.MinBackingRatio {
			summary.MinBackingRatio = state.BackingRatio
		}
		if state.BackingRatio > peakRatio {
			peakRatio = state.BackingRatio
		} else if peakRatio > 0 {
			if dd := (peakRatio - state.BackingRatio) / peakRatio; dd > summary.MaxDrawdown {
				summary.MaxDrawdown = dd
			}
		}
	}

	summary.TotalEvents = len(events)
	summary.InvariantViolations = monitor.Violations()
	summary.FinalSupply = state.TotalSupply
	summary.FinalBacking = state.TotalBacking
	countEventKinds(events, &summary)

	return &domain.SimulationResult{
		RunID:            idhash.ComputeRunID(scenarioID, seed, cfg.StartDate, cfg.EndDate),
		ScenarioID:       scenarioID,
		Seed:             seed,
		Config:           cfg,
		Summary:          summary,
		Metrics:          metrics.Compute(events, summary, totalTicks, state.EpochNumber),
		TotalTicks:       totalTicks,
		Events:           events,
		InvariantHistory: monitor.History(),
	}, nil
}

func countEventKinds(events []domain.SimulationEvent, summary *domain.SimulationSummary) {
	for _, ev := range events {
		switch ev.Kind {
		case domain.EventMint:
			summary.MintCount++
		case domain.EventBurn:
			summary.BurnCount++
		case domain.EventOracleUpdate:
			summary.OracleUpdateCount++
		case domain.EventOracleFailure:
			summary.OracleFailureCount++
		case domain.EventPause:
			summary.PauseCount++
		case domain.EventBankRun:
			summary.BankRunCount++
		case domain.EventCrash:
			summary.CrashCount++
		}
	}
}
