// Package protocol implements the mint/burn/pause/epoch state machine of the
// modeled protocol. Its tick-scoped operations are always invoked in the
// fixed order: solvency rebalance, epoch rollover, pause rules, mint
// attempt, redemption attempt. No operation ever errors; ill-conditioned
// arithmetic routes through safe division and non-negative clamping instead.
package protocol

import (
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/randx"
)

// Transition thresholds.
const (
	// PauseRatioThreshold pauses the protocol when the backing ratio falls
	// strictly below it.
	PauseRatioThreshold = 0.95

	// UnpauseRatioThreshold is the backing ratio required (with a fresh
	// oracle) to lift a pause.
	UnpauseRatioThreshold = 1.0

	// baselineRedemptionMax bounds the per-tick baseline redemption rate:
	// uniform(0, 2%) of supply.
	baselineRedemptionMax = 0.02

	// bankRunProbability is the per-tick chance of a redemption surge when
	// the bank-run stress mode is enabled.
	bankRunProbability = 0.05

	// mintHeadroomFraction caps a single mint at half of the currently
	// available headroom.
	mintHeadroomFraction = 0.5
)

// Machine applies protocol transition rules. All randomness comes from the
// injected source.
type Machine struct {
	rng randx.Source
}

// NewMachine creates a protocol state machine drawing from rng.
func NewMachine(rng randx.Source) *Machine {
	return &Machine{rng: rng}
}

// Rebalance burns unbacked supply whenever the backing ratio has fallen
// below the configured floor, restoring it to exactly the floor. An oracle
// repricing is the only step that can push the ratio below the floor (mints
// stop short of it and redemptions return backing 1:1), so this runs right
// after the oracle step, before the pause rules see the state. The burned
// supply is written off without returning backing.
func (m *Machine) Rebalance(state *domain.ProtocolState, cfg domain.SimulationConfig) []domain.EventDetails {
	if state.BackingRatio >= cfg.MinBackingRatio {
		return nil
	}

	target := randx.SafeDiv(state.TotalBacking, cfg.MinBackingRatio, 0)
	amount := state.TotalSupply - target
	if amount <= 0 {
		return nil
	}
	if amount > state.TotalSupply {
		amount = state.TotalSupply
	}

	rate := randx.SafeDiv(amount, state.TotalSupply, 0)
	state.TotalSupply -= amount
	state.RecomputeBackingRatio()

	return []domain.EventDetails{domain.BurnDetails{
		Amount:       amount,
		Rate:         rate,
		BackingRatio: state.BackingRatio,
	}}
}

// RollEpoch advances the epoch counter when the tick timestamp has crossed
// the current epoch's boundary, resetting the per-epoch mint tally to zero.
func (m *Machine) RollEpoch(state *domain.ProtocolState, cfg domain.SimulationConfig, now time.Time) []domain.EventDetails {
	boundary := cfg.StartDate.Add(time.Duration(state.EpochNumber+1) * cfg.EpochDuration())
	if now.Before(boundary) {
		return nil
	}

	state.EpochNumber++
	state.EpochMinted = 0

	return []domain.EventDetails{domain.EpochResetDetails{Epoch: state.EpochNumber}}
}

// ApplyPauseRules evaluates the pause and unpause triggers against current
// state. The two pause rules are guarded by !IsPaused so an already-paused
// protocol is never re-paused; the unpause rule may fire the same tick a
// pause condition clears.
func (m *Machine) ApplyPauseRules(state *domain.ProtocolState) []domain.EventDetails {
	var events []domain.EventDetails

	if state.BackingRatio < PauseRatioThreshold && !state.IsPaused {
		state.IsPaused = true
		state.PauseLevel = domain.PauseLevelLowBacking
		events = append(events, domain.PauseDetails{
			Level:  domain.PauseLevelLowBacking,
			Reason: domain.PauseReasonLowBackingRatio,
		})
	} else if state.OracleStale && !state.IsPaused {
		state.IsPaused = true
		state.PauseLevel = domain.PauseLevelStaleOracle
		events = append(events, domain.PauseDetails{
			Level:  domain.PauseLevelStaleOracle,
			Reason: domain.PauseReasonStaleOracle,
		})
	}

	if state.IsPaused && state.BackingRatio >= UnpauseRatioThreshold && !state.OracleStale {
		state.IsPaused = false
		state.PauseLevel = domain.PauseLevelNone
		events = append(events, domain.UnpauseDetails{})
	}

	return events
}

// AttemptMint tries to mint this tick. All four gates must pass or the
// attempt silently does nothing: not paused, oracle fresh, room left under
// the epoch cap, and room under the minimum-backing-ratio constraint. The
// minted amount is a uniform draw of at most half the available headroom.
func (m *Machine) AttemptMint(state *domain.ProtocolState, cfg domain.SimulationConfig) []domain.EventDetails {
	if state.IsPaused {
		return nil
	}
	if state.OracleStale {
		return nil
	}

	remainingEpochCap := cfg.EpochMintCap - state.EpochMinted
	if remainingEpochCap <= 0 {
		return nil
	}

	maxByBacking := state.TotalBacking*cfg.MinBackingRatio - state.TotalSupply
	if maxByBacking <= 0 {
		return nil
	}

	headroom := remainingEpochCap
	if maxByBacking < headroom {
		headroom = maxByBacking
	}

	amount := m.rng.Float64() * headroom * mintHeadroomFraction
	if amount <= 0 {
		return nil
	}

	state.TotalSupply += amount
	state.EpochMinted += amount
	state.RecomputeBackingRatio()

	return []domain.EventDetails{domain.MintDetails{
		Amount:       amount,
		BackingRatio: state.BackingRatio,
	}}
}

// AttemptRedemption applies this tick's redemption pressure: a uniform(0, 2%)
// baseline rate, overridden by the configured bank-run rate when the surge
// draw fires. Burned supply returns backing 1:1.
func (m *Machine) AttemptRedemption(state *domain.ProtocolState, cfg domain.SimulationConfig) []domain.EventDetails {
	var events []domain.EventDetails

	rate := m.rng.Float64() * baselineRedemptionMax
	if cfg.EnableBankRunSimulation && m.rng.Float64() < bankRunProbability {
		rate = cfg.BankRunRedemptionRate / 100
		events = append(events, domain.BankRunDetails{
			RedemptionRate: cfg.BankRunRedemptionRate,
		})
	}

	amount := rate * state.TotalSupply
	if amount < 0 {
		amount = 0
	}
	// Redemption cannot return more backing than the pool holds.
	if amount > state.TotalBacking {
		amount = state.TotalBacking
	}

	if amount > 0 && amount <= state.TotalSupply {
		state.TotalSupply -= amount
		state.TotalBacking -= amount
		state.RecomputeBackingRatio()

		events = append(events, domain.BurnDetails{
			Amount:       amount,
			Rate:         rate,
			BackingRatio: state.BackingRatio,
		})
	}

	return events
}
