// Package oracle decides, each tick, whether the protocol's backing oracle
// is fresh, stale, or failed, and applies the refresh when one is due.
package oracle

import (
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/randx"
)

// Simulator models the oracle feed. It is the only component besides the
// protocol state machine that mutates ProtocolState: it owns totalBacking
// re-pricing, the stale flag, and the last-update timestamp.
type Simulator struct {
	rng randx.Source
}

// NewSimulator creates an oracle simulator drawing from rng.
func NewSimulator(rng randx.Source) *Simulator {
	return &Simulator{rng: rng}
}

// Step evaluates the oracle for the tick ending at now.
//
// A failure draw (when the oracle-failure stress mode is enabled) marks the
// oracle stale and suppresses any refresh this tick, even if the staleness
// threshold has also elapsed. Otherwise, once the threshold elapses the
// oracle refreshes: the stale flag clears and backing is re-priced by the
// price movement since the last accepted update. Scaling by the movement
// rather than the price level keeps backing proportional to the asset's
// value; compounding the level would integrate the whole price path into
// backing and blow it up over long windows. A stale flag set by a failure
// persists until the next successful refresh.
func (s *Simulator) Step(mkt domain.MarketState, state *domain.ProtocolState, cfg domain.SimulationConfig, now time.Time) []domain.EventDetails {
	if cfg.EnableOracleFailures && s.rng.Float64() < cfg.OracleFailureProbability {
		state.OracleStale = true
		return []domain.EventDetails{domain.OracleFailureDetails{}}
	}

	elapsed := now.Sub(state.LastOracleUpdate).Seconds()
	if elapsed <= cfg.OracleStalenessThresholdSec {
		return nil
	}

	// Refresh due: backing tracks the synthetic asset's price movement.
	state.OracleStale = false
	state.LastOracleUpdate = now
	state.TotalBacking *= randx.SafeDiv(mkt.Price, state.LastOraclePrice, 1)
	state.LastOraclePrice = mkt.Price
	state.RecomputeBackingRatio()

	return []domain.EventDetails{domain.OracleUpdateDetails{
		Backing:      state.TotalBacking,
		BackingRatio: state.BackingRatio,
		Price:        mkt.Price,
	}}
}
