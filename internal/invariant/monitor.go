// Package invariant evaluates the protocol safety invariants against current
// state after every tick and keeps the pass/fail history.
package invariant

import (
	"time"

	"securemint-lab/internal/domain"
)

// Evaluate recomputes invariant status from protocol state and config.
//
// NoMintWhilePaused and NoMintWithStaleOracle are structurally guaranteed by
// the mint gates; they are recorded true for auditability rather than
// rederived from event history.
func Evaluate(state domain.ProtocolState, cfg domain.SimulationConfig) domain.InvariantStatus {
	status := domain.InvariantStatus{
		SupplyBacked:          state.TotalSupply <= state.TotalBacking,
		NoMintWhilePaused:     true,
		NoMintWithStaleOracle: true,
		EpochMintWithinCap:    state.EpochMinted <= cfg.EpochMintCap,
	}
	status.AllPassed = status.SupplyBacked &&
		status.NoMintWhilePaused &&
		status.NoMintWithStaleOracle &&
		status.EpochMintWithinCap
	return status
}

// Monitor accumulates one InvariantRecord per tick, unconditionally. The
// history is the ground truth a downstream gate uses to pass or fail a run.
type Monitor struct {
	history    []domain.InvariantRecord
	violations int
}

// NewMonitor creates an empty monitor for one run.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Check evaluates the invariants at the end of a tick, appends a history
// record, and returns the status plus the invariant-check event payload.
func (m *Monitor) Check(state domain.ProtocolState, cfg domain.SimulationConfig, tick int, now time.Time) (domain.InvariantStatus, domain.EventDetails) {
	status := Evaluate(state, cfg)

	m.history = append(m.history, domain.InvariantRecord{
		Tick:      tick,
		Timestamp: now,
		Status:    status,
	})
	if !status.AllPassed {
		m.violations++
	}

	return status, domain.InvariantCheckDetails{Status: status}
}

// History returns the accumulated per-tick records in tick order.
func (m *Monitor) History() []domain.InvariantRecord {
	return m.history
}

// Violations returns the count of ticks where any invariant failed.
func (m *Monitor) Violations() int {
	return m.violations
}
