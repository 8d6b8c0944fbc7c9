package domain

import "time"

// InvariantStatus is the per-tick result of the invariant monitor.
//
// NoMintWhilePaused and NoMintWithStaleOracle are enforced procedurally by
// the mint gates; they are recorded here for auditability rather than
// recomputed from event history.
type InvariantStatus struct {
	SupplyBacked          bool `json:"supplyBacked"`          // totalSupply <= totalBacking
	NoMintWhilePaused     bool `json:"noMintWhilePaused"`     // structural, see mint gate 1
	NoMintWithStaleOracle bool `json:"noMintWithStaleOracle"` // structural, see mint gate 2
	EpochMintWithinCap    bool `json:"epochMintWithinCap"`    // epochMinted <= epochMintCap
	AllPassed             bool `json:"allPassed"`
}

// InvariantRecord is one entry in a run's invariant history, appended
// unconditionally every tick.
type InvariantRecord struct {
	Tick      int             `json:"tick"`
	Timestamp time.Time       `json:"timestamp"`
	Status    InvariantStatus `json:"status"`
}
