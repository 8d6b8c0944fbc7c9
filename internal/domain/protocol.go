package domain

import (
	"time"

	"securemint-lab/internal/randx"
)

// Pause severity levels.
const (
	PauseLevelNone        = 0
	PauseLevelStaleOracle = 1
	PauseLevelLowBacking  = 2
)

// Pause reason codes carried on pause events.
const (
	PauseReasonLowBackingRatio = "low backing ratio"
	PauseReasonStaleOracle     = "stale oracle"
)

// ProtocolState holds the supply/backing/epoch/pause state of the modeled
// protocol. It is mutated only by the protocol state machine and the oracle
// simulator; invariant checks consume it read-only.
type ProtocolState struct {
	TotalSupply  float64 `json:"totalSupply"`
	TotalBacking float64 `json:"totalBacking"`
	// BackingRatio is backing / supply, defaulting to 1 when supply is zero.
	BackingRatio float64 `json:"backingRatio"`

	EpochNumber int     `json:"epochNumber"`
	EpochMinted float64 `json:"epochMinted"`

	IsPaused   bool `json:"isPaused"`
	PauseLevel int  `json:"pauseLevel"`

	OracleStale      bool      `json:"oracleStale"`
	LastOracleUpdate time.Time `json:"lastOracleUpdate"`
	// LastOraclePrice is the market price at the last accepted oracle update.
	// Refreshes re-price backing by the movement since this price, not by the
	// absolute price level.
	LastOraclePrice float64 `json:"lastOraclePrice"`
}

// NewProtocolState seeds protocol state from the run config. The oracle is
// considered freshly updated at the start of the window.
func NewProtocolState(cfg SimulationConfig) ProtocolState {
	s := ProtocolState{
		TotalSupply:      cfg.InitialSupply,
		TotalBacking:     cfg.InitialBacking,
		LastOracleUpdate: cfg.StartDate,
		LastOraclePrice:  ReferencePrice,
	}
	s.RecomputeBackingRatio()
	return s
}

// RecomputeBackingRatio refreshes the derived ratio from supply and backing.
func (s *ProtocolState) RecomputeBackingRatio() {
	s.BackingRatio = randx.SafeDiv(s.TotalBacking, s.TotalSupply, 1)
}
