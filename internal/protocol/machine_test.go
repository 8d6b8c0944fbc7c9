package protocol

import (
	"testing"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/randx"
)

func testConfig() domain.SimulationConfig {
	return domain.DefaultConfig(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func newMachine() *Machine {
	return NewMachine(randx.NewSource(1))
}

// halfUniform is a fixed source returning 0.5 for every draw, making mint
// and burn amounts exact.
type halfUniform struct{}

func (halfUniform) Float64() float64     { return 0.5 }
func (halfUniform) NormFloat64() float64 { return 0 }

func TestRebalance_BurnsUnbackedSupplyToFloor(t *testing.T) {
	cfg := testConfig() // minBackingRatio 1.0
	state := domain.NewProtocolState(cfg)
	state.TotalBacking = 9_500_000 // a repricing left the run underbacked
	state.RecomputeBackingRatio()

	events := newMachine().Rebalance(&state, cfg)
	if len(events) != 1 {
		t.Fatalf("expected 1 burn event, got %d", len(events))
	}
	burn, ok := events[0].(domain.BurnDetails)
	if !ok {
		t.Fatalf("expected BurnDetails, got %T", events[0])
	}

	if burn.Amount != 500_000 {
		t.Errorf("burn amount = %v, want 500000", burn.Amount)
	}
	if burn.Rate != 0.05 {
		t.Errorf("burn rate = %v, want 0.05", burn.Rate)
	}
	if state.TotalSupply != 9_500_000 {
		t.Errorf("supply = %v, want 9500000", state.TotalSupply)
	}
	// Written off, not redeemed: backing is untouched.
	if state.TotalBacking != 9_500_000 {
		t.Errorf("backing = %v, want 9500000", state.TotalBacking)
	}
	if state.BackingRatio != 1.0 {
		t.Errorf("ratio = %v, want exactly the floor", state.BackingRatio)
	}
}

func TestRebalance_NoActionAtOrAboveFloor(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name    string
		backing float64
	}{
		{"above floor", 10_500_000},
		{"exactly at floor", 10_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := domain.NewProtocolState(cfg)
			state.TotalBacking = tt.backing
			state.RecomputeBackingRatio()
			before := state.TotalSupply

			events := newMachine().Rebalance(&state, cfg)
			if len(events) != 0 {
				t.Error("rebalance must not fire at or above the floor")
			}
			if state.TotalSupply != before {
				t.Error("supply must be unchanged")
			}
		})
	}
}

func TestRebalance_ZeroBackingBurnsAllSupply(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.TotalBacking = 0
	state.RecomputeBackingRatio()

	events := newMachine().Rebalance(&state, cfg)
	if len(events) != 1 {
		t.Fatalf("expected 1 burn event, got %d", len(events))
	}
	if state.TotalSupply != 0 {
		t.Errorf("supply = %v, want 0", state.TotalSupply)
	}
	if state.BackingRatio != 1.0 {
		t.Errorf("empty protocol must report the fallback ratio, got %v", state.BackingRatio)
	}
}

func TestRollEpoch_BeforeBoundary(t *testing.T) {
	cfg := testConfig() // 24h epochs
	state := domain.NewProtocolState(cfg)
	state.EpochMinted = 100

	events := newMachine().RollEpoch(&state, cfg, cfg.StartDate.Add(23*time.Hour))
	if len(events) != 0 {
		t.Fatal("epoch must not roll before the boundary")
	}
	if state.EpochNumber != 0 || state.EpochMinted != 100 {
		t.Error("state must be unchanged before the boundary")
	}
}

func TestRollEpoch_AtBoundaryResetsMinted(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.EpochMinted = 100

	events := newMachine().RollEpoch(&state, cfg, cfg.StartDate.Add(24*time.Hour))
	if len(events) != 1 {
		t.Fatalf("expected 1 epoch-reset event, got %d", len(events))
	}
	reset, ok := events[0].(domain.EpochResetDetails)
	if !ok {
		t.Fatalf("expected EpochResetDetails, got %T", events[0])
	}
	if reset.Epoch != 1 {
		t.Errorf("reset epoch = %d, want 1", reset.Epoch)
	}
	if state.EpochNumber != 1 {
		t.Errorf("epoch number = %d, want 1", state.EpochNumber)
	}
	if state.EpochMinted != 0 {
		t.Errorf("epochMinted = %v, want exactly 0", state.EpochMinted)
	}
}

func TestApplyPauseRules_LowBackingPausesLevel2(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.BackingRatio = 0.94

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 1 {
		t.Fatalf("expected 1 pause event, got %d", len(events))
	}
	pause, ok := events[0].(domain.PauseDetails)
	if !ok {
		t.Fatalf("expected PauseDetails, got %T", events[0])
	}
	if pause.Level != domain.PauseLevelLowBacking || pause.Reason != domain.PauseReasonLowBackingRatio {
		t.Errorf("unexpected pause payload: %+v", pause)
	}
	if !state.IsPaused || state.PauseLevel != 2 {
		t.Errorf("state not paused at level 2: %+v", state)
	}
}

func TestApplyPauseRules_BoundaryRatioDoesNotPause(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.BackingRatio = 0.95 // strict <: exactly 0.95 must NOT pause

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 0 || state.IsPaused {
		t.Error("pause must not trigger at exactly 0.95")
	}
}

func TestApplyPauseRules_StaleOraclePausesLevel1(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.OracleStale = true

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 1 {
		t.Fatalf("expected 1 pause event, got %d", len(events))
	}
	pause := events[0].(domain.PauseDetails)
	if pause.Level != domain.PauseLevelStaleOracle {
		t.Errorf("pause level = %d, want 1", pause.Level)
	}
}

func TestApplyPauseRules_LowBackingTakesPriorityOverStale(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.BackingRatio = 0.90
	state.OracleStale = true

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 1 {
		t.Fatalf("expected a single pause event, got %d", len(events))
	}
	if events[0].(domain.PauseDetails).Level != domain.PauseLevelLowBacking {
		t.Error("low backing ratio must win over stale oracle")
	}
}

func TestApplyPauseRules_NoDoublePause(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.IsPaused = true
	state.PauseLevel = domain.PauseLevelLowBacking
	state.BackingRatio = 0.90
	state.OracleStale = true

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 0 {
		t.Error("an already-paused protocol must not re-pause")
	}
	if state.PauseLevel != domain.PauseLevelLowBacking {
		t.Error("pause level must be preserved")
	}
}

func TestApplyPauseRules_Unpause(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.IsPaused = true
	state.PauseLevel = domain.PauseLevelStaleOracle
	state.BackingRatio = 1.0
	state.OracleStale = false

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 1 {
		t.Fatalf("expected 1 unpause event, got %d", len(events))
	}
	if _, ok := events[0].(domain.UnpauseDetails); !ok {
		t.Fatalf("expected UnpauseDetails, got %T", events[0])
	}
	if state.IsPaused || state.PauseLevel != domain.PauseLevelNone {
		t.Errorf("state must be unpaused: %+v", state)
	}
}

func TestApplyPauseRules_NoUnpauseWhileStale(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.IsPaused = true
	state.PauseLevel = domain.PauseLevelStaleOracle
	state.BackingRatio = 1.2
	state.OracleStale = true

	events := newMachine().ApplyPauseRules(&state)
	if len(events) != 0 || !state.IsPaused {
		t.Error("unpause requires a fresh oracle")
	}
}

func TestAttemptMint_GateBlocked(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name   string
		mutate func(*domain.ProtocolState)
	}{
		{"paused", func(s *domain.ProtocolState) { s.IsPaused = true }},
		{"stale oracle", func(s *domain.ProtocolState) { s.OracleStale = true }},
		{"epoch cap exhausted", func(s *domain.ProtocolState) { s.EpochMinted = cfg.EpochMintCap }},
		{"no backing headroom", func(s *domain.ProtocolState) {
			// supply == backing * minRatio leaves zero headroom
			s.TotalSupply = s.TotalBacking * cfg.MinBackingRatio
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := domain.NewProtocolState(cfg)
			tt.mutate(&state)
			before := state.TotalSupply

			events := newMachine().AttemptMint(&state, cfg)
			if len(events) != 0 {
				t.Error("blocked mint must emit no event")
			}
			if state.TotalSupply != before {
				t.Error("blocked mint must not change supply")
			}
		})
	}
}

func TestAttemptMint_AmountBoundedByHalfHeadroom(t *testing.T) {
	cfg := testConfig()
	// headroom: epoch cap 500k vs backing headroom 500k (10.5M*1.0 - 10M)
	state := domain.NewProtocolState(cfg)

	m := NewMachine(halfUniform{})
	events := m.AttemptMint(&state, cfg)
	if len(events) != 1 {
		t.Fatalf("expected mint event, got %d", len(events))
	}
	mint := events[0].(domain.MintDetails)

	// 0.5 draw * 500_000 headroom * 0.5 cap = 125_000
	if mint.Amount != 125_000 {
		t.Errorf("mint amount = %v, want 125000", mint.Amount)
	}
	if state.TotalSupply != 10_125_000 {
		t.Errorf("supply = %v, want 10125000", state.TotalSupply)
	}
	if state.EpochMinted != 125_000 {
		t.Errorf("epochMinted = %v, want 125000", state.EpochMinted)
	}
	if mint.BackingRatio != state.BackingRatio {
		t.Error("mint payload must carry the recomputed ratio")
	}
}

func TestAttemptMint_NeverExceedsEpochCap(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.TotalBacking = 100_000_000 // backing never the binding constraint
	state.RecomputeBackingRatio()

	m := newMachine()
	for i := 0; i < 10000; i++ {
		m.AttemptMint(&state, cfg)
		if state.EpochMinted > cfg.EpochMintCap {
			t.Fatalf("iteration %d: epochMinted %v exceeded cap %v", i, state.EpochMinted, cfg.EpochMintCap)
		}
	}
}

func TestAttemptRedemption_BaselineBurn(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)

	m := NewMachine(halfUniform{})
	events := m.AttemptRedemption(&state, cfg)
	if len(events) != 1 {
		t.Fatalf("expected 1 burn event, got %d", len(events))
	}
	burn := events[0].(domain.BurnDetails)

	// rate = 0.5 * 0.02 = 1% of 10M supply
	if burn.Rate != 0.01 {
		t.Errorf("rate = %v, want 0.01", burn.Rate)
	}
	if burn.Amount != 100_000 {
		t.Errorf("amount = %v, want 100000", burn.Amount)
	}
	if state.TotalSupply != 9_900_000 {
		t.Errorf("supply = %v, want 9900000", state.TotalSupply)
	}
	// Redemption returns backing 1:1 with burned supply.
	if state.TotalBacking != 10_400_000 {
		t.Errorf("backing = %v, want 10400000", state.TotalBacking)
	}
}

// zeroUniform always draws 0, so surge checks fire and baseline rates are 0.
type zeroUniform struct{}

func (zeroUniform) Float64() float64     { return 0 }
func (zeroUniform) NormFloat64() float64 { return 0 }

func TestAttemptRedemption_SurgeOverridesBaseline(t *testing.T) {
	cfg := testConfig()
	cfg.EnableBankRunSimulation = true
	cfg.BankRunRedemptionRate = 10

	state := domain.NewProtocolState(cfg)

	m := NewMachine(zeroUniform{})
	events := m.AttemptRedemption(&state, cfg)

	// Baseline draw is 0 but the surge overrides it with 10%/tick.
	if len(events) != 2 {
		t.Fatalf("expected bank-run and burn events, got %d", len(events))
	}
	bankRun, ok := events[0].(domain.BankRunDetails)
	if !ok {
		t.Fatalf("expected BankRunDetails first, got %T", events[0])
	}
	if bankRun.RedemptionRate != 10 {
		t.Errorf("surge rate = %v, want 10", bankRun.RedemptionRate)
	}
	burn, ok := events[1].(domain.BurnDetails)
	if !ok {
		t.Fatalf("expected BurnDetails second, got %T", events[1])
	}
	if burn.Rate != 0.10 {
		t.Errorf("burn rate = %v, want 0.10", burn.Rate)
	}
	if burn.Amount != 1_000_000 {
		t.Errorf("burn amount = %v, want 1000000", burn.Amount)
	}
}

func TestAttemptRedemption_BurnBoundedByBacking(t *testing.T) {
	cfg := testConfig()
	cfg.InitialSupply = 1_000_000
	cfg.InitialBacking = 100
	state := domain.NewProtocolState(cfg)

	// halfUniform draws a 1% rate: 10_000 of supply, but only 100 of backing
	// remains to redeem against.
	m := NewMachine(halfUniform{})
	events := m.AttemptRedemption(&state, cfg)
	if len(events) != 1 {
		t.Fatalf("expected 1 burn event, got %d", len(events))
	}
	burn := events[0].(domain.BurnDetails)

	if burn.Amount != 100 {
		t.Errorf("burn amount = %v, want 100", burn.Amount)
	}
	if state.TotalBacking != 0 {
		t.Errorf("backing = %v, want 0", state.TotalBacking)
	}
	if state.TotalSupply != 999_900 {
		t.Errorf("supply = %v, want 999900", state.TotalSupply)
	}

	// Repeated pressure on a drained pool must never take backing negative.
	for i := 0; i < 100; i++ {
		m.AttemptRedemption(&state, cfg)
		if state.TotalBacking < 0 {
			t.Fatalf("iteration %d: backing went negative: %v", i, state.TotalBacking)
		}
	}
}

func TestAttemptRedemption_ZeroSupplyNoBurn(t *testing.T) {
	cfg := testConfig()
	cfg.InitialSupply = 0
	state := domain.NewProtocolState(cfg)

	m := NewMachine(halfUniform{})
	events := m.AttemptRedemption(&state, cfg)
	if len(events) != 0 {
		t.Error("zero supply must produce no burn event")
	}
}
