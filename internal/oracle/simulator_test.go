package oracle

import (
	"math"
	"testing"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/randx"
)

func testConfig() domain.SimulationConfig {
	return domain.DefaultConfig(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestStep_NoUpdateBeforeThreshold(t *testing.T) {
	cfg := testConfig() // staleness threshold 3600s
	state := domain.NewProtocolState(cfg)
	mkt := domain.NewMarketState(cfg.StartDate)

	sim := NewSimulator(randx.NewSource(1))

	// Exactly at the threshold: elapsed is not strictly greater, no refresh.
	now := cfg.StartDate.Add(3600 * time.Second)
	events := sim.Step(mkt, &state, cfg, now)

	if len(events) != 0 {
		t.Errorf("expected no events at exact threshold, got %d", len(events))
	}
	if !state.LastOracleUpdate.Equal(cfg.StartDate) {
		t.Error("lastOracleUpdate must not change without a refresh")
	}
}

func TestStep_RefreshRepricesBacking(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	mkt := domain.NewMarketState(cfg.StartDate)
	mkt.Price = 0.9

	sim := NewSimulator(randx.NewSource(1))

	now := cfg.StartDate.Add(2 * time.Hour)
	events := sim.Step(mkt, &state, cfg, now)

	if len(events) != 1 {
		t.Fatalf("expected 1 oracle-update event, got %d", len(events))
	}
	upd, ok := events[0].(domain.OracleUpdateDetails)
	if !ok {
		t.Fatalf("expected OracleUpdateDetails, got %T", events[0])
	}

	wantBacking := cfg.InitialBacking * 0.9
	if state.TotalBacking != wantBacking {
		t.Errorf("backing = %v, want %v", state.TotalBacking, wantBacking)
	}
	if upd.Backing != wantBacking || upd.Price != 0.9 {
		t.Errorf("event payload mismatch: %+v", upd)
	}
	if !state.LastOracleUpdate.Equal(now) {
		t.Error("lastOracleUpdate must move to now on refresh")
	}
	if state.OracleStale {
		t.Error("refresh must clear the stale flag")
	}
}

// A refresh re-prices backing by the movement since the last accepted
// update, not by the absolute price level: consecutive refreshes at a flat
// price must leave backing alone, however far the level sits from 1.0.
func TestStep_RefreshTracksMovementNotLevel(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	mkt := domain.NewMarketState(cfg.StartDate)
	mkt.Price = 0.9

	sim := NewSimulator(randx.NewSource(1))

	if events := sim.Step(mkt, &state, cfg, cfg.StartDate.Add(2*time.Hour)); len(events) != 1 {
		t.Fatalf("expected first refresh, got %d events", len(events))
	}
	if state.LastOraclePrice != 0.9 {
		t.Fatalf("lastOraclePrice = %v, want 0.9", state.LastOraclePrice)
	}
	afterFirst := state.TotalBacking

	// Price holds at 0.9: the next refresh must not re-apply the level.
	if events := sim.Step(mkt, &state, cfg, cfg.StartDate.Add(4*time.Hour)); len(events) != 1 {
		t.Fatalf("expected second refresh, got %d events", len(events))
	}
	if state.TotalBacking != afterFirst {
		t.Errorf("backing moved from %v to %v at a flat price", afterFirst, state.TotalBacking)
	}

	// A 10% recovery scales backing by 0.99/0.9, not by 0.99.
	mkt.Price = 0.99
	if events := sim.Step(mkt, &state, cfg, cfg.StartDate.Add(6*time.Hour)); len(events) != 1 {
		t.Fatalf("expected third refresh, got %d events", len(events))
	}
	want := afterFirst * (0.99 / 0.9)
	if math.Abs(state.TotalBacking-want) > 1e-6*want {
		t.Errorf("backing = %v, want %v", state.TotalBacking, want)
	}
}

func TestStep_FailureSuppressesRefresh(t *testing.T) {
	cfg := testConfig()
	cfg.EnableOracleFailures = true
	cfg.OracleFailureProbability = 1.0 // every draw fails

	state := domain.NewProtocolState(cfg)
	mkt := domain.NewMarketState(cfg.StartDate)

	sim := NewSimulator(randx.NewSource(1))

	// Staleness has long elapsed, but the failure draw wins.
	now := cfg.StartDate.Add(10 * time.Hour)
	events := sim.Step(mkt, &state, cfg, now)

	if len(events) != 1 {
		t.Fatalf("expected 1 oracle-failure event, got %d", len(events))
	}
	if _, ok := events[0].(domain.OracleFailureDetails); !ok {
		t.Fatalf("expected OracleFailureDetails, got %T", events[0])
	}
	if !state.OracleStale {
		t.Error("failure must mark oracle stale")
	}
	if state.TotalBacking != cfg.InitialBacking {
		t.Error("failure tick must not re-price backing")
	}
	if !state.LastOracleUpdate.Equal(cfg.StartDate) {
		t.Error("failure tick must not advance lastOracleUpdate")
	}
}

func TestStep_StalePersistsUntilRefresh(t *testing.T) {
	cfg := testConfig()
	state := domain.NewProtocolState(cfg)
	state.OracleStale = true // set by an earlier failure
	mkt := domain.NewMarketState(cfg.StartDate)

	sim := NewSimulator(randx.NewSource(1))

	// Before the threshold elapses nothing clears the flag.
	events := sim.Step(mkt, &state, cfg, cfg.StartDate.Add(30*time.Minute))
	if len(events) != 0 || !state.OracleStale {
		t.Fatal("stale flag must persist until a successful refresh")
	}

	// The next due refresh clears it.
	events = sim.Step(mkt, &state, cfg, cfg.StartDate.Add(2*time.Hour))
	if len(events) != 1 {
		t.Fatalf("expected refresh event, got %d events", len(events))
	}
	if state.OracleStale {
		t.Error("successful refresh must clear the stale flag")
	}
}
