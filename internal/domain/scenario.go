package domain

import "time"

// Scenario ID constants.
const (
	ScenarioBaseline     = "baseline"
	ScenarioBankRun      = "bank-run"
	ScenarioOracleStress = "oracle-stress"
	ScenarioMarketCrash  = "market-crash"
	ScenarioCombined     = "combined"
)

// ScenarioIDs lists the predefined scenarios in suite order.
var ScenarioIDs = []string{
	ScenarioBaseline,
	ScenarioBankRun,
	ScenarioOracleStress,
	ScenarioMarketCrash,
	ScenarioCombined,
}

// DefaultConfig returns the reference run configuration: one simulated year
// at 1-hour ticks, a fully-backed protocol with daily epochs, and all stress
// modes disabled.
func DefaultConfig(start time.Time) SimulationConfig {
	return SimulationConfig{
		StartDate:                   start,
		EndDate:                     start.AddDate(1, 0, 0),
		TimeStepHours:               1,
		InitialSupply:               10_000_000,
		InitialBacking:              10_500_000,
		EpochDurationHours:          24,
		EpochMintCap:                500_000,
		MinBackingRatio:             1.0,
		OracleStalenessThresholdSec: 3600,
		OracleDeviationThreshold:    5,
	}
}

// ScenarioConfig returns the run configuration for a predefined scenario,
// layering its stress modes on top of DefaultConfig. Unknown IDs return the
// baseline config.
func ScenarioConfig(scenarioID string, start time.Time) SimulationConfig {
	cfg := DefaultConfig(start)

	switch scenarioID {
	case ScenarioBankRun:
		cfg.EnableBankRunSimulation = true
		cfg.BankRunRedemptionRate = 10
	case ScenarioOracleStress:
		cfg.EnableOracleFailures = true
		cfg.OracleFailureProbability = 0.05
	case ScenarioMarketCrash:
		cfg.EnableMarketCrashes = true
		cfg.CrashMagnitude = 30
	case ScenarioCombined:
		cfg.EnableBankRunSimulation = true
		cfg.BankRunRedemptionRate = 10
		cfg.EnableOracleFailures = true
		cfg.OracleFailureProbability = 0.05
		cfg.EnableMarketCrashes = true
		cfg.CrashMagnitude = 30
	}

	return cfg
}
