package domain

import (
	"fmt"
	"strings"
	"time"
)

// SimulationConfig defines a single run. Immutable once a run starts.
// JSON field names and units are the contract with downstream consumers
// (report renderers, CI gates): percentages are 0-100 floats, ratios are
// fractions, amounts are token units.
type SimulationConfig struct {
	// Time window
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	TimeStepHours float64   `json:"timeStepHours"`

	// Initial protocol state
	InitialSupply  float64 `json:"initialSupply"`
	InitialBacking float64 `json:"initialBacking"`

	// Epoch / mint policy
	EpochDurationHours float64 `json:"epochDuration"`
	EpochMintCap       float64 `json:"epochMintCap"`
	MinBackingRatio    float64 `json:"minBackingRatio"`

	// Oracle policy
	OracleStalenessThresholdSec float64 `json:"oracleStalenessThreshold"`
	// OracleDeviationThreshold is accepted for config compatibility but not
	// consumed by the modeled oracle logic. Do not wire behavior to it.
	OracleDeviationThreshold float64 `json:"oracleDeviationThreshold"`

	// Stress modes
	EnableBankRunSimulation  bool    `json:"enableBankRunSimulation"`
	BankRunRedemptionRate    float64 `json:"bankRunRedemptionRate"` // % of supply per tick
	EnableOracleFailures     bool    `json:"enableOracleFailures"`
	OracleFailureProbability float64 `json:"oracleFailureProbability"` // per-tick, 0-1
	EnableMarketCrashes      bool    `json:"enableMarketCrashes"`
	CrashMagnitude           float64 `json:"crashMagnitude"` // % price drop per shock
}

// ConfigError reports every validation failure found in a SimulationConfig.
type ConfigError struct {
	Issues []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid simulation config: %s", strings.Join(e.Issues, "; "))
}

// Validate checks the config once, before any tick executes.
// Returns a *ConfigError listing all problems, or nil.
func (c *SimulationConfig) Validate() error {
	var issues []string

	if !c.EndDate.After(c.StartDate) {
		issues = append(issues, "endDate must be after startDate")
	}
	if c.TimeStepHours <= 0 {
		issues = append(issues, "timeStepHours must be positive")
	}
	if c.InitialSupply < 0 {
		issues = append(issues, "initialSupply must be non-negative")
	}
	if c.InitialBacking < 0 {
		issues = append(issues, "initialBacking must be non-negative")
	}
	if c.EpochDurationHours <= 0 {
		issues = append(issues, "epochDuration must be positive")
	}
	if c.EpochMintCap < 0 {
		issues = append(issues, "epochMintCap must be non-negative")
	}
	if c.MinBackingRatio < 0 {
		issues = append(issues, "minBackingRatio must be non-negative")
	}
	if c.OracleStalenessThresholdSec < 0 {
		issues = append(issues, "oracleStalenessThreshold must be non-negative")
	}
	if c.OracleDeviationThreshold < 0 {
		issues = append(issues, "oracleDeviationThreshold must be non-negative")
	}
	if c.BankRunRedemptionRate < 0 || c.BankRunRedemptionRate > 100 {
		issues = append(issues, "bankRunRedemptionRate must be within [0, 100]")
	}
	if c.OracleFailureProbability < 0 || c.OracleFailureProbability > 1 {
		issues = append(issues, "oracleFailureProbability must be within [0, 1]")
	}
	if c.CrashMagnitude < 0 || c.CrashMagnitude > 100 {
		issues = append(issues, "crashMagnitude must be within [0, 100]")
	}

	if len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

// TickDuration returns the duration of one simulation tick.
func (c *SimulationConfig) TickDuration() time.Duration {
	return time.Duration(c.TimeStepHours * float64(time.Hour))
}

// EpochDuration returns the length of one epoch.
func (c *SimulationConfig) EpochDuration() time.Duration {
	return time.Duration(c.EpochDurationHours * float64(time.Hour))
}

// TickCount returns the number of ticks in the configured window.
func (c *SimulationConfig) TickCount() int {
	step := c.TickDuration()
	if step <= 0 {
		return 0
	}
	return int(c.EndDate.Sub(c.StartDate) / step)
}
