package domain

// SimulationSummary holds the run-level counts and extremes.
type SimulationSummary struct {
	TotalEvents         int     `json:"totalEvents"`
	MintCount           int     `json:"mintCount"`
	BurnCount           int     `json:"burnCount"`
	OracleUpdateCount   int     `json:"oracleUpdateCount"`
	OracleFailureCount  int     `json:"oracleFailureCount"`
	PauseCount          int     `json:"pauseCount"`
	BankRunCount        int     `json:"bankRunCount"`
	CrashCount          int     `json:"crashCount"`
	InvariantViolations int     `json:"invariantViolations"`
	MaxDrawdown         float64 `json:"maxDrawdown"`     // worst fractional peak-to-trough of backing ratio
	MinBackingRatio     float64 `json:"minBackingRatio"` // lowest ratio observed
	MaxSupply           float64 `json:"maxSupply"`
	FinalSupply         float64 `json:"finalSupply"`
	FinalBacking        float64 `json:"finalBacking"`
}

// SimulationMetrics is the scoring engine's output, computed once after the
// tick loop terminates. Percentages are 0-100 floats.
type SimulationMetrics struct {
	AvgBackingRatio       float64 `json:"avgBackingRatio"`
	BackingRatioStdDev    float64 `json:"backingRatioStdDev"` // population stddev
	AvgMintPerEpoch       float64 `json:"avgMintPerEpoch"`
	AvgBurnPerEpoch       float64 `json:"avgBurnPerEpoch"`
	MaxRedemptionPressure float64 `json:"maxRedemptionPressure"` // %/tick, from bank-run events
	OracleUptimePercent   float64 `json:"oracleUptimePercent"`
	ProtocolUptimePercent float64 `json:"protocolUptimePercent"`
	EconomicSecurityScore float64 `json:"economicSecurityScore"` // 0-100, clamped
}

// SimulationResult is the terminal artifact of a run and the sole contract
// with downstream collaborators (file writers, report renderers, CI gates).
// Immutable once produced.
type SimulationResult struct {
	RunID      string `json:"runId"`
	ScenarioID string `json:"scenarioId"`
	Seed       int64  `json:"seed"`

	Config  SimulationConfig  `json:"config"`
	Summary SimulationSummary `json:"summary"`
	Metrics SimulationMetrics `json:"metrics"`

	TotalTicks       int               `json:"totalTicks"`
	Events           []SimulationEvent `json:"events"`
	InvariantHistory []InvariantRecord `json:"invariantHistory"`
}
