package reporting

import "time"

// Report is the rendered view of a batch of stored runs.
type Report struct {
	// Metadata
	GeneratedAt   time.Time `json:"generated_at"`
	RunCount      int       `json:"run_count"`
	ScenarioCount int       `json:"scenario_count"`

	// Run rows (sorted by scenario_id, then run_id)
	Runs []RunRow `json:"runs"`

	// Safety gate (one check per run)
	Gate GateSection `json:"gate"`
}

// RunRow is one row in the run metrics table.
type RunRow struct {
	RunID           string  `json:"run_id"`
	ScenarioID      string  `json:"scenario_id"`
	Seed            int64   `json:"seed"`
	TotalTicks      int     `json:"total_ticks"`
	SecurityScore   float64 `json:"security_score"`
	AvgBackingRatio float64 `json:"avg_backing_ratio"`
	MinBackingRatio float64 `json:"min_backing_ratio"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	OracleUptime    float64 `json:"oracle_uptime_percent"`
	ProtocolUptime  float64 `json:"protocol_uptime_percent"`
	Violations      int     `json:"violations"`
	MintCount       int     `json:"mint_count"`
	BurnCount       int     `json:"burn_count"`
	BankRunCount    int     `json:"bank_run_count"`
	CrashCount      int     `json:"crash_count"`
	PauseCount      int     `json:"pause_count"`
}

// GateSection is the pass/fail verdict over all runs. A run passes the gate
// only with zero invariant violations.
type GateSection struct {
	Checks    []GateCheckRow `json:"checks"`
	AllPassed bool           `json:"all_passed"`
}

// GateCheckRow is the gate verdict for one run.
type GateCheckRow struct {
	RunID              string `json:"run_id"`
	ScenarioID         string `json:"scenario_id"`
	Violations         int    `json:"violations"`
	FirstViolationTick int    `json:"first_violation_tick"` // -1 when the run is clean
	Pass               bool   `json:"pass"`
}
