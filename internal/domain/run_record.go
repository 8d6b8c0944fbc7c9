package domain

import "time"

// RunRecord is the persisted header of a completed run: identity, config,
// and derived aggregates. The full event log and invariant history are
// persisted separately, keyed by RunID.
type RunRecord struct {
	RunID      string    `json:"runId"`
	ScenarioID string    `json:"scenarioId"`
	Seed       int64     `json:"seed"`
	CreatedAt  time.Time `json:"createdAt"`
	TotalTicks int       `json:"totalTicks"`

	Config  SimulationConfig  `json:"config"`
	Summary SimulationSummary `json:"summary"`
	Metrics SimulationMetrics `json:"metrics"`
}

// NewRunRecord extracts the persistable header from a result.
func NewRunRecord(res *SimulationResult, createdAt time.Time) *RunRecord {
	return &RunRecord{
		RunID:      res.RunID,
		ScenarioID: res.ScenarioID,
		Seed:       res.Seed,
		CreatedAt:  createdAt,
		TotalTicks: res.TotalTicks,
		Config:     res.Config,
		Summary:    res.Summary,
		Metrics:    res.Metrics,
	}
}
