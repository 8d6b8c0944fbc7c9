// Package reporting turns stored runs into human-readable reports and the
// machine-readable safety gate verdict consumed by CI.
package reporting

import (
	"context"
	"sort"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	runStore     storage.RunStore
	historyStore storage.InvariantHistoryStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, historyStore storage.InvariantHistoryStore) *Generator {
	return &Generator{
		runStore:     runStore,
		historyStore: historyStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over every stored run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]RunRow, 0, len(runs))
	checks := make([]GateCheckRow, 0, len(runs))
	scenarioSet := make(map[string]struct{})
	allPassed := true

	for _, r := range runs {
		scenarioSet[r.ScenarioID] = struct{}{}
		rows = append(rows, runRow(r))

		check, err := g.gateCheck(ctx, r)
		if err != nil {
			return nil, err
		}
		if !check.Pass {
			allPassed = false
		}
		checks = append(checks, check)
	}

	sortRows(rows)
	sort.Slice(checks, func(i, j int) bool {
		if checks[i].ScenarioID != checks[j].ScenarioID {
			return checks[i].ScenarioID < checks[j].ScenarioID
		}
		return checks[i].RunID < checks[j].RunID
	})

	return &Report{
		GeneratedAt:   g.now(),
		RunCount:      len(runs),
		ScenarioCount: len(scenarioSet),
		Runs:          rows,
		Gate: GateSection{
			Checks:    checks,
			AllPassed: allPassed,
		},
	}, nil
}

func runRow(r *domain.RunRecord) RunRow {
	return RunRow{
		RunID:           r.RunID,
		ScenarioID:      r.ScenarioID,
		Seed:            r.Seed,
		TotalTicks:      r.TotalTicks,
		SecurityScore:   r.Metrics.EconomicSecurityScore,
		AvgBackingRatio: r.Metrics.AvgBackingRatio,
		MinBackingRatio: r.Summary.MinBackingRatio,
		MaxDrawdown:     r.Summary.MaxDrawdown,
		OracleUptime:    r.Metrics.OracleUptimePercent,
		ProtocolUptime:  r.Metrics.ProtocolUptimePercent,
		Violations:      r.Summary.InvariantViolations,
		MintCount:       r.Summary.MintCount,
		BurnCount:       r.Summary.BurnCount,
		BankRunCount:    r.Summary.BankRunCount,
		CrashCount:      r.Summary.CrashCount,
		PauseCount:      r.Summary.PauseCount,
	}
}

// gateCheck consults the invariant history rather than trusting the summary
// counter, so a stale or hand-edited header cannot pass the gate.
func (g *Generator) gateCheck(ctx context.Context, r *domain.RunRecord) (GateCheckRow, error) {
	violations, err := g.historyStore.GetViolations(ctx, r.RunID)
	if err != nil {
		return GateCheckRow{}, err
	}

	check := GateCheckRow{
		RunID:              r.RunID,
		ScenarioID:         r.ScenarioID,
		Violations:         len(violations),
		FirstViolationTick: -1,
		Pass:               len(violations) == 0,
	}
	if len(violations) > 0 {
		check.FirstViolationTick = violations[0].Tick
	}
	return check, nil
}

func sortRows(rows []RunRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ScenarioID != rows[j].ScenarioID {
			return rows[i].ScenarioID < rows[j].ScenarioID
		}
		return rows[i].RunID < rows[j].RunID
	})
}
