package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Economic Security Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Runs: %d | Scenarios: %d\n\n", r.RunCount, r.ScenarioCount))

	// Run Metrics
	sb.WriteString("## Run Metrics\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Scenario | Seed | Ticks | Score | AvgRatio | MinRatio | MaxDD | OracleUp% | ProtoUp% | Violations |\n")
		sb.WriteString("|-----|----------|------|-------|-------|----------|----------|-------|-----------|----------|------------|\n")
		for _, row := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %.2f | %.4f | %.4f | %.4f | %.2f | %.2f | %d |\n",
				row.RunID, row.ScenarioID, row.Seed, row.TotalTicks,
				row.SecurityScore, row.AvgBackingRatio, row.MinBackingRatio, row.MaxDrawdown,
				row.OracleUptime, row.ProtocolUptime, row.Violations))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Event Activity
	sb.WriteString("## Event Activity\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Scenario | Mints | Burns | BankRuns | Crashes | Pauses |\n")
		sb.WriteString("|-----|----------|-------|-------|----------|---------|--------|\n")
		for _, row := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d |\n",
				row.RunID, row.ScenarioID,
				row.MintCount, row.BurnCount, row.BankRunCount, row.CrashCount, row.PauseCount))
		}
	} else {
		sb.WriteString("No event activity available.\n")
	}
	sb.WriteString("\n")

	// Safety Gate
	sb.WriteString("## Safety Gate\n\n")
	if len(r.Gate.Checks) > 0 {
		sb.WriteString("| Run | Scenario | Violations | First Violation Tick | Status |\n")
		sb.WriteString("|-----|----------|------------|----------------------|--------|\n")
		for _, check := range r.Gate.Checks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			firstTick := "-"
			if check.FirstViolationTick >= 0 {
				firstTick = fmt.Sprintf("%d", check.FirstViolationTick)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				check.RunID, check.ScenarioID, check.Violations, firstTick, status))
		}
		sb.WriteString("\n")

		if r.Gate.AllPassed {
			sb.WriteString("**All runs passed the safety gate.**\n")
		} else {
			sb.WriteString("**Safety gate FAILED.** At least one run violated an invariant.\n")
		}
	} else {
		sb.WriteString("No gate checks performed.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
