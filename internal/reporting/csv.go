package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders run rows as CSV string.
func RenderCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,scenario_id,seed,total_ticks,security_score,")
	sb.WriteString("avg_backing_ratio,min_backing_ratio,max_drawdown,")
	sb.WriteString("oracle_uptime_pct,protocol_uptime_pct,violations,")
	sb.WriteString("mint_count,burn_count,bank_run_count,crash_count,pause_count\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%d,%d,%d,%d,%d\n",
			r.RunID,
			r.ScenarioID,
			r.Seed,
			r.TotalTicks,
			r.SecurityScore,
			r.AvgBackingRatio,
			r.MinBackingRatio,
			r.MaxDrawdown,
			r.OracleUptime,
			r.ProtocolUptime,
			r.Violations,
			r.MintCount,
			r.BurnCount,
			r.BankRunCount,
			r.CrashCount,
			r.PauseCount,
		))
	}

	return sb.String()
}
