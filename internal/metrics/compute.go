// Package metrics computes the post-run health metrics and the composite
// economic security score from a completed run's event log and summary.
package metrics

import (
	"math"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/randx"
)

// Pause events do not carry a duration, so downtime is estimated with a
// fixed cost per pause event.
const pausedTicksPerPauseEvent = 10

// Score penalty weights.
const (
	violationPenaltyWeight = 100
	backingPenaltyWeight   = 50
	drawdownPenaltyWeight  = 30
	downtimePenaltyWeight  = 0.2
)

// Compute derives all run metrics. Events must be the complete event log in
// emission order; summary and totalTicks come from the same run.
func Compute(events []domain.SimulationEvent, summary domain.SimulationSummary, totalTicks int, finalEpoch int) domain.SimulationMetrics {
	avgRatio, stdDevRatio := backingRatioStats(events)

	var minted, burned, maxPressure float64
	for _, ev := range events {
		switch d := ev.Details.(type) {
		case domain.MintDetails:
			minted += d.Amount
		case domain.BurnDetails:
			burned += d.Amount
		case domain.BankRunDetails:
			if d.RedemptionRate > maxPressure {
				maxPressure = d.RedemptionRate
			}
		}
	}

	epochs := float64(finalEpoch + 1)
	ticks := float64(totalTicks)

	oracleUptime := randx.SafeDiv(ticks-float64(summary.OracleFailureCount), ticks, 1) * 100
	pausedTicks := math.Min(float64(summary.PauseCount)*pausedTicksPerPauseEvent, ticks)
	protocolUptime := randx.SafeDiv(ticks-pausedTicks, ticks, 1) * 100

	m := domain.SimulationMetrics{
		AvgBackingRatio:       avgRatio,
		BackingRatioStdDev:    stdDevRatio,
		AvgMintPerEpoch:       randx.SafeDiv(minted, epochs, 0),
		AvgBurnPerEpoch:       randx.SafeDiv(burned, epochs, 0),
		MaxRedemptionPressure: maxPressure,
		OracleUptimePercent:   randx.Clamp(oracleUptime, 0, 100),
		ProtocolUptimePercent: randx.Clamp(protocolUptime, 0, 100),
	}
	m.EconomicSecurityScore = securityScore(summary, totalTicks, m.ProtocolUptimePercent)
	return m
}

// backingRatioStats returns the mean and population standard deviation of
// the backing ratio over the events that observe it (mint, burn, and
// oracle-update). With no observations the ratio is assumed steady at 1.
func backingRatioStats(events []domain.SimulationEvent) (mean, stdDev float64) {
	var obs []float64
	for _, ev := range events {
		switch d := ev.Details.(type) {
		case domain.MintDetails:
			obs = append(obs, d.BackingRatio)
		case domain.BurnDetails:
			obs = append(obs, d.BackingRatio)
		case domain.OracleUpdateDetails:
			obs = append(obs, d.BackingRatio)
		}
	}
	if len(obs) == 0 {
		return 1, 0
	}

	var sum float64
	for _, r := range obs {
		sum += r
	}
	mean = sum / float64(len(obs))

	var sqDiff float64
	for _, r := range obs {
		d := r - mean
		sqDiff += d * d
	}
	stdDev = math.Sqrt(sqDiff / float64(len(obs)))
	return mean, stdDev
}

// securityScore folds the run's failure modes into a single 0-100 score.
// Four penalties subtract from a perfect 100: the fraction of ticks with an
// invariant violation, the shortfall of the worst backing ratio below 1, the
// worst backing-ratio drawdown, and protocol downtime.
func securityScore(summary domain.SimulationSummary, totalTicks int, protocolUptime float64) float64 {
	violationRatio := randx.SafeDiv(float64(summary.InvariantViolations), float64(totalTicks), 0)
	backingShortfall := math.Max(0, 1-summary.MinBackingRatio)

	score := 100.0
	score -= violationRatio * violationPenaltyWeight
	score -= backingShortfall * backingPenaltyWeight
	score -= summary.MaxDrawdown * drawdownPenaltyWeight
	score -= (100 - protocolUptime) * downtimePenaltyWeight

	return randx.Clamp(score, 0, 100)
}
