// Package market evolves the synthetic backing-asset market one tick at a
// time: price (geometric Brownian motion), volatility and liquidity depth
// (mean-reverting), and a gas-price proxy (random walk).
package market

import (
	"math"
	"time"

	"securemint-lab/internal/domain"
	"securemint-lab/internal/randx"
)

// Process constants. Reversion rates and shock scales are per simulated day.
const (
	// crashProbability is the fixed per-tick chance of an instantaneous
	// price shock when the market-crash stress mode is enabled.
	crashProbability = 0.001

	volReversionRate = 0.1
	volShockScale    = 0.005

	liqReversionRate = 0.1
	liqShockScale    = 500_000

	gasStepScale = 5.0
)

// Simulator produces the next MarketState from the previous one. All
// randomness comes from the injected source.
type Simulator struct {
	rng randx.Source
}

// NewSimulator creates a market simulator drawing from rng.
func NewSimulator(rng randx.Source) *Simulator {
	return &Simulator{rng: rng}
}

// Step advances the market by one tick ending at now. Apart from the
// optional crash event it is a pure state transition.
func (s *Simulator) Step(prev domain.MarketState, cfg domain.SimulationConfig, now time.Time) (domain.MarketState, []domain.EventDetails) {
	dtDays := cfg.TimeStepHours / 24
	sqrtDt := math.Sqrt(dtDays)

	next := prev
	next.Timestamp = now

	// GBM price step, zero drift: price *= exp(sigma * sqrt(dt) * Z).
	next.Price = prev.Price * math.Exp(prev.Volatility*sqrtDt*s.rng.NormFloat64())

	// Crash shock fires independently of the GBM step.
	var events []domain.EventDetails
	if cfg.EnableMarketCrashes && s.rng.Float64() < crashProbability {
		next.Price *= 1 - cfg.CrashMagnitude/100
		events = append(events, domain.CrashDetails{
			Magnitude: cfg.CrashMagnitude,
			Price:     next.Price,
		})
	}

	// Mean-reverting volatility, clamped to sane bounds.
	next.Volatility = prev.Volatility +
		volReversionRate*(domain.InitialDailyVolatility-prev.Volatility)*dtDays +
		volShockScale*sqrtDt*s.rng.NormFloat64()
	next.Volatility = randx.Clamp(next.Volatility, domain.MinDailyVolatility, domain.MaxDailyVolatility)

	// Mean-reverting liquidity depth, floored.
	next.Liquidity = prev.Liquidity +
		liqReversionRate*(domain.TargetLiquidity-prev.Liquidity)*dtDays +
		liqShockScale*sqrtDt*s.rng.NormFloat64()
	if next.Liquidity < domain.MinLiquidity {
		next.Liquidity = domain.MinLiquidity
	}

	// Gas price random walk, unbounded above, floored below.
	next.GasPrice = prev.GasPrice + gasStepScale*s.rng.NormFloat64()
	if next.GasPrice < domain.MinGasPrice {
		next.GasPrice = domain.MinGasPrice
	}

	return next, events
}
