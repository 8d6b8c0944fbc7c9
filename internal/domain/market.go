package domain

import "time"

// Market model constants.
const (
	// ReferencePrice is the backing asset's starting price (1.0 unit).
	ReferencePrice = 1.0

	// InitialDailyVolatility is the starting and long-run daily volatility (2%).
	InitialDailyVolatility = 0.02

	// MinDailyVolatility and MaxDailyVolatility bound the mean-reverting
	// volatility process.
	MinDailyVolatility = 0.005
	MaxDailyVolatility = 0.20

	// TargetLiquidity is the long-run trading liquidity depth in units.
	TargetLiquidity = 10_000_000.0

	// MinLiquidity is the liquidity floor.
	MinLiquidity = 1_000_000.0

	// InitialGasPrice and MinGasPrice bound the gas-price proxy random walk.
	InitialGasPrice = 50.0
	MinGasPrice     = 10.0
)

// MarketState is the synthetic market snapshot for one tick. It is produced
// by the market simulator and read-only everywhere else.
type MarketState struct {
	Timestamp  time.Time `json:"timestamp"`
	Price      float64   `json:"price"`      // backing asset price, starts at ReferencePrice
	Volatility float64   `json:"volatility"` // daily volatility, mean-reverting
	Liquidity  float64   `json:"liquidity"`  // available trading depth, mean-reverting
	GasPrice   float64   `json:"gasPrice"`   // random walk, floored at MinGasPrice
}

// NewMarketState returns the initial market state for a run.
func NewMarketState(start time.Time) MarketState {
	return MarketState{
		Timestamp:  start,
		Price:      ReferencePrice,
		Volatility: InitialDailyVolatility,
		Liquidity:  TargetLiquidity,
		GasPrice:   InitialGasPrice,
	}
}
