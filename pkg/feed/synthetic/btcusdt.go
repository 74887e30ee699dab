package synthetic

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// NewBtcUsdtBookGenerator builds a generator with tuned BTC-USDT parameters.
// mu and sigma are annualized drift and volatility.
func NewBtcUsdtBookGenerator(rng *rand.Rand, startTime time.Time, duration time.Duration, mu, sigma float64) *BookGenerator {

	const (
		btcStartPrice    = 65_000.0
		btcTypicalSpread = 0.5
		btcMinSpread     = 0.1
		btcMaxSpread     = 2.0

		tickIntervalSeconds = 1.0

		depthLevels       = 5
		avgLevelSizeUnits = 4.0
		levelSizeVariance = 0.5
		spreadVolatility  = 0.12

		perpFundingRate = 0.0001 // 1 bps per interval
	)

	secondsPerYear := 365.25 * 24 * 3600
	deltaT := fixed.FromFloat64(tickIntervalSeconds / secondsPerYear)
	steps := int64(duration.Seconds() / tickIntervalSeconds)

	g := NewBookGenerator(
		rng,
		startTime,
		fixed.FromFloat64(btcStartPrice),
		fixed.FromFloat64(btcTypicalSpread),
		fixed.FromFloat64(mu),
		fixed.FromFloat64(sigma),
		deltaT,
		steps,
	)

	g.SetTickInterval(time.Duration(tickIntervalSeconds * float64(time.Second)))
	g.SetSpreadDynamics(spreadVolatility, fixed.FromFloat64(btcMinSpread), fixed.FromFloat64(btcMaxSpread))
	g.SetDepthShape(depthLevels, fixed.FromFloat64(btcTypicalSpread), fixed.FromFloat64(avgLevelSizeUnits), levelSizeVariance)
	g.SetFundingRate(fixed.FromFloat64(perpFundingRate))

	slog.Debug("BTC-USDT synthetic book generator configuration",
		"duration", duration,
		"mu_annual", mu,
		"sigma_annual", sigma,
		"start_price", btcStartPrice,
		"steps", steps,
		"start_time", startTime,
	)

	return g
}
