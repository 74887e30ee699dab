// Package synthetic generates reproducible order book streams from a seeded
// geometric Brownian motion mid price. Identical seed and parameters yield an
// identical session.
package synthetic

import (
	"math/rand"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/feed"
	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

const bookGeneratorComponentName = "feed.synthetic.generator"

var pointFive = fixed.FromInt64(5, 1)

type BookGenerator struct {
	rng *rand.Rand

	startTime time.Time
	mu        fixed.Point
	sigma     fixed.Point
	deltaT    fixed.Point
	steps     int64
	t         int64

	tickInterval time.Duration

	// Pre-calculated GBM drift and diffusion terms.
	deltaLogPre1 fixed.Point
	deltaLogPre2 fixed.Point

	spreadVolatility float64
	minSpread        fixed.Point
	maxSpread        fixed.Point

	levelCount   int
	levelSpacing fixed.Point
	avgLevelSize fixed.Point
	sizeVariance float64

	fundingRate fixed.Point

	lastTime      time.Time
	lastPrice     fixed.Point
	currentSpread fixed.Point
}

func NewBookGenerator(
	rng *rand.Rand,
	startTime time.Time,
	startPrice, fullSpread, mu, sigma, deltaT fixed.Point,
	steps int64) *BookGenerator {

	return &BookGenerator{
		rng: rng,

		startTime: startTime,
		mu:        mu,
		sigma:     sigma,
		deltaT:    deltaT,
		steps:     steps,

		tickInterval: time.Second,

		deltaLogPre1: mu.Sub(sigma.Mul(sigma).Mul(pointFive)).Mul(deltaT),
		deltaLogPre2: sigma.Mul(deltaT.Sqrt()),

		spreadVolatility: 0.1,
		minSpread:        fullSpread.Mul(pointFive),
		maxSpread:        fullSpread.Mul(fixed.FromInt64(15, 1)),

		levelCount:   5,
		levelSpacing: fullSpread,
		avgLevelSize: fixed.FromInt64(10, 0),
		sizeVariance: 0.5,

		lastTime:      startTime,
		lastPrice:     startPrice,
		currentSpread: fullSpread.DivInt64(2),
	}
}

func (g *BookGenerator) SetTickInterval(interval time.Duration) {
	g.tickInterval = interval
}

func (g *BookGenerator) SetSpreadDynamics(volatility float64, minSpread, maxSpread fixed.Point) {
	g.spreadVolatility = volatility
	g.minSpread = minSpread
	g.maxSpread = maxSpread
}

func (g *BookGenerator) SetDepthShape(levels int, spacing, avgSize fixed.Point, sizeVariance float64) {
	g.levelCount = levels
	g.levelSpacing = spacing
	g.avgLevelSize = avgSize
	g.sizeVariance = sizeVariance
}

func (g *BookGenerator) SetFundingRate(rate fixed.Point) {
	g.fundingRate = rate
}

// Book advances the mid one GBM step and builds a symmetric depth ladder
// around it. Returns feed.ErrExhausted after the configured step count.
func (g *BookGenerator) Book() (common.OrderBookSnapshot, error) {
	var book common.OrderBookSnapshot

	if g.t >= g.steps {
		return book, feed.ErrExhausted
	}

	z := g.rng.NormFloat64()
	deltaLog := g.deltaLogPre1.Add(g.deltaLogPre2.Mul(fixed.FromFloat64(z)))
	g.lastPrice = g.lastPrice.Mul(deltaLog.Exp())

	g.updateSpread()

	g.lastTime = g.lastTime.Add(g.tickInterval)
	g.t++

	halfSpread := g.currentSpread.DivInt64(2)
	bestBid := g.lastPrice.Sub(halfSpread)
	bestAsk := g.lastPrice.Add(halfSpread)

	book.Bids = g.buildLadder(bestBid, g.levelSpacing.Neg())
	book.Asks = g.buildLadder(bestAsk, g.levelSpacing)
	book.Source = bookGeneratorComponentName
	book.ExecutionId = utility.GetExecutionID()
	book.TraceID = utility.TraceIDAt(g.lastTime)
	book.TimeStamp = g.lastTime

	return book, nil
}

func (g *BookGenerator) FundingRate() fixed.Point {
	return g.fundingRate
}

func (g *BookGenerator) buildLadder(touch, step fixed.Point) []common.PriceLevel {
	levels := make([]common.PriceLevel, 0, g.levelCount)
	price := touch

	for i := 0; i < g.levelCount; i++ {
		levels = append(levels, common.PriceLevel{
			Price: price,
			Size:  g.generateLevelSize(),
		})
		price = price.Add(step)
	}

	return levels
}

func (g *BookGenerator) generateLevelSize() fixed.Point {
	variation := g.rng.NormFloat64() * g.sizeVariance
	size := g.avgLevelSize.Mul(fixed.FromFloat64(1.0 + variation))
	if size.Lte(fixed.Zero) {
		return fixed.One
	}
	return size
}

func (g *BookGenerator) updateSpread() {
	if g.spreadVolatility <= 0 {
		return
	}

	spreadChange := g.rng.NormFloat64() * g.spreadVolatility
	newSpread := g.currentSpread.Mul(fixed.FromFloat64(1.0 + spreadChange))

	if newSpread.Lt(g.minSpread) {
		g.currentSpread = g.minSpread
	} else if newSpread.Gt(g.maxSpread) {
		g.currentSpread = g.maxSpread
	} else {
		g.currentSpread = newSpread
	}
}
