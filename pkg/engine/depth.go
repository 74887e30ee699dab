package engine

import (
	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// depthLedger tracks per-price-level consumption within one tick so that
// multiple orders filling against the same snapshot cannot fabricate more
// liquidity than the book displays. It is rebuilt every tick.
type depthLedger struct {
	consumed map[string]fixed.Point
}

func newDepthLedger() *depthLedger {
	return &depthLedger{
		consumed: make(map[string]fixed.Point),
	}
}

// clamp limits a requested fill quantity to what is still visible at the
// level holding the fill price, and records the consumption. When the price
// does not sit on a visible level the request passes through unclamped; the
// fill model already bounded it.
func (d *depthLedger) clamp(book common.OrderBookSnapshot, price, qty fixed.Point) fixed.Point {
	level, ok := findLevel(book, price)
	if !ok {
		return qty
	}

	key := price.String()
	used := d.consumed[key]
	remaining := level.Size.Sub(used)
	if remaining.Lte(fixed.Zero) {
		return fixed.Zero
	}

	granted := qty.Min(remaining)
	d.consumed[key] = used.Add(granted)
	return granted
}

func findLevel(book common.OrderBookSnapshot, price fixed.Point) (common.PriceLevel, bool) {
	for _, level := range book.Bids {
		if level.Price.Eq(price) {
			return level, true
		}
	}
	for _, level := range book.Asks {
		if level.Price.Eq(price) {
			return level, true
		}
	}
	return common.PriceLevel{}, false
}
