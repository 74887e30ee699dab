package main

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/desk"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
	"github.com/peter-kozarec/paperdesk/pkg/utility/ring"
)

const (
	strategyComponentName = "papersim.strategy.reversion"

	reversionWindow = 60
)

var zThreshold = fixed.FromInt64(2, 0)

// reversionStrategy is the demo driver: it fades z-score extremes of the mid
// price with small market orders and flattens when the mid reverts to the
// rolling mean.
type reversionStrategy struct {
	desk       *desk.Desk
	instrument common.InstrumentId
	orderSize  fixed.Point

	mids *ring.Buffer[fixed.Point]
}

func newReversionStrategy(d *desk.Desk, instrument common.InstrumentId, orderSize fixed.Point) *reversionStrategy {
	return &reversionStrategy{
		desk:       d,
		instrument: instrument,
		orderSize:  orderSize,
		mids:       ring.NewBuffer[fixed.Point](reversionWindow),
	}
}

func (s *reversionStrategy) OnTick(now time.Time) {
	mark, ok := s.desk.Portfolio().Mark(s.instrument)
	if !ok {
		return
	}

	s.mids.Add(mark)
	if !s.mids.IsFull() {
		return
	}

	window := s.mids.ToSliceFifo()
	mean := fixed.Mean(window)
	stdDev := fixed.StdDev(window, mean)
	if stdDev.IsZero() {
		return
	}

	z := mark.Sub(mean).Div(stdDev)
	pos := s.desk.Portfolio().Position(s.instrument)

	switch {
	case z.Gte(zThreshold) && !pos.IsShort():
		s.submit(common.SideSell, s.exitQty(pos, common.SideSell), now)
	case z.Lte(zThreshold.Neg()) && !pos.IsLong():
		s.submit(common.SideBuy, s.exitQty(pos, common.SideBuy), now)
	case z.Abs().Lt(fixed.PointOne) && !pos.IsFlat():
		// Reverted; flatten.
		side := common.SideSell
		if pos.IsShort() {
			side = common.SideBuy
		}
		s.submit(side, pos.Quantity.Abs(), now)
	}
}

// exitQty sizes an order so a standing opposite position is closed and a new
// one opened in a single market order.
func (s *reversionStrategy) exitQty(pos common.PaperPosition, side common.Side) fixed.Point {
	qty := s.orderSize
	if side == common.SideSell && pos.IsLong() {
		qty = qty.Add(pos.Quantity)
	}
	if side == common.SideBuy && pos.IsShort() {
		qty = qty.Add(pos.Quantity.Abs())
	}
	return qty
}

func (s *reversionStrategy) submit(side common.Side, qty fixed.Point, now time.Time) {
	if qty.Lte(fixed.Zero) {
		return
	}
	s.desk.SubmitOrder(s.instrument, side, common.OrderTypeMarket, fixed.Zero, qty, fixed.Zero, strategyComponentName, now)
}
