// Package accounting holds the pure fill-accounting rule. It is the single
// source of truth for realized PnL; fees and funding never enter here.
package accounting

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// dustEpsilon is the quantity below which a position is treated as flat.
var dustEpsilon = fixed.FromFloat64(1e-9)

// ApplyFill computes the effect of one fill on one position. It returns the
// new position state, the realized PnL attributable to this fill alone and the
// transition classification. The input position is not mutated.
func ApplyFill(pos common.PaperPosition, side common.Side, fillQty, fillPrice fixed.Point, now time.Time) (common.PaperPosition, fixed.Point, common.Transition) {
	signedDelta := side.SignedQty(fillQty)
	oldQty := pos.Quantity
	newQty := oldQty.Add(signedDelta)

	realized := fixed.Zero
	var transition common.Transition

	switch {
	case oldQty.IsZero():
		transition = common.TransitionOpen
		pos.Quantity = newQty
		pos.AvgEntryPrice = fillPrice
		pos.OpenTime = now

	case oldQty.Sign() == signedDelta.Sign():
		transition = common.TransitionAdd
		pos.AvgEntryPrice = vwapEntry(oldQty.Abs(), pos.AvgEntryPrice, fillQty, fillPrice)
		pos.Quantity = newQty

	case signedDelta.Abs().Lte(oldQty.Abs()):
		// Reduce or close; the fill does not cross zero.
		closeQty := signedDelta.Abs().Min(oldQty.Abs())
		realized = closedLegPnL(pos.AvgEntryPrice, fillPrice, closeQty, oldQty.Sign())
		pos.Quantity = newQty
		if newQty.Abs().Lt(dustEpsilon) {
			transition = common.TransitionClose
		} else {
			transition = common.TransitionReduce
		}

	default:
		// Flip: the closing leg realizes PnL at the old average, the residual
		// re-opens in the opposite direction at the fill price.
		transition = common.TransitionFlip
		closeQty := oldQty.Abs()
		realized = closedLegPnL(pos.AvgEntryPrice, fillPrice, closeQty, oldQty.Sign())
		pos.Quantity = newQty
		pos.AvgEntryPrice = fillPrice
		pos.OpenTime = now
	}

	// Dust rule: residuals below epsilon snap to exactly zero.
	if pos.Quantity.Abs().Lt(dustEpsilon) {
		pos.Quantity = fixed.Zero
		pos.AvgEntryPrice = fixed.Zero
		pos.OpenTime = time.Time{}
	}

	pos.RealizedPnL = pos.RealizedPnL.Add(realized)
	pos.LastFillTime = now
	return pos, realized, transition
}

// vwapEntry is the volume-weighted average of the existing quantity at its
// average price and the fill quantity at the fill price.
func vwapEntry(oldQty, oldAvg, fillQty, fillPrice fixed.Point) fixed.Point {
	total := oldQty.Add(fillQty)
	if total.IsZero() {
		return fixed.Zero
	}
	return oldQty.Mul(oldAvg).Add(fillQty.Mul(fillPrice)).Div(total)
}

func closedLegPnL(avgEntry, fillPrice, closeQty fixed.Point, direction int) fixed.Point {
	pnl := fillPrice.Sub(avgEntry).Mul(closeQty)
	if direction < 0 {
		pnl = pnl.Neg()
	}
	return pnl
}
