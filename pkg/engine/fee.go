package engine

import (
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// TieredFeeModel charges flat maker/taker rates on fill notional.
type TieredFeeModel struct {
	makerRate fixed.Point
	takerRate fixed.Point
}

func NewTieredFeeModel(makerRate, takerRate fixed.Point) *TieredFeeModel {
	return &TieredFeeModel{
		makerRate: makerRate,
		takerRate: takerRate,
	}
}

func (m *TieredFeeModel) Compute(notional fixed.Point, isMaker bool) fixed.Point {
	rate := m.takerRate
	if isMaker {
		rate = m.makerRate
	}
	fee := notional.Mul(rate)
	if fee.IsNeg() {
		return fixed.Zero
	}
	return fee
}
