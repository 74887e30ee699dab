package common

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// Transition classifies the effect of one fill on a position.
type Transition string

const (
	TransitionOpen   Transition = "open"
	TransitionAdd    Transition = "add"
	TransitionReduce Transition = "reduce"
	TransitionClose  Transition = "close"
	TransitionFlip   Transition = "flip"
)

// PaperPosition is the per-instrument position record. Quantity is signed,
// positive for long. RealizedPnL is pure price PnL; fees and funding are
// tracked as separate running totals and never mixed in.
//
// Invariant: Quantity == 0 implies AvgEntryPrice == 0.
type PaperPosition struct {
	Instrument    InstrumentId `json:"instrument"`
	Quantity      fixed.Point  `json:"quantity"`
	AvgEntryPrice fixed.Point  `json:"avg_entry_price"`
	RealizedPnL   fixed.Point  `json:"realized_pnl"`
	UnrealizedPnL fixed.Point  `json:"unrealized_pnl"`
	FeesPaid      fixed.Point  `json:"fees_paid"`
	FundingPaid   fixed.Point  `json:"funding_paid"`
	OpenTime      time.Time    `json:"open_time,omitempty"`
	LastFillTime  time.Time    `json:"last_fill_time,omitempty"`
}

func (p PaperPosition) IsFlat() bool {
	return p.Quantity.IsZero()
}

func (p PaperPosition) IsLong() bool {
	return p.Quantity.IsPos()
}

func (p PaperPosition) IsShort() bool {
	return p.Quantity.IsNeg()
}

// Notional returns |quantity| * price.
func (p PaperPosition) Notional(price fixed.Point) fixed.Point {
	return p.Quantity.Abs().Mul(price)
}
