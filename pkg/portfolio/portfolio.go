// Package portfolio composes the ledger, the risk guard and the per-instrument
// position map behind one aggregate. No other component writes these directly.
package portfolio

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/accounting"
	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/ledger"
	"github.com/peter-kozarec/paperdesk/pkg/risk"
	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

const componentName = "portfolio"

// Portfolio tracks balances, reservations, positions and peak equity for one
// shared capital pool. All instruments are assumed to quote in the account
// asset, so equity is expressed in that single denomination.
type Portfolio struct {
	accountAsset string

	ledger    *ledger.Ledger
	guard     *risk.Guard
	positions map[string]*common.PaperPosition
	marks     map[string]fixed.Point
	funding   map[string]time.Time

	peakEquity fixed.Point
}

func New(accountAsset string, guard *risk.Guard) *Portfolio {
	return &Portfolio{
		accountAsset: accountAsset,
		ledger:       ledger.New(),
		guard:        guard,
		positions:    make(map[string]*common.PaperPosition),
		marks:        make(map[string]fixed.Point),
		funding:      make(map[string]time.Time),
	}
}

func (p *Portfolio) AccountAsset() string {
	return p.accountAsset
}

// Deposit credits starting capital.
func (p *Portfolio) Deposit(asset string, amount fixed.Point) {
	p.ledger.Credit(asset, amount)
	if equity := p.Equity(); equity.Gt(p.peakEquity) {
		p.peakEquity = equity
	}
}

func (p *Portfolio) Available(asset string) fixed.Point {
	return p.ledger.Available(asset)
}

func (p *Portfolio) Total(asset string) fixed.Point {
	return p.ledger.Total(asset)
}

func (p *Portfolio) CanReserve(asset string, amount fixed.Point) bool {
	return p.ledger.CanReserve(asset, amount)
}

func (p *Portfolio) Reserve(asset string, amount fixed.Point) {
	p.ledger.Reserve(asset, amount)
}

func (p *Portfolio) Release(asset string, amount fixed.Point) {
	p.ledger.Release(asset, amount)
}

// Position returns a copy of the position for the instrument, zero-valued if
// none exists yet.
func (p *Portfolio) Position(id common.InstrumentId) common.PaperPosition {
	if pos, ok := p.positions[id.Key()]; ok {
		return *pos
	}
	return common.PaperPosition{Instrument: id}
}

// Positions returns copies of all non-flat positions keyed by instrument key.
func (p *Portfolio) Positions() map[string]common.PaperPosition {
	out := make(map[string]common.PaperPosition, len(p.positions))
	for key, pos := range p.positions {
		out[key] = *pos
	}
	return out
}

// SettleFill applies one fill: position accounting first, then the matching
// ledger movement. Spot instruments move full notional; leveraged instruments
// move only the fee and the realized PnL (margin-only settlement).
func (p *Portfolio) SettleFill(spec common.InstrumentSpec, side common.Side, qty, price, fee fixed.Point, now time.Time) (common.PaperPosition, fixed.Point, common.Transition) {
	id := spec.Id
	key := id.Key()

	pos, ok := p.positions[key]
	if !ok {
		pos = &common.PaperPosition{Instrument: id}
		p.positions[key] = pos
	}

	newPos, realized, transition := accounting.ApplyFill(*pos, side, qty, price, now)
	newPos.FeesPaid = pos.FeesPaid.Add(fee)
	*pos = newPos

	notional := qty.Mul(price)
	quote := id.QuoteAsset()

	if id.IsLeveraged() {
		p.ledger.Debit(quote, fee)
		if realized.IsPos() {
			p.ledger.Credit(quote, realized)
		} else if realized.IsNeg() {
			p.ledger.Debit(quote, realized.Abs())
		}
	} else {
		base := id.BaseAsset()
		if side == common.SideBuy {
			p.ledger.Debit(quote, notional.Add(fee))
			p.ledger.Credit(base, qty)
		} else {
			p.ledger.Debit(base, qty)
			p.ledger.Credit(quote, notional.Sub(fee))
		}
	}

	p.marks[key] = price
	p.refreshUnrealized(pos)

	if equity := p.Equity(); equity.Gt(p.peakEquity) {
		p.peakEquity = equity
	}

	return *pos, realized, transition
}

// MarkToMarket recomputes unrealized PnL from the given prices, keyed by
// instrument key. Instruments without a fresh price keep their previous mark.
func (p *Portfolio) MarkToMarket(prices map[string]fixed.Point) {
	for key, price := range prices {
		if price.IsPos() {
			p.marks[key] = price
		}
	}
	for _, pos := range p.positions {
		p.refreshUnrealized(pos)
	}
	if equity := p.Equity(); equity.Gt(p.peakEquity) {
		p.peakEquity = equity
	}
}

func (p *Portfolio) refreshUnrealized(pos *common.PaperPosition) {
	mark, ok := p.marks[pos.Instrument.Key()]
	if !ok || pos.IsFlat() {
		pos.UnrealizedPnL = fixed.Zero
		return
	}
	if pos.Instrument.IsLeveraged() {
		pnl := mark.Sub(pos.AvgEntryPrice).Mul(pos.Quantity.Abs())
		if pos.IsShort() {
			pnl = pnl.Neg()
		}
		pos.UnrealizedPnL = pnl
	} else {
		// Spot positions contribute their full marked value to equity.
		pos.UnrealizedPnL = pos.Quantity.Mul(mark)
	}
}

// ApplyFunding debits a funding charge from the quote balance, records it on
// the position and returns the resulting event. A negative charge is a credit.
func (p *Portfolio) ApplyFunding(id common.InstrumentId, rate, charge fixed.Point, now time.Time) common.FundingApplied {
	key := id.Key()

	if pos, ok := p.positions[key]; ok {
		pos.FundingPaid = pos.FundingPaid.Add(charge)
	}
	if charge.IsPos() {
		p.ledger.Debit(id.QuoteAsset(), charge)
	} else if charge.IsNeg() {
		p.ledger.Credit(id.QuoteAsset(), charge.Abs())
	}
	p.funding[key] = now

	return common.FundingApplied{
		Instrument:  id,
		Rate:        rate,
		Charge:      charge,
		Source:      componentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.TraceIDAt(now),
		TimeStamp:   now,
	}
}

// LastFundingTime returns when funding was last applied for the instrument.
func (p *Portfolio) LastFundingTime(id common.InstrumentId) (time.Time, bool) {
	ts, ok := p.funding[id.Key()]
	return ts, ok
}

func (p *Portfolio) Mark(id common.InstrumentId) (fixed.Point, bool) {
	mark, ok := p.marks[id.Key()]
	return mark, ok
}

// Equity is the account-asset total plus the marked value of every position.
// Base-asset spot balances are represented through their position marks, not
// counted twice.
func (p *Portfolio) Equity() fixed.Point {
	equity := p.ledger.Total(p.accountAsset)
	for _, pos := range p.positions {
		equity = equity.Add(pos.UnrealizedPnL)
	}
	return equity
}

func (p *Portfolio) PeakEquity() fixed.Point {
	return p.peakEquity
}

// Drawdown is the fraction of peak equity lost, zero when at the peak.
func (p *Portfolio) Drawdown() fixed.Point {
	if !p.peakEquity.IsPos() {
		return fixed.Zero
	}
	dd := p.peakEquity.Sub(p.Equity()).Div(p.peakEquity)
	if dd.IsNeg() {
		return fixed.Zero
	}
	return dd
}

// CheckOrderRisk projects the candidate order onto the portfolio and runs the
// guard checks in their fixed order.
func (p *Portfolio) CheckOrderRisk(id common.InstrumentId, side common.Side, qty, refPrice fixed.Point) common.RejectReason {
	pos := p.Position(id)
	projectedQty := pos.Quantity.Add(side.SignedQty(qty))

	netExposure := side.SignedQty(qty).Mul(refPrice)
	for key, other := range p.positions {
		mark, ok := p.marks[key]
		if !ok {
			continue
		}
		netExposure = netExposure.Add(other.Quantity.Mul(mark))
	}

	return p.guard.Check(risk.Input{
		Equity:                      p.Equity(),
		PeakEquity:                  p.peakEquity,
		ProjectedInstrumentNotional: projectedQty.Abs().Mul(refPrice),
		ProjectedNetExposure:        netExposure,
	})
}
