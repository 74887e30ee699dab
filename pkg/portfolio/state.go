package portfolio

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// State is the JSON-serializable snapshot of the portfolio. It is written by
// the desk's state store and restored on startup; a partially populated state
// restores whatever it carries and zeroes the rest.
type State struct {
	AccountAsset string                          `json:"account_asset,omitempty"`
	Balances     map[string]fixed.Point          `json:"balances"`
	Reserved     map[string]fixed.Point          `json:"reserved,omitempty"`
	Positions    map[string]common.PaperPosition `json:"positions"`
	FundingTimes map[string]time.Time            `json:"funding_timestamps,omitempty"`
	PeakEquity   fixed.Point                     `json:"peak_equity"`
	TakenAt      time.Time                       `json:"taken_at"`
}

// Snapshot captures the full mutable state.
func (p *Portfolio) Snapshot(now time.Time) State {
	positions := make(map[string]common.PaperPosition, len(p.positions))
	for key, pos := range p.positions {
		positions[key] = *pos
	}
	fundingTimes := make(map[string]time.Time, len(p.funding))
	for key, ts := range p.funding {
		fundingTimes[key] = ts
	}
	return State{
		AccountAsset: p.accountAsset,
		Balances:     p.ledger.Balances(),
		Reserved:     p.ledger.Reservations(),
		Positions:    positions,
		FundingTimes: fundingTimes,
		PeakEquity:   p.peakEquity,
		TakenAt:      now,
	}
}

// RestoreSnapshot replaces the portfolio state with the snapshot contents.
// Missing maps reset to empty; the portfolio never fails to start because a
// snapshot is absent or truncated.
func (p *Portfolio) RestoreSnapshot(state State) {
	p.ledger.Restore(state.Balances, state.Reserved)

	p.positions = make(map[string]*common.PaperPosition, len(state.Positions))
	for key, pos := range state.Positions {
		restored := pos
		p.positions[key] = &restored
	}

	p.funding = make(map[string]time.Time, len(state.FundingTimes))
	for key, ts := range state.FundingTimes {
		p.funding[key] = ts
	}

	p.marks = make(map[string]fixed.Point)
	p.peakEquity = state.PeakEquity
	if equity := p.Equity(); equity.Gt(p.peakEquity) {
		p.peakEquity = equity
	}
}
