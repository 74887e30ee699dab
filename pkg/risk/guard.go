// Package risk holds the stateless pre-trade checks. The guard is consulted
// once per order submission; the first failing check wins.
package risk

import (
	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// Guard evaluates its checks in a fixed order: drawdown, per-instrument
// notional cap, portfolio-wide net exposure cap. A zero limit disables the
// corresponding check.
type Guard struct {
	maxDrawdown           fixed.Point
	maxInstrumentNotional fixed.Point
	maxNetExposure        fixed.Point
}

type Option func(*Guard)

func WithMaxDrawdown(fraction fixed.Point) Option {
	return func(g *Guard) {
		g.maxDrawdown = fraction
	}
}

func WithMaxInstrumentNotional(cap fixed.Point) Option {
	return func(g *Guard) {
		g.maxInstrumentNotional = cap
	}
}

func WithMaxNetExposure(cap fixed.Point) Option {
	return func(g *Guard) {
		g.maxNetExposure = cap
	}
}

func NewGuard(options ...Option) *Guard {
	g := &Guard{
		maxDrawdown:           fixed.Zero,
		maxInstrumentNotional: fixed.Zero,
		maxNetExposure:        fixed.Zero,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Input carries the projected portfolio state for one candidate order.
type Input struct {
	Equity     fixed.Point
	PeakEquity fixed.Point

	// Existing position plus the candidate order at the reference price.
	ProjectedInstrumentNotional fixed.Point

	// Signed exposure across all instruments including the candidate order.
	ProjectedNetExposure fixed.Point
}

// Check returns ReasonNone when the order passes all enabled checks.
func (g *Guard) Check(in Input) common.RejectReason {
	if !g.maxDrawdown.IsZero() && in.PeakEquity.IsPos() {
		drawdown := in.PeakEquity.Sub(in.Equity).Div(in.PeakEquity)
		if drawdown.Gt(g.maxDrawdown) {
			return common.ReasonRiskDrawdown
		}
	}

	if !g.maxInstrumentNotional.IsZero() && in.ProjectedInstrumentNotional.Gt(g.maxInstrumentNotional) {
		return common.ReasonRiskInstrumentCap
	}

	if !g.maxNetExposure.IsZero() && in.ProjectedNetExposure.Abs().Gt(g.maxNetExposure) {
		return common.ReasonRiskNetExposure
	}

	return common.ReasonNone
}
