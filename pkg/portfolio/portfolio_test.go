package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/risk"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

var (
	spotId = common.NewInstrumentId("sim", "BTC-USDT", common.InstrumentSpot)
	perpId = common.NewInstrumentId("sim", "ETH-USDT", common.InstrumentPerpetual)
)

func spotSpec() common.InstrumentSpec {
	return common.InstrumentSpec{Id: spotId}
}

func perpSpec() common.InstrumentSpec {
	return common.InstrumentSpec{
		Id:               perpId,
		MarginInitRatio:  fixed.FromFloat64(0.1),
		MarginMaintRatio: fixed.FromFloat64(0.05),
		MaxLeverage:      fixed.FromInt(10, 0),
	}
}

func newTestPortfolio(deposit int) *Portfolio {
	p := New("USDT", risk.NewGuard())
	p.Deposit("USDT", fixed.FromInt(deposit, 0))
	return p
}

func TestPortfolio_SpotSettlementMovesFullNotional(t *testing.T) {
	p := newTestPortfolio(10000)
	now := time.Now()

	qty := fixed.FromFloat64(0.5)
	price := fixed.FromInt(4000, 0)
	fee := fixed.FromInt(2, 0)

	pos, realized, transition := p.SettleFill(spotSpec(), common.SideBuy, qty, price, fee, now)

	assert.Equal(t, common.TransitionOpen, transition)
	assert.True(t, realized.IsZero())
	assert.True(t, pos.Quantity.Eq(qty))

	// 10000 - 2000 notional - 2 fee
	assert.True(t, p.Total("USDT").Eq(fixed.FromInt(7998, 0)), "quote = %s", p.Total("USDT"))
	assert.True(t, p.Total("BTC").Eq(qty), "base = %s", p.Total("BTC"))

	// Sell it all back at the same price: only fees are lost.
	_, _, transition = p.SettleFill(spotSpec(), common.SideSell, qty, price, fee, now)
	assert.Equal(t, common.TransitionClose, transition)
	assert.True(t, p.Total("USDT").Eq(fixed.FromInt(9996, 0)), "quote = %s", p.Total("USDT"))
	assert.True(t, p.Total("BTC").IsZero())
}

func TestPortfolio_LeveragedSettlementIsMarginOnly(t *testing.T) {
	p := newTestPortfolio(10000)
	now := time.Now()

	qty := fixed.One
	entry := fixed.FromInt(2000, 0)
	fee := fixed.One

	p.SettleFill(perpSpec(), common.SideBuy, qty, entry, fee, now)

	// Only the fee moved; notional stays put under margin settlement.
	assert.True(t, p.Total("USDT").Eq(fixed.FromInt(9999, 0)), "quote = %s", p.Total("USDT"))

	// Close at a 100 profit.
	exit := fixed.FromInt(2100, 0)
	pos, realized, transition := p.SettleFill(perpSpec(), common.SideSell, qty, exit, fee, now)

	assert.Equal(t, common.TransitionClose, transition)
	assert.True(t, realized.Eq(fixed.FromInt(100, 0)), "realized = %s", realized)
	assert.True(t, pos.IsFlat())
	// 10000 - 2 fees + 100 pnl
	assert.True(t, p.Total("USDT").Eq(fixed.FromInt(10098, 0)), "quote = %s", p.Total("USDT"))
}

func TestPortfolio_MarkToMarketUnrealized(t *testing.T) {
	p := newTestPortfolio(10000)
	now := time.Now()

	p.SettleFill(perpSpec(), common.SideSell, fixed.Two, fixed.FromInt(1000, 0), fixed.Zero, now)

	p.MarkToMarket(map[string]fixed.Point{perpId.Key(): fixed.FromInt(900, 0)})
	pos := p.Position(perpId)

	// Short 2 @ 1000 marked at 900 is +200 unrealized.
	assert.True(t, pos.UnrealizedPnL.Eq(fixed.FromInt(200, 0)), "unrealized = %s", pos.UnrealizedPnL)
	assert.True(t, p.Equity().Eq(fixed.FromInt(10200, 0)), "equity = %s", p.Equity())

	p.MarkToMarket(map[string]fixed.Point{perpId.Key(): fixed.FromInt(1100, 0)})
	pos = p.Position(perpId)
	assert.True(t, pos.UnrealizedPnL.Eq(fixed.FromInt(-200, 0)), "unrealized = %s", pos.UnrealizedPnL)
}

func TestPortfolio_PeakEquityAndDrawdown(t *testing.T) {
	p := newTestPortfolio(10000)
	now := time.Now()

	p.SettleFill(perpSpec(), common.SideBuy, fixed.One, fixed.FromInt(1000, 0), fixed.Zero, now)
	p.MarkToMarket(map[string]fixed.Point{perpId.Key(): fixed.FromInt(1500, 0)})
	require.True(t, p.PeakEquity().Eq(fixed.FromInt(10500, 0)), "peak = %s", p.PeakEquity())

	p.MarkToMarket(map[string]fixed.Point{perpId.Key(): fixed.FromInt(975, 0)})
	assert.True(t, p.PeakEquity().Eq(fixed.FromInt(10500, 0)), "peak must not fall")

	// (10500 - 9975) / 10500 = 0.05
	assert.True(t, p.Drawdown().Eq(fixed.FromFloat64(0.05)), "drawdown = %s", p.Drawdown())
}

func TestPortfolio_ApplyFunding(t *testing.T) {
	p := newTestPortfolio(1000)
	now := time.Now()

	p.SettleFill(perpSpec(), common.SideBuy, fixed.One, fixed.FromInt(500, 0), fixed.Zero, now)
	ev := p.ApplyFunding(perpId, fixed.FromFloat64(0.0001), fixed.FromInt(5, 0), now)

	assert.Equal(t, common.EventKindFundingApplied, ev.Kind())
	assert.True(t, ev.Charge.Eq(fixed.FromInt(5, 0)))
	assert.True(t, p.Total("USDT").Eq(fixed.FromInt(995, 0)))

	pos := p.Position(perpId)
	assert.True(t, pos.FundingPaid.Eq(fixed.FromInt(5, 0)))
	assert.True(t, pos.RealizedPnL.IsZero(), "funding must not leak into realized pnl")

	ts, ok := p.LastFundingTime(perpId)
	require.True(t, ok)
	assert.Equal(t, now, ts)

	// Negative charge credits the account.
	p.ApplyFunding(perpId, fixed.FromFloat64(-0.0001), fixed.FromInt(-5, 0), now.Add(time.Hour))
	assert.True(t, p.Total("USDT").Eq(fixed.FromInt(1000, 0)))
}

func TestPortfolio_SnapshotRestoreRoundTrip(t *testing.T) {
	p := newTestPortfolio(10000)
	now := time.Now()

	p.SettleFill(perpSpec(), common.SideBuy, fixed.One, fixed.FromInt(2000, 0), fixed.One, now)
	p.Reserve("USDT", fixed.FromInt(300, 0))
	p.ApplyFunding(perpId, fixed.FromFloat64(0.0001), fixed.One, now)

	state := p.Snapshot(now)

	restored := New("USDT", risk.NewGuard())
	restored.RestoreSnapshot(state)

	assert.True(t, restored.Total("USDT").Eq(p.Total("USDT")))
	assert.True(t, restored.Available("USDT").Eq(p.Available("USDT")))
	pos := restored.Position(perpId)
	assert.True(t, pos.Quantity.Eq(fixed.One))
	assert.True(t, pos.AvgEntryPrice.Eq(fixed.FromInt(2000, 0)))
	_, ok := restored.LastFundingTime(perpId)
	assert.True(t, ok)
}

func TestPortfolio_RestoreEmptyStateIsSafe(t *testing.T) {
	p := newTestPortfolio(500)
	p.RestoreSnapshot(State{})

	assert.True(t, p.Total("USDT").IsZero())
	assert.True(t, p.Equity().IsZero())
	assert.Empty(t, p.Positions())
}

func TestPortfolio_RiskGuardWiredThroughCheckOrderRisk(t *testing.T) {
	guard := risk.NewGuard(risk.WithMaxInstrumentNotional(fixed.FromInt(1000, 0)))
	p := New("USDT", guard)
	p.Deposit("USDT", fixed.FromInt(10000, 0))

	reason := p.CheckOrderRisk(perpId, common.SideBuy, fixed.One, fixed.FromInt(900, 0))
	assert.Equal(t, common.ReasonNone, reason)

	reason = p.CheckOrderRisk(perpId, common.SideBuy, fixed.Two, fixed.FromInt(900, 0))
	assert.Equal(t, common.ReasonRiskInstrumentCap, reason)
}
