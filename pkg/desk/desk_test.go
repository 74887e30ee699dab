package desk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/feed"
	"github.com/peter-kozarec/paperdesk/pkg/portfolio"
	"github.com/peter-kozarec/paperdesk/pkg/risk"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubFeed struct {
	book common.OrderBookSnapshot
	err  error
	rate fixed.Point
}

func (f *stubFeed) Book() (common.OrderBookSnapshot, error) { return f.book, f.err }
func (f *stubFeed) FundingRate() fixed.Point                { return f.rate }

type countingStore struct {
	saves  int
	state  portfolio.State
	failed bool
}

func (s *countingStore) Save(state portfolio.State) error {
	if s.failed {
		return errors.New("disk full")
	}
	s.saves++
	s.state = state
	return nil
}

func (s *countingStore) Load() (portfolio.State, error) { return s.state, nil }

func spotSpec() common.InstrumentSpec {
	return common.InstrumentSpec{
		Id:           common.NewInstrumentId("paper", "BTC-USDT", common.InstrumentSpot),
		PriceTick:    fixed.FromFloat64(0.01),
		SizeTick:     fixed.FromFloat64(0.001),
		MakerFeeRate: fixed.FromFloat64(0.001),
		TakerFeeRate: fixed.FromFloat64(0.002),
	}
}

func perpSpec() common.InstrumentSpec {
	s := spotSpec()
	s.Id = common.NewInstrumentId("paper", "BTC-USDT", common.InstrumentPerpetual)
	s.MarginInitRatio = fixed.One
	s.MarginMaintRatio = fixed.FromFloat64(0.005)
	s.MaxLeverage = fixed.FromInt(20, 0)
	s.FundingInterval = time.Hour
	return s
}

func bookAt(bid, ask, size float64) common.OrderBookSnapshot {
	return common.OrderBookSnapshot{
		Bids: []common.PriceLevel{{Price: fixed.FromFloat64(bid), Size: fixed.FromFloat64(size)}},
		Asks: []common.PriceLevel{{Price: fixed.FromFloat64(ask), Size: fixed.FromFloat64(size)}},
	}
}

func newTestDesk(t *testing.T, funds int, options ...Option) *Desk {
	t.Helper()
	pf := portfolio.New("USDT", risk.NewGuard())
	pf.Deposit("USDT", fixed.FromInt(funds, 0))
	return New(pf, options...)
}

func TestRegisterInstrumentRejectsDuplicates(t *testing.T) {
	d := newTestDesk(t, 10_000)

	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	err := d.RegisterInstrument(spotSpec(), &stubFeed{})
	require.Error(t, err)

	var dup *DuplicateInstrumentError
	assert.ErrorAs(t, err, &dup)
}

func TestSubmitOrderUnknownInstrument(t *testing.T) {
	d := newTestDesk(t, 10_000)

	ev := d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.Zero, "test", testStart)

	rejected, ok := ev.(common.OrderRejected)
	require.True(t, ok)
	assert.Equal(t, common.ReasonUnknownInstrument, rejected.Reason)
	assert.Len(t, d.Events(), 1)
}

func TestTickFillsMarketOrderEndToEnd(t *testing.T) {
	d := newTestDesk(t, 100_000)
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	ev := d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.Zero, "test", testStart)
	require.IsType(t, common.OrderRejected{}, ev, "no book before the first tick")

	d.Tick(context.Background(), testStart)

	ev = d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.Zero, "test", testStart)
	require.IsType(t, common.OrderAccepted{}, ev)

	events := d.Tick(context.Background(), testStart.Add(time.Second))

	var filled bool
	for _, ev := range events {
		if _, ok := ev.(common.OrderFilled); ok {
			filled = true
		}
	}
	assert.True(t, filled)
	assert.True(t, d.Portfolio().Position(spotSpec().Id).Quantity.Eq(fixed.One))

	stats := d.Stats()
	require.Len(t, stats.Engines, 1)
	assert.Equal(t, uint64(1), stats.Engines[0].FillCount)
}

func TestTickSkipsFaultedFeed(t *testing.T) {
	d := newTestDesk(t, 100_000)
	f := &stubFeed{book: bookAt(99, 101, 10)}
	require.NoError(t, d.RegisterInstrument(spotSpec(), f))

	d.Tick(context.Background(), testStart)

	// The feed breaks; the engine keeps matching on its last good book.
	f.err = errors.New("connection reset")
	d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.Zero, "test", testStart)
	events := d.Tick(context.Background(), testStart.Add(time.Second))

	var filled bool
	for _, ev := range events {
		if _, ok := ev.(common.OrderFilled); ok {
			filled = true
		}
	}
	assert.True(t, filled)
	assert.False(t, d.Exhausted())
}

func TestExhaustedFeeds(t *testing.T) {
	d := newTestDesk(t, 10_000)
	f := &stubFeed{err: feed.ErrExhausted}
	require.NoError(t, d.RegisterInstrument(spotSpec(), f))

	assert.False(t, d.Exhausted())
	d.Tick(context.Background(), testStart)
	assert.True(t, d.Exhausted())
}

func TestFundingAppliedAfterInterval(t *testing.T) {
	d := newTestDesk(t, 100_000)
	f := &stubFeed{book: bookAt(99, 101, 10), rate: fixed.FromFloat64(0.0001)}
	require.NoError(t, d.RegisterInstrument(perpSpec(), f))

	d.Tick(context.Background(), testStart)
	d.SubmitOrder(perpSpec().Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.FromInt(10, 0), "test", testStart)
	events := d.Tick(context.Background(), testStart.Add(time.Second))

	for _, ev := range events {
		_, isFunding := ev.(common.FundingApplied)
		assert.False(t, isFunding, "funding must not apply within the interval")
	}

	before := d.Portfolio().Total("USDT")
	events = d.Tick(context.Background(), testStart.Add(2*time.Hour))

	var funding *common.FundingApplied
	for _, ev := range events {
		if v, ok := ev.(common.FundingApplied); ok {
			funding = &v
		}
	}
	require.NotNil(t, funding)
	assert.True(t, funding.Rate.Eq(fixed.FromFloat64(0.0001)))
	assert.True(t, funding.Charge.IsPos(), "long pays a positive rate")
	assert.True(t, d.Portfolio().Total("USDT").Lt(before))
}

func TestLiquidationNoticeIsAdvisory(t *testing.T) {
	spec := perpSpec()
	spec.MarginMaintRatio = fixed.FromFloat64(0.5)

	d := newTestDesk(t, 15)
	f := &stubFeed{book: bookAt(99, 101, 10)}
	require.NoError(t, d.RegisterInstrument(spec, f))

	d.Tick(context.Background(), testStart)
	ev := d.SubmitOrder(spec.Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.FromInt(10, 0), "test", testStart)
	require.IsType(t, common.OrderAccepted{}, ev)

	events := d.Tick(context.Background(), testStart.Add(time.Second))

	var notice *common.LiquidationNotice
	for _, ev := range events {
		if v, ok := ev.(common.LiquidationNotice); ok {
			notice = &v
		}
	}
	require.NotNil(t, notice, "equity below maintenance margin must produce a notice")
	assert.True(t, notice.MaintenanceMargin.IsPos())

	// Advisory only: the position survives.
	assert.False(t, d.Portfolio().Position(spec.Id).IsFlat())
}

func TestSnapshotThrottling(t *testing.T) {
	store := &countingStore{}
	d := newTestDesk(t, 10_000,
		WithStateStore(store),
		WithSnapshotInterval(10*time.Second))
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	d.Tick(context.Background(), testStart)
	d.Tick(context.Background(), testStart.Add(time.Second))
	d.Tick(context.Background(), testStart.Add(2*time.Second))
	assert.Equal(t, 1, store.saves, "snapshots within the interval are skipped")

	d.Tick(context.Background(), testStart.Add(15*time.Second))
	assert.Equal(t, 2, store.saves)
}

func TestStoreFailureDoesNotBreakTick(t *testing.T) {
	store := &countingStore{failed: true}
	d := newTestDesk(t, 10_000, WithStateStore(store))
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	require.NotPanics(t, func() {
		d.Tick(context.Background(), testStart)
	})
}

func TestRestoreRoundTrip(t *testing.T) {
	store := &countingStore{}
	d := newTestDesk(t, 100_000, WithStateStore(store))
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	d.Tick(context.Background(), testStart)
	d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeMarket, fixed.Zero, fixed.One, fixed.Zero, "test", testStart)
	d.Tick(context.Background(), testStart.Add(time.Second))

	saved := store.state
	require.NotEmpty(t, saved.Positions)

	fresh := New(portfolio.New("USDT", risk.NewGuard()), WithStateStore(store))
	require.NoError(t, fresh.Restore())
	assert.True(t, fresh.Portfolio().Position(spotSpec().Id).Quantity.Eq(fixed.One))
	assert.True(t, fresh.Portfolio().Total("USDT").Eq(d.Portfolio().Total("USDT")))
}

func TestCancelAllAcrossInstruments(t *testing.T) {
	d := newTestDesk(t, 100_000)
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))
	require.NoError(t, d.RegisterInstrument(perpSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	d.Tick(context.Background(), testStart)
	d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeLimit, fixed.FromInt(95, 0), fixed.One, fixed.Zero, "a", testStart)
	d.SubmitOrder(perpSpec().Id, common.SideBuy, common.OrderTypeLimit, fixed.FromInt(95, 0), fixed.One, fixed.FromInt(5, 0), "b", testStart)

	events := d.CancelAll(testStart.Add(time.Second))
	assert.Len(t, events, 2)
	assert.Empty(t, d.OpenOrders(spotSpec().Id))
	assert.Empty(t, d.OpenOrders(perpSpec().Id))
	assert.True(t, d.Portfolio().Available("USDT").Eq(fixed.FromInt(100_000, 0)))
}

func TestCancelAllScopedToInstrument(t *testing.T) {
	d := newTestDesk(t, 100_000)
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))
	require.NoError(t, d.RegisterInstrument(perpSpec(), &stubFeed{book: bookAt(99, 101, 10)}))

	d.Tick(context.Background(), testStart)
	d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeLimit, fixed.FromInt(95, 0), fixed.One, fixed.Zero, "a", testStart)
	d.SubmitOrder(perpSpec().Id, common.SideBuy, common.OrderTypeLimit, fixed.FromInt(95, 0), fixed.One, fixed.FromInt(5, 0), "b", testStart)

	events := d.CancelAll(testStart.Add(time.Second), spotSpec().Id)
	assert.Len(t, events, 1)
	assert.Empty(t, d.OpenOrders(spotSpec().Id))
	require.Len(t, d.OpenOrders(perpSpec().Id), 1, "other instruments must keep their orders")

	unknown := common.NewInstrumentId("paper", "ETH-USDT", common.InstrumentSpot)
	assert.Empty(t, d.CancelAll(testStart.Add(time.Second), unknown))
}

func TestEventLogBounded(t *testing.T) {
	d := newTestDesk(t, 100_000, WithEventLogCapacity(2))
	require.NoError(t, d.RegisterInstrument(spotSpec(), &stubFeed{book: bookAt(99, 101, 10)}))
	d.Tick(context.Background(), testStart)

	for i := 0; i < 5; i++ {
		d.SubmitOrder(spotSpec().Id, common.SideBuy, common.OrderTypeLimit, fixed.FromInt(95, 0), fixed.One, fixed.Zero, "test", testStart)
	}

	assert.Len(t, d.Events(), 2)
}
