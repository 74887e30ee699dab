// Package desk orchestrates the per-tick cycle across instruments: market
// data pull, matching, funding, mark-to-market, advisory liquidation scan and
// persistence. One desk owns one portfolio and any number of engines.
package desk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/engine"
	"github.com/peter-kozarec/paperdesk/pkg/feed"
	"github.com/peter-kozarec/paperdesk/pkg/journal"
	"github.com/peter-kozarec/paperdesk/pkg/portfolio"
	"github.com/peter-kozarec/paperdesk/pkg/statestore"
	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
	"github.com/peter-kozarec/paperdesk/pkg/utility/ring"
)

const componentName = "paper.desk"

const defaultEventLogCapacity = 1024

type instrumentSlot struct {
	spec      common.InstrumentSpec
	feed      feed.Feed
	engine    *engine.Engine
	exhausted bool
}

type Desk struct {
	portfolio *portfolio.Portfolio

	// slots keeps registration order; per-tick iteration follows it so runs
	// with identical inputs replay identically.
	slots []*instrumentSlot
	byKey map[string]*instrumentSlot

	fundingSim FundingSimulator
	store      statestore.StateStore
	journal    *journal.Journal

	snapshotInterval time.Duration
	lastSnapshot     time.Time

	events  *ring.Buffer[common.Event]
	handler func(common.Event)
}

type Option func(*Desk)

func WithFundingSimulator(sim FundingSimulator) Option {
	return func(d *Desk) {
		d.fundingSim = sim
	}
}

func WithStateStore(store statestore.StateStore) Option {
	return func(d *Desk) {
		d.store = store
	}
}

func WithJournal(j *journal.Journal) Option {
	return func(d *Desk) {
		d.journal = j
	}
}

// WithSnapshotInterval throttles state persistence; zero snapshots every tick.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(d *Desk) {
		d.snapshotInterval = interval
	}
}

func WithEventLogCapacity(capacity int) Option {
	return func(d *Desk) {
		d.events = ring.NewBuffer[common.Event](capacity)
	}
}

// WithEventHandler observes every event the desk retains, synchronously and
// in order. Middleware chains plug in here.
func WithEventHandler(handler func(common.Event)) Option {
	return func(d *Desk) {
		d.handler = handler
	}
}

func New(pf *portfolio.Portfolio, options ...Option) *Desk {
	d := &Desk{
		portfolio:  pf,
		byKey:      make(map[string]*instrumentSlot),
		fundingSim: NewIntervalFundingSimulator(0),
		events:     ring.NewBuffer[common.Event](defaultEventLogCapacity),
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// RegisterInstrument wires one instrument to a feed and a fresh engine.
// Registration order fixes per-tick processing order.
func (d *Desk) RegisterInstrument(spec common.InstrumentSpec, f feed.Feed, engineOptions ...engine.Option) error {
	key := spec.Id.Key()
	if _, exists := d.byKey[key]; exists {
		return &DuplicateInstrumentError{Id: spec.Id}
	}

	slot := &instrumentSlot{
		spec:   spec,
		feed:   f,
		engine: engine.New(spec, d.portfolio, engineOptions...),
	}
	d.slots = append(d.slots, slot)
	d.byKey[key] = slot

	slog.Info("instrument registered", "instrument", spec.Id, "kind", spec.Id.Kind)
	return nil
}

// SubmitOrder routes to the owning engine. Unknown instruments produce a
// rejection event rather than an error.
func (d *Desk) SubmitOrder(id common.InstrumentId, side common.Side, orderType common.OrderType, price, qty, leverage fixed.Point, source string, now time.Time) common.Event {
	slot, ok := d.byKey[id.Key()]
	if !ok {
		ev := d.rejectUnknownInstrument(id, side, orderType, price, qty, source, now)
		d.record(ev)
		return ev
	}

	ev := slot.engine.SubmitOrder(side, orderType, price, qty, leverage, source, now)
	d.record(ev)
	return ev
}

func (d *Desk) CancelOrder(id common.InstrumentId, orderId common.OrderId, now time.Time) (common.Event, bool) {
	slot, ok := d.byKey[id.Key()]
	if !ok {
		return nil, false
	}

	ev, found := slot.engine.CancelOrder(orderId, now)
	if found {
		d.record(ev)
	}
	return ev, found
}

// CancelAll cancels every live order. With instruments given it cancels only
// on those; unknown instruments are skipped.
func (d *Desk) CancelAll(now time.Time, instruments ...common.InstrumentId) []common.Event {
	var events []common.Event
	if len(instruments) == 0 {
		for _, slot := range d.slots {
			events = append(events, slot.engine.CancelAll(now)...)
		}
	} else {
		for _, id := range instruments {
			slot, ok := d.byKey[id.Key()]
			if !ok {
				continue
			}
			events = append(events, slot.engine.CancelAll(now)...)
		}
	}
	for _, ev := range events {
		d.record(ev)
	}
	return events
}

// Tick runs one full desk cycle and returns the events it produced, in order.
func (d *Desk) Tick(ctx context.Context, now time.Time) []common.Event {
	var events []common.Event

	marks := d.pullMarketData()

	for _, slot := range d.slots {
		events = append(events, slot.engine.Tick(now)...)
	}

	events = append(events, d.applyFunding(now)...)

	d.portfolio.MarkToMarket(marks)

	events = append(events, d.scanLiquidationCandidates(now)...)

	d.persist(ctx, now, events)

	for _, ev := range events {
		d.record(ev)
	}
	return events
}

// pullMarketData refreshes every engine's book and returns the mid marks.
// Feed faults skip the instrument for this tick; exhausted feeds stop pulling.
func (d *Desk) pullMarketData() map[string]fixed.Point {
	marks := make(map[string]fixed.Point, len(d.slots))

	for _, slot := range d.slots {
		if slot.exhausted {
			continue
		}

		book, err := slot.feed.Book()
		if err != nil {
			if errors.Is(err, feed.ErrExhausted) {
				slot.exhausted = true
				slog.Info("feed exhausted", "instrument", slot.spec.Id)
			} else {
				slog.Warn("unable to pull book", "instrument", slot.spec.Id, "error", err)
			}
			continue
		}

		book.Instrument = slot.spec.Id
		slot.engine.ApplyBook(book)

		if mid := book.Mid(); mid.IsPos() {
			marks[slot.spec.Id.Key()] = mid
		}
	}

	return marks
}

func (d *Desk) applyFunding(now time.Time) []common.Event {
	var events []common.Event

	for _, slot := range d.slots {
		if !slot.spec.Id.IsLeveraged() {
			continue
		}

		pos := d.portfolio.Position(slot.spec.Id)
		if pos.IsFlat() {
			continue
		}

		last, ok := d.portfolio.LastFundingTime(slot.spec.Id)
		if !ok {
			last = pos.OpenTime
		}

		rate, due := d.fundingSim.Due(slot.spec, last, now, slot.feed.FundingRate())
		if !due {
			continue
		}

		mark, ok := d.portfolio.Mark(slot.spec.Id)
		if !ok {
			continue
		}

		// Longs pay a positive rate, shorts receive it.
		charge := rate.Mul(pos.Notional(mark))
		if pos.IsShort() {
			charge = charge.Neg()
		}

		events = append(events, d.portfolio.ApplyFunding(slot.spec.Id, rate, charge, now))
	}

	return events
}

// scanLiquidationCandidates emits advisory notices for leveraged positions
// whose combined maintenance margin is no longer covered by equity. Nothing is
// force-closed.
func (d *Desk) scanLiquidationCandidates(now time.Time) []common.Event {
	equity := d.portfolio.Equity()

	totalMaintenance := fixed.Zero
	type candidate struct {
		slot        *instrumentSlot
		pos         common.PaperPosition
		mark        fixed.Point
		maintenance fixed.Point
	}
	var candidates []candidate

	for _, slot := range d.slots {
		if !slot.spec.Id.IsLeveraged() {
			continue
		}
		pos := d.portfolio.Position(slot.spec.Id)
		if pos.IsFlat() {
			continue
		}
		mark, ok := d.portfolio.Mark(slot.spec.Id)
		if !ok {
			continue
		}

		maintenance := pos.Notional(mark).Mul(slot.spec.MarginMaintRatio)
		totalMaintenance = totalMaintenance.Add(maintenance)
		candidates = append(candidates, candidate{slot: slot, pos: pos, mark: mark, maintenance: maintenance})
	}

	if totalMaintenance.IsZero() || equity.Gte(totalMaintenance) {
		return nil
	}

	events := make([]common.Event, 0, len(candidates))
	for _, c := range candidates {
		slog.Warn("maintenance margin breached",
			"instrument", c.slot.spec.Id,
			"equity", equity,
			"maintenance_margin", c.maintenance)

		events = append(events, common.LiquidationNotice{
			Position:          c.pos,
			MarkPrice:         c.mark,
			MaintenanceMargin: c.maintenance,
			Source:            componentName,
			ExecutionId:       utility.GetExecutionID(),
			TraceID:           utility.TraceIDAt(now),
			TimeStamp:         now,
		})
	}
	return events
}

func (d *Desk) persist(ctx context.Context, now time.Time, events []common.Event) {
	if d.journal != nil {
		for _, ev := range events {
			fill, ok := ev.(common.OrderFilled)
			if !ok {
				continue
			}
			if err := d.journal.Append(ctx, fill); err != nil {
				slog.Warn("unable to journal fill", "order", fill.Order.Id, "error", err)
			}
		}
	}

	if d.store == nil {
		return
	}
	if d.snapshotInterval > 0 && !d.lastSnapshot.IsZero() && now.Sub(d.lastSnapshot) < d.snapshotInterval {
		return
	}
	if err := d.store.Save(d.portfolio.Snapshot(now)); err != nil {
		slog.Warn("unable to persist desk state", "error", err)
		return
	}
	d.lastSnapshot = now
}

// Restore loads persisted state into the portfolio. Safe to call with no
// store configured.
func (d *Desk) Restore() error {
	if d.store == nil {
		return nil
	}
	state, err := d.store.Load()
	if err != nil {
		return err
	}
	d.portfolio.RestoreSnapshot(state)
	return nil
}

func (d *Desk) Portfolio() *portfolio.Portfolio {
	return d.portfolio
}

func (d *Desk) Snapshot(now time.Time) portfolio.State {
	return d.portfolio.Snapshot(now)
}

func (d *Desk) record(ev common.Event) {
	d.events.Add(ev)
	if d.handler != nil {
		d.handler(ev)
	}
}

// Events returns the retained event log, oldest first.
func (d *Desk) Events() []common.Event {
	return d.events.ToSliceFifo()
}

// Exhausted reports whether every registered feed has run dry.
func (d *Desk) Exhausted() bool {
	if len(d.slots) == 0 {
		return false
	}
	for _, slot := range d.slots {
		if !slot.exhausted {
			return false
		}
	}
	return true
}

func (d *Desk) OpenOrders(id common.InstrumentId) []common.PaperOrder {
	slot, ok := d.byKey[id.Key()]
	if !ok {
		return nil
	}
	return slot.engine.OpenOrders()
}

func (d *Desk) rejectUnknownInstrument(id common.InstrumentId, side common.Side, orderType common.OrderType, price, qty fixed.Point, source string, now time.Time) common.Event {
	return common.OrderRejected{
		Order: common.PaperOrder{
			Instrument:  id,
			Side:        side,
			Type:        orderType,
			Price:       price,
			Quantity:    qty,
			Status:      common.OrderStatusRejected,
			SubmittedAt: now,
			Source:      source,
			TimeStamp:   now,
		},
		Reason:      common.ReasonUnknownInstrument,
		Source:      componentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.TraceIDAt(now),
		TimeStamp:   now,
	}
}
