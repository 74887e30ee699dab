// Package engine implements the per-instrument order matching state machine:
// validate, reserve, latency queue, open, match, settle, terminal. One engine
// instance owns the full lifecycle of every order it accepted.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/portfolio"
	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

const componentName = "paper.engine"

const (
	defaultMaxFillsPerOrder = 64
	defaultRetention        = time.Minute
)

type pendingEntry struct {
	order *common.PaperOrder
	due   time.Time
}

// Stats is the per-engine counter snapshot exposed through the desk.
type Stats struct {
	Instrument      common.InstrumentId `json:"instrument"`
	FillCount       uint64              `json:"fill_count"`
	RejectCount     uint64              `json:"reject_count"`
	AvgQueueDelayMs float64             `json:"avg_queue_delay_ms"`
}

// Engine matches orders for exactly one instrument against book snapshots
// pushed in by the desk. It is not safe for concurrent use; the desk drives it
// from a single tick loop. No public method propagates a panic: internal
// faults surface as EngineError events.
type Engine struct {
	spec      common.InstrumentSpec
	portfolio *portfolio.Portfolio

	fillModel    FillModel
	feeModel     FeeModel
	latencyModel LatencyModel

	rejectCrossedMakers bool
	maxFillsPerOrder    int
	minFillGap          time.Duration
	retention           time.Duration

	book common.OrderBookSnapshot

	// orders holds accepted orders in acceptance order; matching enumerates
	// them in that order, not by price-time priority.
	orders  []*common.PaperOrder
	byId    map[common.OrderId]*common.PaperOrder
	pending []pendingEntry

	fillCount       uint64
	rejectCount     uint64
	queueDelaySum   time.Duration
	queuePromotions uint64
}

func New(spec common.InstrumentSpec, pf *portfolio.Portfolio, options ...Option) *Engine {
	e := &Engine{
		spec:             spec,
		portfolio:        pf,
		fillModel:        NewTopOfBookFillModel(0, 1),
		feeModel:         NewTieredFeeModel(spec.MakerFeeRate, spec.TakerFeeRate),
		latencyModel:     NewFixedLatencyModel(0),
		maxFillsPerOrder: defaultMaxFillsPerOrder,
		retention:        defaultRetention,
		byId:             make(map[common.OrderId]*common.PaperOrder),
	}

	for _, option := range options {
		option(e)
	}

	return e
}

func (e *Engine) Spec() common.InstrumentSpec {
	return e.spec
}

// ApplyBook replaces the engine's view of the market wholesale.
func (e *Engine) ApplyBook(book common.OrderBookSnapshot) {
	e.book = book
}

func (e *Engine) Book() common.OrderBookSnapshot {
	return e.book
}

// SubmitOrder runs the full acceptance pipeline. It always returns exactly one
// event: OrderAccepted, OrderRejected or EngineError. It never raises.
func (e *Engine) SubmitOrder(side common.Side, orderType common.OrderType, price, qty, leverage fixed.Point, source string, now time.Time) (ev common.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("submit fault", "instrument", e.spec.Id, "panic", r)
			ev = e.faultEvent("submit_order", r, now)
		}
	}()

	if orderType != common.OrderTypeMarket {
		price = e.spec.QuantizePrice(price, side)
	} else {
		price = fixed.Zero
	}
	qty = e.spec.QuantizeSize(qty)

	order := &common.PaperOrder{
		Id:          uuid.New(),
		Instrument:  e.spec.Id,
		Side:        side,
		Type:        orderType,
		Price:       price,
		Quantity:    qty,
		Leverage:    e.spec.EffectiveLeverage(leverage),
		Status:      common.OrderStatusPendingSubmit,
		SubmittedAt: now,
		Source:      source,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.TraceIDAt(now),
		TimeStamp:   now,
	}

	if reason := e.spec.Validate(orderType, price, qty); reason != common.ReasonNone {
		return e.reject(order, reason, now)
	}

	refPrice := price
	if orderType == common.OrderTypeMarket {
		touch, ok := e.oppositeTouch(side)
		if !ok {
			return e.reject(order, common.ReasonNoMarketData, now)
		}
		refPrice = touch.Price
		if !e.spec.MinNotional.IsZero() && refPrice.Mul(qty).Lt(e.spec.MinNotional) {
			return e.reject(order, common.ReasonMinNotional, now)
		}
	}

	if orderType != common.OrderTypeMarket && e.crossesBook(side, price) {
		if orderType == common.OrderTypeLimitMaker && e.rejectCrossedMakers {
			return e.reject(order, common.ReasonMakerWouldCross, now)
		}
		// Crossing limits execute takerlike at the touch instead of
		// resting at their own price.
		order.CrossedOnSubmit = true
	}

	asset, amount := e.computeReservation(side, qty, refPrice, order.Leverage)
	if !e.portfolio.CanReserve(asset, amount) {
		return e.reject(order, common.ReasonInsufficientBalance, now)
	}

	if reason := e.portfolio.CheckOrderRisk(e.spec.Id, side, qty, refPrice); reason != common.ReasonNone {
		return e.reject(order, reason, now)
	}

	e.portfolio.Reserve(asset, amount)
	order.Reservation = common.Reservation{Asset: asset, Amount: amount}
	e.byId[order.Id] = order

	if delay := e.latencyModel.TotalInsert(); delay > 0 {
		// Acceptance is reported once, here, with the scheduled delay.
		// Promotion out of the queue is silent.
		e.pending = append(e.pending, pendingEntry{order: order, due: now.Add(delay)})
		return e.accepted(order, delay, now)
	}

	if err := transition(order, common.OrderStatusOpen); err != nil {
		return e.faultEvent("submit_order", err, now)
	}
	order.OpenedAt = now
	e.orders = append(e.orders, order)
	return e.accepted(order, 0, now)
}

// Tick advances the engine one cycle: promote due latency-queue entries,
// evaluate fills for open orders, prune stale terminal orders.
func (e *Engine) Tick(now time.Time) (events []common.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tick fault", "instrument", e.spec.Id, "panic", r)
			events = append(events, e.faultEvent("tick", r, now))
		}
	}()

	events = append(events, e.promotePending(now)...)
	events = append(events, e.matchOpenOrders(now)...)
	e.pruneTerminal(now)
	return events
}

func (e *Engine) promotePending(now time.Time) []common.Event {
	var events []common.Event
	var still []pendingEntry

	for _, entry := range e.pending {
		if entry.order.Status != common.OrderStatusPendingSubmit {
			// Canceled while queued.
			continue
		}
		if entry.due.After(now) {
			still = append(still, entry)
			continue
		}
		if err := transition(entry.order, common.OrderStatusOpen); err != nil {
			events = append(events, e.faultEvent("promote", err, now))
			continue
		}
		entry.order.OpenedAt = now
		e.orders = append(e.orders, entry.order)

		e.queueDelaySum += now.Sub(entry.order.SubmittedAt)
		e.queuePromotions++
	}

	e.pending = still
	return events
}

func (e *Engine) matchOpenOrders(now time.Time) []common.Event {
	var events []common.Event
	depth := newDepthLedger()

	for _, order := range e.orders {
		if order.Status.IsTerminal() {
			continue
		}
		if e.maxFillsPerOrder > 0 && order.FillCount >= e.maxFillsPerOrder {
			continue
		}
		if e.minFillGap > 0 && !order.LastFillAt.IsZero() && now.Sub(order.LastFillAt) < e.minFillGap {
			continue
		}

		fill, ok := e.evaluateModels(order, now, &events)
		if !ok || fill.Quantity.Lte(fixed.Zero) {
			continue
		}

		qty := fill.Quantity.Min(order.RemainingQuantity())
		qty = depth.clamp(e.book, fill.Price, qty)
		if qty.Lte(fixed.Zero) {
			continue
		}

		fee, ok := e.computeFee(order, qty.Mul(fill.Price), fill.IsMaker, now, &events)
		if !ok {
			continue
		}

		e.releaseFillShare(order, qty)

		pos, realized, posTransition := e.portfolio.SettleFill(e.spec, order.Side, qty, fill.Price, fee, now)

		order.FilledQuantity = order.FilledQuantity.Add(qty)
		order.FilledNotional = order.FilledNotional.Add(qty.Mul(fill.Price))
		order.FeePaid = order.FeePaid.Add(fee)
		order.FillCount++
		order.LastFillAt = now

		target := common.OrderStatusPartiallyFilled
		if order.RemainingQuantity().Lte(fixed.Zero) {
			target = common.OrderStatusFilled
		}
		if err := transition(order, target); err != nil {
			events = append(events, e.faultEvent("match", err, now))
			continue
		}
		if target == common.OrderStatusFilled {
			e.releaseRemaining(order)
			order.TimeStamp = now
		}

		e.fillCount++

		events = append(events,
			common.OrderFilled{
				Order:        *order,
				FillQuantity: qty,
				FillPrice:    fill.Price,
				Fee:          fee,
				IsMaker:      fill.IsMaker,
				Source:       componentName,
				ExecutionId:  utility.GetExecutionID(),
				TraceID:      utility.TraceIDAt(now),
				TimeStamp:    now,
			},
			common.PositionChanged{
				Position:    pos,
				Transition:  posTransition,
				RealizedPnL: realized,
				Source:      componentName,
				ExecutionId: utility.GetExecutionID(),
				TraceID:     utility.TraceIDAt(now),
				TimeStamp:   now,
			})
	}

	return events
}

// evaluateModels isolates fill-model faults so one broken model cannot take
// down the tick loop.
func (e *Engine) evaluateModels(order *common.PaperOrder, now time.Time, events *[]common.Event) (fill Fill, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fill model fault", "instrument", e.spec.Id, "order", order.Id, "panic", r)
			*events = append(*events, e.faultEvent("fill_model", r, now))
			ok = false
		}
	}()
	return e.fillModel.Evaluate(*order, e.book, now), true
}

func (e *Engine) computeFee(order *common.PaperOrder, notional fixed.Point, isMaker bool, now time.Time, events *[]common.Event) (fee fixed.Point, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("fee model fault", "instrument", e.spec.Id, "order", order.Id, "panic", r)
			*events = append(*events, e.faultEvent("fee_model", r, now))
			ok = false
		}
	}()
	fee = e.feeModel.Compute(notional, isMaker)
	if fee.IsNeg() {
		fee = fixed.Zero
	}
	return fee, true
}

// CancelOrder cancels a live order, releasing its remaining reservation
// atomically with the status change. Unknown or already-terminal ids return
// no event and no error.
func (e *Engine) CancelOrder(id common.OrderId, now time.Time) (ev common.Event, found bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cancel fault", "instrument", e.spec.Id, "panic", r)
			ev, found = e.faultEvent("cancel_order", r, now), true
		}
	}()

	order, ok := e.byId[id]
	if !ok || order.Status.IsTerminal() {
		return nil, false
	}
	return e.cancel(order, now), true
}

// CancelAll cancels every live order, including latency-queued ones.
func (e *Engine) CancelAll(now time.Time) (events []common.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cancel all fault", "instrument", e.spec.Id, "panic", r)
			events = append(events, e.faultEvent("cancel_all", r, now))
		}
	}()

	for _, entry := range e.pending {
		if !entry.order.Status.IsTerminal() {
			events = append(events, e.cancel(entry.order, now))
		}
	}
	for _, order := range e.orders {
		if !order.Status.IsTerminal() {
			events = append(events, e.cancel(order, now))
		}
	}
	return events
}

func (e *Engine) cancel(order *common.PaperOrder, now time.Time) common.Event {
	released := order.Reservation.Amount
	e.releaseRemaining(order)

	if err := transition(order, common.OrderStatusCanceled); err != nil {
		return e.faultEvent("cancel", err, now)
	}
	order.TimeStamp = now

	// Orders canceled straight out of the latency queue were never promoted
	// into the matching list; park them there so pruning can reclaim them.
	if order.OpenedAt.IsZero() {
		e.orders = append(e.orders, order)
	}

	return common.OrderCanceled{
		Order:               *order,
		CanceledQuantity:    order.RemainingQuantity(),
		ReleasedReservation: released,
		Source:              componentName,
		ExecutionId:         utility.GetExecutionID(),
		TraceID:             utility.TraceIDAt(now),
		TimeStamp:           now,
	}
}

// OpenOrders returns copies of all non-terminal accepted orders.
func (e *Engine) OpenOrders() []common.PaperOrder {
	var out []common.PaperOrder
	for _, order := range e.orders {
		if !order.Status.IsTerminal() {
			out = append(out, *order)
		}
	}
	return out
}

// Order returns a copy of a tracked order by id.
func (e *Engine) Order(id common.OrderId) (common.PaperOrder, bool) {
	order, ok := e.byId[id]
	if !ok {
		return common.PaperOrder{}, false
	}
	return *order, true
}

func (e *Engine) Stats() Stats {
	stats := Stats{
		Instrument:  e.spec.Id,
		FillCount:   e.fillCount,
		RejectCount: e.rejectCount,
	}
	if e.queuePromotions > 0 {
		stats.AvgQueueDelayMs = float64(e.queueDelaySum.Milliseconds()) / float64(e.queuePromotions)
	}
	return stats
}

func (e *Engine) computeReservation(side common.Side, qty, refPrice, leverage fixed.Point) (string, fixed.Point) {
	id := e.spec.Id
	notional := qty.Mul(refPrice)

	if id.IsLeveraged() {
		margin := notional.Div(leverage).Mul(e.spec.MarginInitRatio)
		return id.QuoteAsset(), margin
	}
	if side == common.SideBuy {
		return id.QuoteAsset(), notional
	}
	return id.BaseAsset(), qty
}

func (e *Engine) releaseFillShare(order *common.PaperOrder, fillQty fixed.Point) {
	remaining := order.RemainingQuantity()
	if remaining.Lte(fixed.Zero) || order.Reservation.Amount.Lte(fixed.Zero) {
		return
	}
	share := order.Reservation.Amount
	if fillQty.Lt(remaining) {
		share = order.Reservation.Amount.Mul(fillQty).Div(remaining)
	}
	e.portfolio.Release(order.Reservation.Asset, share)
	order.Reservation.Amount = order.Reservation.Amount.Sub(share)
	if order.Reservation.Amount.IsNeg() {
		order.Reservation.Amount = fixed.Zero
	}
}

func (e *Engine) releaseRemaining(order *common.PaperOrder) {
	if order.Reservation.Amount.IsPos() {
		e.portfolio.Release(order.Reservation.Asset, order.Reservation.Amount)
		order.Reservation.Amount = fixed.Zero
	}
}

func (e *Engine) pruneTerminal(now time.Time) {
	if e.retention <= 0 {
		return
	}

	keep := e.orders[:0]
	for _, order := range e.orders {
		if order.Status.IsTerminal() && now.Sub(order.TimeStamp) > e.retention {
			delete(e.byId, order.Id)
			continue
		}
		keep = append(keep, order)
	}
	e.orders = keep
}

func (e *Engine) oppositeTouch(side common.Side) (common.PriceLevel, bool) {
	if side == common.SideBuy {
		return e.book.BestAsk()
	}
	return e.book.BestBid()
}

func (e *Engine) crossesBook(side common.Side, price fixed.Point) bool {
	if side == common.SideBuy {
		if ask, ok := e.book.BestAsk(); ok {
			return price.Gte(ask.Price)
		}
		return false
	}
	if bid, ok := e.book.BestBid(); ok {
		return price.Lte(bid.Price)
	}
	return false
}

func (e *Engine) reject(order *common.PaperOrder, reason common.RejectReason, now time.Time) common.Event {
	order.Status = common.OrderStatusRejected
	order.TimeStamp = now
	e.rejectCount++

	return common.OrderRejected{
		Order:       *order,
		Reason:      reason,
		Source:      componentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.TraceIDAt(now),
		TimeStamp:   now,
	}
}

func (e *Engine) accepted(order *common.PaperOrder, delay time.Duration, now time.Time) common.Event {
	return common.OrderAccepted{
		Order:       *order,
		QueueDelay:  delay,
		Source:      componentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.TraceIDAt(now),
		TimeStamp:   now,
	}
}

func (e *Engine) faultEvent(op string, cause interface{}, now time.Time) common.EngineError {
	return common.EngineError{
		Instrument:  e.spec.Id,
		Op:          op,
		FaultType:   fmt.Sprintf("%T", cause),
		Message:     fmt.Sprintf("%v", cause),
		Source:      componentName,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.TraceIDAt(now),
		TimeStamp:   now,
	}
}
