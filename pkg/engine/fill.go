package engine

import (
	"math/rand"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// TopOfBookFillModel is the default fill model: market orders and limits that
// crossed the book on arrival take the touch as taker, resting limit orders
// fill as maker at their own price once the opposite touch reaches it.
// Fill quantity is bounded by the visible size at the touch. An optional fill
// probability below one makes resting limit fills stochastic but reproducible,
// since the model draws from its own seeded source.
type TopOfBookFillModel struct {
	rng             *rand.Rand
	fillProbability float64
}

func NewTopOfBookFillModel(seed int64, fillProbability float64) *TopOfBookFillModel {
	if fillProbability <= 0 || fillProbability > 1 {
		fillProbability = 1
	}
	return &TopOfBookFillModel{
		rng:             rand.New(rand.NewSource(seed)),
		fillProbability: fillProbability,
	}
}

func (m *TopOfBookFillModel) Evaluate(order common.PaperOrder, book common.OrderBookSnapshot, _ time.Time) Fill {
	remaining := order.RemainingQuantity()
	if remaining.Lte(fixed.Zero) || book.IsEmpty() {
		return Fill{}
	}

	var touch common.PriceLevel
	var ok bool
	if order.Side == common.SideBuy {
		touch, ok = book.BestAsk()
	} else {
		touch, ok = book.BestBid()
	}
	if !ok {
		return Fill{}
	}

	qty := remaining.Min(touch.Size)
	if qty.Lte(fixed.Zero) {
		return Fill{}
	}

	if order.Type == common.OrderTypeMarket {
		return Fill{Quantity: qty, Price: touch.Price, IsMaker: false}
	}

	crossed := false
	if order.Side == common.SideBuy {
		crossed = touch.Price.Lte(order.Price)
	} else {
		crossed = touch.Price.Gte(order.Price)
	}
	if !crossed {
		return Fill{}
	}

	if m.fillProbability < 1 && m.rng.Float64() > m.fillProbability {
		return Fill{}
	}

	// Orders that arrived crossing the book execute takerlike at the touch.
	if order.CrossedOnSubmit {
		return Fill{Quantity: qty, Price: touch.Price, IsMaker: false}
	}

	// Resting orders print at their own price once the touch reaches it, so
	// simulated executions are never better than reality.
	return Fill{Quantity: qty, Price: order.Price, IsMaker: true}
}
