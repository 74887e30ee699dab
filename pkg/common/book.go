package common

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

type PriceLevel struct {
	Price fixed.Point `json:"price"`
	Size  fixed.Point `json:"size"`
}

// OrderBookSnapshot is an immutable top-of-book-plus-depth view. Bids and asks
// are ordered best-first. A fresh snapshot replaces the previous one wholesale
// on every market-data update.
type OrderBookSnapshot struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`

	Source      string              `json:"src,omitempty"`
	Instrument  InstrumentId        `json:"instrument"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (b OrderBookSnapshot) IsEmpty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

func (b OrderBookSnapshot) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	return b.Bids[0], true
}

func (b OrderBookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	return b.Asks[0], true
}

// Mid returns the midpoint of the touch, or the single available side when
// the book is one-sided. Zero for an empty book.
func (b OrderBookSnapshot) Mid() fixed.Point {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	switch {
	case hasBid && hasAsk:
		return bid.Price.Add(ask.Price).Div(fixed.Two)
	case hasBid:
		return bid.Price
	case hasAsk:
		return ask.Price
	default:
		return fixed.Zero
	}
}

func (b OrderBookSnapshot) Spread() fixed.Point {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	if !hasBid || !hasAsk {
		return fixed.Zero
	}
	return ask.Price.Sub(bid.Price)
}
