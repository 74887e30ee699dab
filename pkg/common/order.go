package common

import (
	"time"

	"github.com/google/uuid"

	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

type Side int
type OrderType int
type OrderStatus string
type OrderId = uuid.UUID

const (
	SideBuy Side = iota
	SideSell
)

const (
	OrderTypeLimit OrderType = iota
	OrderTypeLimitMaker
	OrderTypeMarket
)

const (
	OrderStatusPendingSubmit   OrderStatus = "pending-submit"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially-filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// SignedQty returns +qty for a buy, -qty for a sell.
func (s Side) SignedQty(qty fixed.Point) fixed.Point {
	if s == SideBuy {
		return qty
	}
	return qty.Neg()
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimitMaker:
		return "limit-maker"
	case OrderTypeMarket:
		return "market"
	default:
		return "limit"
	}
}

func (st OrderStatus) IsTerminal() bool {
	return st == OrderStatusFilled || st == OrderStatusCanceled || st == OrderStatusRejected
}

// RejectReason is the machine-readable cause carried by OrderRejected events.
type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonUnknownInstrument   RejectReason = "unknown-instrument"
	ReasonBadPrice            RejectReason = "bad-price"
	ReasonBadQuantity         RejectReason = "bad-quantity"
	ReasonMinNotional         RejectReason = "below-min-notional"
	ReasonNoMarketData        RejectReason = "no-market-data"
	ReasonMakerWouldCross     RejectReason = "maker-would-cross"
	ReasonInsufficientBalance RejectReason = "insufficient-balance"
	ReasonRiskDrawdown        RejectReason = "risk-drawdown"
	ReasonRiskInstrumentCap   RejectReason = "risk-instrument-cap"
	ReasonRiskNetExposure     RejectReason = "risk-net-exposure"
)

// Reservation is the ledger hold backing an open order. Amount is the portion
// still held; the owning engine shrinks it as fills settle and releases the
// remainder on cancel or completion.
type Reservation struct {
	Asset  string      `json:"asset"`
	Amount fixed.Point `json:"amount"`
}

// PaperOrder is mutated only by the matching engine that accepted it and
// becomes effectively immutable once its status is terminal.
type PaperOrder struct {
	Id         OrderId      `json:"id"`
	Instrument InstrumentId `json:"instrument"`
	Side       Side         `json:"side"`
	Type       OrderType    `json:"type"`
	Price      fixed.Point  `json:"price"`
	Quantity   fixed.Point  `json:"quantity"`
	Leverage   fixed.Point  `json:"leverage"`
	Status     OrderStatus  `json:"status"`

	FilledQuantity fixed.Point `json:"filled_quantity"`
	FilledNotional fixed.Point `json:"filled_notional"`
	FeePaid        fixed.Point `json:"fee_paid"`
	FillCount      int         `json:"fill_count"`

	// Set when a limit-maker order crossed the book on submit and the engine
	// is configured to tag rather than reject.
	CrossedOnSubmit bool `json:"crossed_on_submit,omitempty"`

	Reservation Reservation `json:"reservation"`

	SubmittedAt time.Time `json:"submitted_at"`
	OpenedAt    time.Time `json:"opened_at,omitempty"`
	LastFillAt  time.Time `json:"last_fill_at,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// RemainingQuantity is the unfilled part of the order.
func (o PaperOrder) RemainingQuantity() fixed.Point {
	return o.Quantity.Sub(o.FilledQuantity)
}

// AvgFillPrice is the volume-weighted price over all fills so far, zero when
// nothing has filled.
func (o PaperOrder) AvgFillPrice() fixed.Point {
	if o.FilledQuantity.IsZero() {
		return fixed.Zero
	}
	return o.FilledNotional.Div(o.FilledQuantity)
}
