package common

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

type EventKind string

const (
	EventKindOrderAccepted     EventKind = "order-accepted"
	EventKindOrderRejected     EventKind = "order-rejected"
	EventKindOrderFilled       EventKind = "order-filled"
	EventKindOrderCanceled     EventKind = "order-canceled"
	EventKindPositionChanged   EventKind = "position-changed"
	EventKindFundingApplied    EventKind = "funding-applied"
	EventKindLiquidationNotice EventKind = "liquidation-notice"
	EventKindEngineError       EventKind = "engine-error"
)

// Event is the closed vocabulary emitted by matching engines and the desk.
// Events are constructed once at the moment of the underlying state change
// and never mutated.
type Event interface {
	Kind() EventKind
	Time() time.Time
}

type OrderAccepted struct {
	Order      PaperOrder    `json:"order"`
	QueueDelay time.Duration `json:"queue_delay,omitempty"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type OrderRejected struct {
	Order  PaperOrder   `json:"order"`
	Reason RejectReason `json:"reason"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type OrderFilled struct {
	Order        PaperOrder  `json:"order"`
	FillQuantity fixed.Point `json:"fill_quantity"`
	FillPrice    fixed.Point `json:"fill_price"`
	Fee          fixed.Point `json:"fee"`
	IsMaker      bool        `json:"is_maker"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type OrderCanceled struct {
	Order               PaperOrder  `json:"order"`
	CanceledQuantity    fixed.Point `json:"canceled_quantity"`
	ReleasedReservation fixed.Point `json:"released_reservation"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type PositionChanged struct {
	Position    PaperPosition `json:"position"`
	Transition  Transition    `json:"transition"`
	RealizedPnL fixed.Point   `json:"realized_pnl"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type FundingApplied struct {
	Instrument InstrumentId `json:"instrument"`
	Rate       fixed.Point  `json:"rate"`
	Charge     fixed.Point  `json:"charge"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// LiquidationNotice is advisory only. The desk flags positions whose
// maintenance margin is no longer covered; it never force-closes them.
type LiquidationNotice struct {
	Position          PaperPosition `json:"position"`
	MarkPrice         fixed.Point   `json:"mark_price"`
	MaintenanceMargin fixed.Point   `json:"maintenance_margin"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

type EngineError struct {
	Instrument InstrumentId `json:"instrument"`
	Op         string       `json:"op"`
	FaultType  string       `json:"fault_type"`
	Message    string       `json:"message"`

	Source      string              `json:"src,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

func (e OrderAccepted) Kind() EventKind     { return EventKindOrderAccepted }
func (e OrderRejected) Kind() EventKind     { return EventKindOrderRejected }
func (e OrderFilled) Kind() EventKind       { return EventKindOrderFilled }
func (e OrderCanceled) Kind() EventKind     { return EventKindOrderCanceled }
func (e PositionChanged) Kind() EventKind   { return EventKindPositionChanged }
func (e FundingApplied) Kind() EventKind    { return EventKindFundingApplied }
func (e LiquidationNotice) Kind() EventKind { return EventKindLiquidationNotice }
func (e EngineError) Kind() EventKind       { return EventKindEngineError }

func (e OrderAccepted) Time() time.Time     { return e.TimeStamp }
func (e OrderRejected) Time() time.Time     { return e.TimeStamp }
func (e OrderFilled) Time() time.Time       { return e.TimeStamp }
func (e OrderCanceled) Time() time.Time     { return e.TimeStamp }
func (e PositionChanged) Time() time.Time   { return e.TimeStamp }
func (e FundingApplied) Time() time.Time    { return e.TimeStamp }
func (e LiquidationNotice) Time() time.Time { return e.TimeStamp }
func (e EngineError) Time() time.Time       { return e.TimeStamp }
