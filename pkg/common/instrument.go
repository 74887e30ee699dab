package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

type InstrumentKind string

const (
	InstrumentSpot      InstrumentKind = "spot"
	InstrumentPerpetual InstrumentKind = "perp"
	InstrumentFuture    InstrumentKind = "future"
)

// InstrumentId identifies one tradable instrument on one venue. Equality is
// structural, so it can be used directly as a map key; Key returns the stable
// string form used in snapshots and journal rows.
type InstrumentId struct {
	Venue string         `json:"venue"`
	Pair  string         `json:"pair"`
	Kind  InstrumentKind `json:"kind"`
}

func NewInstrumentId(venue, pair string, kind InstrumentKind) InstrumentId {
	return InstrumentId{
		Venue: strings.ToLower(venue),
		Pair:  strings.ToUpper(pair),
		Kind:  kind,
	}
}

func (id InstrumentId) Key() string {
	return fmt.Sprintf("%s:%s:%s", id.Venue, id.Pair, id.Kind)
}

func (id InstrumentId) String() string {
	return id.Key()
}

// BaseAsset returns the left leg of the trading pair, e.g. "BTC" for "BTC-USDT".
func (id InstrumentId) BaseAsset() string {
	if base, _, ok := strings.Cut(id.Pair, "-"); ok {
		return base
	}
	return id.Pair
}

func (id InstrumentId) QuoteAsset() string {
	if _, quote, ok := strings.Cut(id.Pair, "-"); ok {
		return quote
	}
	return ""
}

func (id InstrumentId) IsLeveraged() bool {
	return id.Kind == InstrumentPerpetual || id.Kind == InstrumentFuture
}

// InstrumentSpec is the immutable trading-rule set for one instrument. It is
// constructed once at registration and never mutated afterwards.
type InstrumentSpec struct {
	Id InstrumentId `json:"id"`

	PriceTick   fixed.Point `json:"price_tick"`
	SizeTick    fixed.Point `json:"size_tick"`
	MinQuantity fixed.Point `json:"min_quantity"`
	MaxQuantity fixed.Point `json:"max_quantity"`
	MinNotional fixed.Point `json:"min_notional"`

	MakerFeeRate fixed.Point `json:"maker_fee_rate"`
	TakerFeeRate fixed.Point `json:"taker_fee_rate"`

	// Zero for spot instruments.
	MarginInitRatio  fixed.Point `json:"margin_init_ratio"`
	MarginMaintRatio fixed.Point `json:"margin_maint_ratio"`
	MaxLeverage      fixed.Point `json:"max_leverage"`

	FundingInterval time.Duration `json:"funding_interval"`
}

// QuantizePrice snaps a price to the instrument price tick, rounding toward
// the conservative side for the order direction: down for buys, up for sells.
func (s InstrumentSpec) QuantizePrice(price fixed.Point, side Side) fixed.Point {
	if s.PriceTick.IsZero() || price.IsZero() {
		return price
	}
	_, rem := price.QuoRem(s.PriceTick)
	if rem.IsZero() {
		return price
	}
	floor := price.Sub(rem)
	if side == SideBuy {
		return floor
	}
	return floor.Add(s.PriceTick)
}

// QuantizeSize snaps a quantity down to the instrument size tick.
func (s InstrumentSpec) QuantizeSize(qty fixed.Point) fixed.Point {
	if s.SizeTick.IsZero() || qty.IsZero() {
		return qty
	}
	_, rem := qty.QuoRem(s.SizeTick)
	return qty.Sub(rem)
}

// Validate checks quantized order parameters against the instrument bounds.
// It returns a machine-readable reason instead of an error so callers can turn
// it straight into a rejection event.
func (s InstrumentSpec) Validate(orderType OrderType, price, qty fixed.Point) RejectReason {
	if qty.Lte(fixed.Zero) {
		return ReasonBadQuantity
	}
	if !s.MinQuantity.IsZero() && qty.Lt(s.MinQuantity) {
		return ReasonBadQuantity
	}
	if !s.MaxQuantity.IsZero() && qty.Gt(s.MaxQuantity) {
		return ReasonBadQuantity
	}
	if orderType != OrderTypeMarket {
		if price.Lte(fixed.Zero) {
			return ReasonBadPrice
		}
		if !s.MinNotional.IsZero() && price.Mul(qty).Lt(s.MinNotional) {
			return ReasonMinNotional
		}
	}
	return ReasonNone
}

// EffectiveLeverage clamps a requested leverage to [1, MaxLeverage]. Spot is
// always 1.
func (s InstrumentSpec) EffectiveLeverage(requested fixed.Point) fixed.Point {
	if !s.Id.IsLeveraged() {
		return fixed.One
	}
	if requested.Lte(fixed.Zero) {
		return fixed.One
	}
	if !s.MaxLeverage.IsZero() && requested.Gt(s.MaxLeverage) {
		return s.MaxLeverage
	}
	return requested
}
