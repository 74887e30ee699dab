package engine

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// Fill is one fill decision produced by a FillModel. A zero quantity means no
// fill this tick.
type Fill struct {
	Quantity fixed.Point
	Price    fixed.Point
	IsMaker  bool
}

// FillModel decides whether and how an open order fills against the current
// book. Implementations must be deterministic given their seed so a session
// can be replayed.
type FillModel interface {
	Evaluate(order common.PaperOrder, book common.OrderBookSnapshot, now time.Time) Fill
}

// FeeModel computes a non-negative fee in quote-asset units.
type FeeModel interface {
	Compute(notional fixed.Point, isMaker bool) fixed.Point
}

// LatencyModel yields the insert delay applied uniformly to new-order
// acceptance.
type LatencyModel interface {
	TotalInsert() time.Duration
}
