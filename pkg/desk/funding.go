package desk

import (
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// FundingSimulator decides when a leveraged position owes funding and at what
// rate. The desk asks once per tick per leveraged instrument with an open
// position.
type FundingSimulator interface {
	Due(spec common.InstrumentSpec, last time.Time, now time.Time, feedRate fixed.Point) (fixed.Point, bool)
}

// IntervalFundingSimulator applies the feed's rate once per funding interval.
// Instruments without a configured interval never accrue funding.
type IntervalFundingSimulator struct {
	defaultInterval time.Duration
}

func NewIntervalFundingSimulator(defaultInterval time.Duration) *IntervalFundingSimulator {
	return &IntervalFundingSimulator{defaultInterval: defaultInterval}
}

func (s *IntervalFundingSimulator) Due(spec common.InstrumentSpec, last time.Time, now time.Time, feedRate fixed.Point) (fixed.Point, bool) {
	interval := spec.FundingInterval
	if interval <= 0 {
		interval = s.defaultInterval
	}
	if interval <= 0 || feedRate.IsZero() {
		return fixed.Zero, false
	}
	if now.Sub(last) < interval {
		return fixed.Zero, false
	}
	return feedRate, true
}
