// Package feed is the market-data boundary. The desk pulls one book snapshot
// per feed per tick; implementations that read from the outside world must
// cache internally so the pull never blocks.
package feed

import (
	"errors"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// ErrExhausted signals a finite feed has no more data. The desk treats it as
// end of session for the instrument, not as a fault.
var ErrExhausted = errors.New("feed exhausted")

type Feed interface {
	// Book returns the next or latest order book snapshot.
	Book() (common.OrderBookSnapshot, error)

	// FundingRate is the current funding rate for leveraged instruments.
	// Spot feeds return zero.
	FundingRate() fixed.Point
}
