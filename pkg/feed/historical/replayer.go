package historical

import (
	"fmt"
	"time"

	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/feed"
	"github.com/peter-kozarec/paperdesk/pkg/utility"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

const (
	invalidIndex          = -1
	replayerComponentName = "feed.historical.replayer"

	// recordDepth is the number of ladder levels stored per book side.
	recordDepth = 5
)

// BinaryBookRecord is the on-disk layout of one recorded snapshot. Unused
// trailing levels carry zero size.
type BinaryBookRecord struct {
	TimeStamp   int64
	FundingRate float64
	BidPrices   [recordDepth]float64
	BidSizes    [recordDepth]float64
	AskPrices   [recordDepth]float64
	AskSizes    [recordDepth]float64
}

func (r BinaryBookRecord) toSnapshot(book *common.OrderBookSnapshot) {
	book.TimeStamp = time.Unix(0, r.TimeStamp)
	book.Bids = book.Bids[:0]
	book.Asks = book.Asks[:0]

	for i := 0; i < recordDepth; i++ {
		if r.BidSizes[i] > 0 {
			book.Bids = append(book.Bids, common.PriceLevel{
				Price: fixed.FromFloat64(r.BidPrices[i]),
				Size:  fixed.FromFloat64(r.BidSizes[i]),
			})
		}
		if r.AskSizes[i] > 0 {
			book.Asks = append(book.Asks, common.PriceLevel{
				Price: fixed.FromFloat64(r.AskPrices[i]),
				Size:  fixed.FromFloat64(r.AskSizes[i]),
			})
		}
	}
}

// Replayer walks recorded snapshots within a time window in file order. The
// start index is found by binary search on the first pull.
type Replayer struct {
	file *RecordFile

	instrument common.InstrumentId
	from       int64
	to         int64
	idx        int64

	lastFundingRate fixed.Point
}

func NewReplayer(file *RecordFile, instrument common.InstrumentId, from, to time.Time) *Replayer {
	return &Replayer{
		file:       file,
		instrument: instrument,
		from:       from.UnixNano(),
		to:         to.UnixNano(),
		idx:        invalidIndex,
	}
}

func (r *Replayer) Book() (common.OrderBookSnapshot, error) {

	var book common.OrderBookSnapshot
	var record BinaryBookRecord

	if r.idx == invalidIndex {
		if err := r.lookupStartIndex(); err != nil {
			return book, err
		}
	}

	if err := r.file.Read(r.idx, &record); err != nil {
		return book, fmt.Errorf("error reading entry at index %d: %w", r.idx, err)
	}
	r.idx++

	if record.TimeStamp < r.from {
		return book, fmt.Errorf("timestamp is not from the proposed range")
	}

	if record.TimeStamp > r.to {
		return book, feed.ErrExhausted
	}

	record.toSnapshot(&book)
	r.lastFundingRate = fixed.FromFloat64(record.FundingRate)

	book.Source = replayerComponentName
	book.Instrument = r.instrument
	book.ExecutionId = utility.GetExecutionID()
	book.TraceID = utility.TraceIDAt(book.TimeStamp)

	return book, nil
}

func (r *Replayer) FundingRate() fixed.Point {
	return r.lastFundingRate
}

func (r *Replayer) lookupStartIndex() error {
	idx, err := r.file.SearchTimestamp(r.from)
	if err != nil {
		return fmt.Errorf("error searching start index: %w", err)
	}
	if idx >= r.file.Len() {
		return feed.ErrExhausted
	}

	r.idx = idx
	return nil
}
