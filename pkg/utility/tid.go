package utility

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TraceID correlates every event an order lifecycle produces. The layout is
// millis-since-epoch | session | sequence, so ids from one run sort by the
// clock that stamped them and two runs of the same seed stay distinguishable.
type TraceID = uint64

const (
	sessionBits  = 10
	sequenceBits = 13

	maxSequence = 1<<sequenceBits - 1
	maxSession  = 1<<sessionBits - 1

	timestampShift = sessionBits + sequenceBits
	sessionShift   = sequenceBits
)

var (
	sequence  atomic.Uint64
	sessionID uint64
	epoch     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
)

func init() {
	sessionID = uint64(uuid.New().ID()) & maxSession
}

// SessionID identifies this process run.
func SessionID() uint64 {
	return sessionID
}

// CreateTraceID stamps with the wall clock. Components driven by simulated
// time use TraceIDAt instead.
func CreateTraceID() TraceID {
	return TraceIDAt(time.Now())
}

// TraceIDAt stamps an id with the caller's clock. Sequence numbers roll over
// within a millisecond without blocking; simulated clocks can sit on one
// millisecond for many ticks and must never stall id creation.
func TraceIDAt(now time.Time) TraceID {
	timestamp := uint64(now.UnixMilli() - epoch)
	seq := sequence.Add(1) & maxSequence
	return (timestamp << timestampShift) | (sessionID << sessionShift) | seq
}

func ParseTraceID(id TraceID) (timestamp time.Time, session uint64, seq uint64) {
	seq = id & maxSequence
	session = (id >> sessionShift) & maxSession
	ts := id >> timestampShift
	timestamp = time.UnixMilli(epoch + int64(ts))
	return
}
