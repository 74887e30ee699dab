package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

func TestLedger_ReserveReleaseCycle(t *testing.T) {
	l := New()
	l.Credit("USDT", fixed.FromInt(1000, 0))

	before := l.Available("USDT")
	assert.True(t, l.CanReserve("USDT", fixed.FromInt(400, 0)))

	l.Reserve("USDT", fixed.FromInt(400, 0))
	assert.True(t, l.Available("USDT").Eq(fixed.FromInt(600, 0)))
	assert.True(t, l.Total("USDT").Eq(fixed.FromInt(1000, 0)))

	l.Release("USDT", fixed.FromInt(400, 0))
	assert.True(t, l.Available("USDT").Eq(before), "available after release = %s", l.Available("USDT"))
}

func TestLedger_CannotReserveBeyondAvailable(t *testing.T) {
	l := New()
	l.Credit("USDT", fixed.FromInt(100, 0))
	l.Reserve("USDT", fixed.FromInt(80, 0))

	assert.False(t, l.CanReserve("USDT", fixed.FromInt(30, 0)))
	assert.True(t, l.CanReserve("USDT", fixed.FromInt(20, 0)))
}

func TestLedger_NonPositiveAmountsAreNoOps(t *testing.T) {
	l := New()
	l.Credit("BTC", fixed.FromInt(-5, 0))
	l.Debit("BTC", fixed.FromInt(-5, 0))
	l.Reserve("BTC", fixed.Zero)
	l.Release("BTC", fixed.FromInt(-1, 0))

	assert.True(t, l.Total("BTC").IsZero())
	assert.True(t, l.Reserved("BTC").IsZero())
	assert.True(t, l.CanReserve("BTC", fixed.Zero))
}

func TestLedger_AvailableClampsAtZero(t *testing.T) {
	l := New()
	l.Credit("USDT", fixed.FromInt(100, 0))
	l.Reserve("USDT", fixed.FromInt(100, 0))

	// Debit below the reservation. Available must clamp, not go negative.
	l.Debit("USDT", fixed.FromInt(50, 0))
	assert.True(t, l.Available("USDT").IsZero())

	// Over-release clamps the reservation at zero.
	l.Release("USDT", fixed.FromInt(500, 0))
	assert.True(t, l.Reserved("USDT").IsZero())
	assert.True(t, l.Available("USDT").Eq(fixed.FromInt(50, 0)))
}

func TestLedger_AvailableNeverNegativeUnderRandomOps(t *testing.T) {
	l := New()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		amount := fixed.FromInt64(rng.Int63n(1000)-200, 0)
		switch rng.Intn(4) {
		case 0:
			l.Credit("USDT", amount)
		case 1:
			l.Debit("USDT", amount)
		case 2:
			l.Reserve("USDT", amount)
		case 3:
			l.Release("USDT", amount)
		}
		assert.False(t, l.Available("USDT").IsNeg(), "available went negative at op %d", i)
		assert.False(t, l.Reserved("USDT").IsNeg(), "reserved went negative at op %d", i)
	}
}

func TestLedger_RestoreRoundTrip(t *testing.T) {
	l := New()
	l.Credit("USDT", fixed.FromInt(1000, 0))
	l.Credit("BTC", fixed.FromFloat64(0.5))
	l.Reserve("USDT", fixed.FromInt(250, 0))

	restored := New()
	restored.Restore(l.Balances(), l.Reservations())

	assert.True(t, restored.Total("USDT").Eq(fixed.FromInt(1000, 0)))
	assert.True(t, restored.Total("BTC").Eq(fixed.FromFloat64(0.5)))
	assert.True(t, restored.Reserved("USDT").Eq(fixed.FromInt(250, 0)))
	assert.True(t, restored.Available("USDT").Eq(fixed.FromInt(750, 0)))
}
