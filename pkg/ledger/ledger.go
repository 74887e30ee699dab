// Package ledger tracks per-asset total and reserved balances. It enforces no
// cross-asset invariant; that is the risk guard's job.
package ledger

import (
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// Ledger is owned exclusively by the portfolio and mutated only through its
// methods. All operations are no-ops for non-positive amounts, and Available
// clamps at zero instead of going negative so a transient over-reservation
// degrades gracefully instead of crashing a tick.
type Ledger struct {
	totals   map[string]fixed.Point
	reserved map[string]fixed.Point
}

func New() *Ledger {
	return &Ledger{
		totals:   make(map[string]fixed.Point),
		reserved: make(map[string]fixed.Point),
	}
}

func (l *Ledger) Total(asset string) fixed.Point {
	if v, ok := l.totals[asset]; ok {
		return v
	}
	return fixed.Zero
}

func (l *Ledger) Reserved(asset string) fixed.Point {
	if v, ok := l.reserved[asset]; ok {
		return v
	}
	return fixed.Zero
}

// Available is max(0, total - reserved).
func (l *Ledger) Available(asset string) fixed.Point {
	avail := l.Total(asset).Sub(l.Reserved(asset))
	if avail.IsNeg() {
		return fixed.Zero
	}
	return avail
}

func (l *Ledger) CanReserve(asset string, amount fixed.Point) bool {
	if amount.Lte(fixed.Zero) {
		return true
	}
	return l.Available(asset).Gte(amount)
}

func (l *Ledger) Reserve(asset string, amount fixed.Point) {
	if amount.Lte(fixed.Zero) {
		return
	}
	l.reserved[asset] = l.Reserved(asset).Add(amount)
}

// Release returns reserved funds to the available pool. Releasing more than is
// currently reserved clamps the reservation at zero.
func (l *Ledger) Release(asset string, amount fixed.Point) {
	if amount.Lte(fixed.Zero) {
		return
	}
	remaining := l.Reserved(asset).Sub(amount)
	if remaining.IsNeg() {
		remaining = fixed.Zero
	}
	l.reserved[asset] = remaining
}

func (l *Ledger) Credit(asset string, amount fixed.Point) {
	if amount.Lte(fixed.Zero) {
		return
	}
	l.totals[asset] = l.Total(asset).Add(amount)
}

func (l *Ledger) Debit(asset string, amount fixed.Point) {
	if amount.Lte(fixed.Zero) {
		return
	}
	l.totals[asset] = l.Total(asset).Sub(amount)
}

// Balances returns a copy of the per-asset totals.
func (l *Ledger) Balances() map[string]fixed.Point {
	out := make(map[string]fixed.Point, len(l.totals))
	for asset, total := range l.totals {
		out[asset] = total
	}
	return out
}

// Reservations returns a copy of the per-asset reserved amounts.
func (l *Ledger) Reservations() map[string]fixed.Point {
	out := make(map[string]fixed.Point, len(l.reserved))
	for asset, amount := range l.reserved {
		out[asset] = amount
	}
	return out
}

// Restore replaces all balances and reservations. Nil maps reset to empty.
func (l *Ledger) Restore(totals, reserved map[string]fixed.Point) {
	l.totals = make(map[string]fixed.Point, len(totals))
	for asset, total := range totals {
		l.totals[asset] = total
	}
	l.reserved = make(map[string]fixed.Point, len(reserved))
	for asset, amount := range reserved {
		l.reserved[asset] = amount
	}
}
