package desk

import (
	"github.com/peter-kozarec/paperdesk/pkg/common"
	"github.com/peter-kozarec/paperdesk/pkg/engine"
	"github.com/peter-kozarec/paperdesk/pkg/utility/fixed"
)

// PaperStats is the desk-wide trading summary.
type PaperStats struct {
	Equity     fixed.Point    `json:"equity"`
	PeakEquity fixed.Point    `json:"peak_equity"`
	Drawdown   fixed.Point    `json:"drawdown"`
	Engines    []engine.Stats `json:"engines"`
}

func (d *Desk) Stats() PaperStats {
	stats := PaperStats{
		Equity:     d.portfolio.Equity(),
		PeakEquity: d.portfolio.PeakEquity(),
		Drawdown:   d.portfolio.Drawdown(),
	}
	for _, slot := range d.slots {
		stats.Engines = append(stats.Engines, slot.engine.Stats())
	}
	return stats
}

// InstrumentStats returns counters for one instrument.
func (d *Desk) InstrumentStats(id common.InstrumentId) (engine.Stats, bool) {
	slot, ok := d.byKey[id.Key()]
	if !ok {
		return engine.Stats{}, false
	}
	return slot.engine.Stats(), true
}

type DuplicateInstrumentError struct {
	Id common.InstrumentId
}

func (e *DuplicateInstrumentError) Error() string {
	return "instrument already registered: " + e.Id.Key()
}
