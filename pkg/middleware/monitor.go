package middleware

import (
	"log/slog"

	"github.com/peter-kozarec/paperdesk/pkg/common"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorAccepted
	MonitorRejected
	MonitorFills
	MonitorCancels
	MonitorPositions
	MonitorFunding
	MonitorLiquidations
	MonitorFaults
)

type Monitor struct {
	flags MonitorFlags
}

func NewMonitor(flags MonitorFlags) *Monitor {
	return &Monitor{
		flags: flags,
	}
}

func (m *Monitor) With(handler EventHandler) EventHandler {
	return func(ev common.Event) {
		if m.enabled(ev.Kind()) {
			m.log(ev)
		}
		handler(ev)
	}
}

func (m *Monitor) enabled(kind common.EventKind) bool {
	if m.flags&MonitorAll != 0 {
		return true
	}
	switch kind {
	case common.EventKindOrderAccepted:
		return m.flags&MonitorAccepted != 0
	case common.EventKindOrderRejected:
		return m.flags&MonitorRejected != 0
	case common.EventKindOrderFilled:
		return m.flags&MonitorFills != 0
	case common.EventKindOrderCanceled:
		return m.flags&MonitorCancels != 0
	case common.EventKindPositionChanged:
		return m.flags&MonitorPositions != 0
	case common.EventKindFundingApplied:
		return m.flags&MonitorFunding != 0
	case common.EventKindLiquidationNotice:
		return m.flags&MonitorLiquidations != 0
	case common.EventKindEngineError:
		return m.flags&MonitorFaults != 0
	default:
		return false
	}
}

func (m *Monitor) log(ev common.Event) {
	switch v := ev.(type) {
	case common.OrderFilled:
		slog.Info("event", "fill", v)
	case common.OrderRejected:
		slog.Warn("event", "reject", v)
	case common.LiquidationNotice:
		slog.Warn("event", "liquidation_candidate", v)
	case common.EngineError:
		slog.Error("event", "fault", v)
	default:
		slog.Info("event", string(ev.Kind()), ev)
	}
}
