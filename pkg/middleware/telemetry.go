package middleware

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/paperdesk/pkg/common"
)

// Telemetry counts events by kind for the end-of-session report.
type Telemetry struct {
	logger *zap.Logger

	counters map[common.EventKind]int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger:   logger,
		counters: make(map[common.EventKind]int64),
	}
}

func (t *Telemetry) With(handler EventHandler) EventHandler {
	return func(ev common.Event) {
		t.counters[ev.Kind()]++
		handler(ev)
	}
}

func (t *Telemetry) Count(kind common.EventKind) int64 {
	return t.counters[kind]
}

func (t *Telemetry) PrintStatistics() {
	fields := make([]zap.Field, 0, len(t.counters))
	for kind, count := range t.counters {
		fields = append(fields, zap.Int64(string(kind), count))
	}
	t.logger.Info("event statistics", fields...)
}
