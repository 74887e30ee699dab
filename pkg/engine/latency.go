package engine

import "time"

// FixedLatencyModel delays every new-order acceptance by a constant duration.
// A zero delay opens orders immediately on submit.
type FixedLatencyModel struct {
	delay time.Duration
}

func NewFixedLatencyModel(delay time.Duration) *FixedLatencyModel {
	if delay < 0 {
		delay = 0
	}
	return &FixedLatencyModel{delay: delay}
}

func (m *FixedLatencyModel) TotalInsert() time.Duration {
	return m.delay
}
