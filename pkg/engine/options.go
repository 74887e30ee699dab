package engine

import "time"

type Option func(*Engine)

func WithFillModel(model FillModel) Option {
	return func(e *Engine) {
		e.fillModel = model
	}
}

func WithFeeModel(model FeeModel) Option {
	return func(e *Engine) {
		e.feeModel = model
	}
}

func WithLatencyModel(model LatencyModel) Option {
	return func(e *Engine) {
		e.latencyModel = model
	}
}

// WithRejectCrossedMakers makes limit-maker orders that would cross the book
// reject instead of being tagged and accepted.
func WithRejectCrossedMakers() Option {
	return func(e *Engine) {
		e.rejectCrossedMakers = true
	}
}

func WithMaxFillsPerOrder(n int) Option {
	return func(e *Engine) {
		e.maxFillsPerOrder = n
	}
}

// WithMinFillGap sets the minimum time between consecutive fills on one order.
func WithMinFillGap(gap time.Duration) Option {
	return func(e *Engine) {
		e.minFillGap = gap
	}
}

// WithRetention sets how long terminal orders are kept before pruning.
func WithRetention(retention time.Duration) Option {
	return func(e *Engine) {
		e.retention = retention
	}
}
