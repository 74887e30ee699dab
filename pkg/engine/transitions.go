package engine

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/paperdesk/pkg/common"
)

// ErrInvalidTransition flags an order lifecycle move outside the closed
// transition table. It indicates a programming or replay-consistency fault,
// never a user error.
var ErrInvalidTransition = errors.New("invalid order state transition")

func canTransition(from, to common.OrderStatus) bool {
	switch from {
	case common.OrderStatusPendingSubmit:
		return to == common.OrderStatusOpen ||
			to == common.OrderStatusCanceled ||
			to == common.OrderStatusRejected
	case common.OrderStatusOpen:
		return to == common.OrderStatusPartiallyFilled ||
			to == common.OrderStatusFilled ||
			to == common.OrderStatusCanceled
	case common.OrderStatusPartiallyFilled:
		return to == common.OrderStatusPartiallyFilled ||
			to == common.OrderStatusFilled ||
			to == common.OrderStatusCanceled
	case common.OrderStatusFilled, common.OrderStatusCanceled, common.OrderStatusRejected:
		return false
	default:
		return false
	}
}

func transition(order *common.PaperOrder, to common.OrderStatus) error {
	if !canTransition(order.Status, to) {
		return fmt.Errorf("%w: %s -> %s for order %s", ErrInvalidTransition, order.Status, to, order.Id)
	}
	order.Status = to
	return nil
}
