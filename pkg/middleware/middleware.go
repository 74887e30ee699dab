// Package middleware provides composable wrappers around desk event handling:
// logging, counting, alerting. Wrappers nest outermost-first.
package middleware

import (
	"github.com/peter-kozarec/paperdesk/pkg/common"
)

type EventHandler func(common.Event)

// Chain wraps handler with the given middleware, first wrapper outermost.
func Chain(handler EventHandler, wrappers ...func(EventHandler) EventHandler) EventHandler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		handler = wrappers[i](handler)
	}
	return handler
}

// Noop terminates a middleware chain that only observes events.
func Noop(common.Event) {}
