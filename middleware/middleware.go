// Package middleware implements the onion model middleware chain wrapping
// the gateway's message handling.
//
// Middleware wraps the business handler to add cross-cutting concerns
// (logging, timeout, rate limiting, retry) without modifying the handler
// itself.
//
// Onion model execution order:
//
//	Chain(A, B, C)(handler)  →  A(B(C(handler)))
//
//	Request:   A.before → B.before → C.before → handler
//	Response:  handler → C.after → B.after → A.after
//
// Each middleware can:
//   - Do pre-processing (before calling next)
//   - Call next(ctx, sessionID, req) to pass to the next layer
//   - Do post-processing (after next returns)
//   - Short-circuit by returning early without calling next (e.g., rate limiting)
package middleware

import (
	"context"

	"tcpgate/message"
)

// HandlerFunc is the function signature for message handlers. Both the
// business handler and middleware-wrapped handlers share this signature.
// sessionID identifies the connection the message arrived on.
type HandlerFunc func(ctx context.Context, sessionID uint64, req message.Message) (message.Message, error)

// Middleware takes a handler and returns a new handler that wraps it.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes multiple middlewares into a single middleware. It builds
// the chain from right to left so the first middleware in the list is the
// outermost layer (executed first on request, last on response).
//
// Example:
//
//	chain := Chain(Logging, Timeout, RateLimit)
//	handler := chain(businessHandler)
//	// Execution: Logging → Timeout → RateLimit → businessHandler → RateLimit → Timeout → Logging
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
