package middleware

import (
	"context"
	"fmt"
	"time"

	"tcpgate/message"
)

// TimeoutMiddleware enforces a maximum duration for each message handled.
// If the handler doesn't complete within the timeout, it returns
// ErrTimedOut immediately.
//
// Implementation:
//  1. Create a context with timeout (ctx.Done() fires when timeout expires)
//  2. Run the next handler in a goroutine, sending its result to a channel
//  3. Select between the result channel and ctx.Done()
//
// The handler goroutine is NOT cancelled on timeout — it keeps running in
// the background. The timeout only controls when the caller gives up
// waiting; a handler that needs true cancellation must check ctx.Done()
// internally.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sessionID uint64, req message.Message) (message.Message, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp message.Message
				err  error
			}
			done := make(chan result, 1) // buffered: avoid leaking the goroutine on timeout
			go func() {
				resp, err := next(ctx, sessionID, req)
				done <- result{resp, err}
			}()

			select {
			case r := <-done:
				return r.resp, r.err
			case <-ctx.Done():
				return message.Message{}, fmt.Errorf("%w: %w", ErrTransient, ErrTimedOut)
			}
		}
	}
}
