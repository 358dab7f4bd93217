package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"tcpgate/message"
)

// RateLimitMiddleware creates a rate limiter using the token bucket algorithm.
//
// Token bucket: tokens are added at rate r per second, up to a burst size.
// Each message consumes one token. If the bucket is empty, the message is
// rejected. Unlike a leaky bucket (constant drain rate), token bucket allows
// short bursts of traffic.
//
// The limiter is created in the outer closure (once per middleware
// creation), not in the inner handler function: a fresh limiter per message
// would defeat the entire purpose of rate limiting.
//
// Parameters:
//   - r: token refill rate (tokens per second)
//   - burst: maximum bucket size (allows this many messages in a burst)
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sessionID uint64, req message.Message) (message.Message, error) {
			if !limiter.Allow() {
				return message.Message{}, ErrRateLimited
			}
			return next(ctx, sessionID, req)
		}
	}
}
