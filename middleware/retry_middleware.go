package middleware

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tcpgate/message"
)

// RetryMiddleware retries a handler up to maxRetries times with exponential
// backoff, but only for errors wrapping ErrTransient — generalizing the
// teacher's substring match on "timeout"/"connection refused" into an
// explicit sentinel a handler (or an earlier middleware) opts into.
func RetryMiddleware(maxRetries int, baseDelay time.Duration, log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sessionID uint64, req message.Message) (message.Message, error) {
			resp, err := next(ctx, sessionID, req)
			for i := 0; i < maxRetries; i++ {
				if err == nil {
					return resp, nil
				}
				if !errors.Is(err, ErrTransient) {
					return resp, err
				}
				if log != nil {
					log.Info("retrying after transient error",
						zap.Uint64("conn_id", sessionID),
						zap.Uint16("protocol_id", req.ProtocolID),
						zap.Int("attempt", i+1),
						zap.Error(err))
				}
				time.Sleep(baseDelay * time.Duration(1<<i))
				resp, err = next(ctx, sessionID, req)
			}
			return resp, err
		}
	}
}
