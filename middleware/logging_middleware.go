package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tcpgate/message"
)

// LoggingMiddleware records the protocol id, duration, and any error for
// each message handled. It captures the start time before calling next, and
// logs the elapsed time after next returns.
func LoggingMiddleware(log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, sessionID uint64, req message.Message) (message.Message, error) {
			start := time.Now()

			resp, err := next(ctx, sessionID, req)

			if log == nil {
				return resp, err
			}
			fields := []zap.Field{
				zap.Uint64("conn_id", sessionID),
				zap.Uint16("protocol_id", req.ProtocolID),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				log.Error("message handled with error", append(fields, zap.Error(err))...)
			} else {
				log.Info("message handled", fields...)
			}
			return resp, err
		}
	}
}
