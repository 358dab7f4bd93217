package middleware

import "errors"

// ErrTransient marks a handler error as retryable. RetryMiddleware retries
// only errors that wrap ErrTransient, generalizing the teacher's substring
// match on "timeout"/"connection refused" into an explicit sentinel.
var ErrTransient = errors.New("middleware: transient error")

// ErrRateLimited is returned by RateLimitMiddleware when a request is
// rejected for exceeding the configured rate.
var ErrRateLimited = errors.New("middleware: rate limit exceeded")

// ErrTimedOut is returned by TimeoutMiddleware when the handler does not
// complete within the configured deadline. The error TimeoutMiddleware
// returns wraps both ErrTimedOut and ErrTransient, since a timeout is
// exactly the kind of error worth retrying.
var ErrTimedOut = errors.New("middleware: request timed out")
