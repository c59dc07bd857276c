package rate

import "errors"

var (
	// ErrRateLimited is returned once a reference has used its lookup budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
