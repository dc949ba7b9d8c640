// Package ratelimit counts requests per client key. MemoryLimiter keeps fixed
// windows in process, RedisLimiter keeps sliding windows in Redis.
package ratelimit

import "time"

type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}
