// Package ratelimit provides rate limiting for platform API traffic.
//
// Scan and download requests share a per-process budget so a large queue of
// models cannot hammer the API and trip the server's own limiter.
//
// Available Implementations:
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Suitable for burst traffic followed by quiet periods
//   - Default implementation used by the scraper
//
// Sliding Window:
//   - Tracks requests within a moving time window
//   - Never grants a burst larger than the cap
//   - Paces like and unlike writes
//
// Interface:
//
// All rate limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait() - Block until a request is allowed
//   - Reset() - Reset the limiter state
//
// WaitContext wraps any Limiter with context cancellation, which the daemon
// loop relies on to abort a cycle promptly.
//
// Usage:
//
//	// Token bucket: 300 requests per minute
//	limiter := ratelimit.NewTokenBucket(300, time.Minute)
//
//	if err := ratelimit.WaitContext(ctx, limiter); err != nil {
//	    return err // cancelled
//	}
//	// Proceed with request
package ratelimit
