// Package redis manages the shared Redis connection used by the rate-limiter
// counters and the durable job queue: connecting with retries and exposing a
// healthcheck probe.
//
// Redis is an externally managed store here; it may restart independently of
// the application, so callers must treat returned errors as transient and
// rely on go-redis's internal reconnect behavior rather than rebuilding the
// client.
package redis
