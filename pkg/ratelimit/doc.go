// Package ratelimit bounds how many emails a sender may send per calendar
// hour.
//
// The window is a fixed one-hour bucket keyed by sender id and wall-clock
// hour (YYYY-MM-DD-HH), so quotas reset exactly at hour boundaries rather
// than rolling. Admission is an atomic increment-then-compare against a
// shared counter store: the counter is incremented, an expiry is set on the
// window's first increment, and if the post-increment count exceeds the
// limit the increment is reverted and the call is denied with the time
// remaining until the next hour boundary.
//
// The Store interface owns the atomicity. The Redis store runs the whole
// sequence as a single Lua script, which keeps admission safe when several
// worker processes check the same sender concurrently: no interleaving can
// let two callers both claim the last slot. The in-memory store serves tests
// and single-process development.
package ratelimit
