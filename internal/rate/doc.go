// Package rate provides the Redis-backed fixed-window counter that bounds
// gateway lookups per payment method reference.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:<reference id>".
//
// # What this package must NOT do
//
//   - Decide which calls are limited (the session does).
//   - Be imported outside the goThreeDS module.
package rate
