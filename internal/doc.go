// Package internal groups the helpers that are private to goThreeDS.
//
// # Sub-packages
//
//   - bootstrap: single-flight challenge SDK setup with a timeout
//   - flows: pure-function helpers for preconditions, lookups, SDK errors and outcomes
//   - future: settle-once values shared between goroutines
//   - rate: Redis fixed-window lookup limiter
//   - stores: Redis store for server lookup handoffs
//
// # What this package must NOT do
//
//   - Export types that appear in the public goThreeDS API.
//   - Be imported by any package outside the goThreeDS module.
package internal
