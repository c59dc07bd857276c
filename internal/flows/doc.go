// Package flows contains pure orchestration helpers for Session operations.
//
// Each helper accepts plain inputs or a typed dependency struct and returns a
// result with a failure kind. The root package maps failure kinds onto its
// public error values, so this package stays free of the public types.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goThreeDS (to avoid import cycles).
//   - Perform I/O directly; the gateway call is mediated through LookupDeps.
package flows
