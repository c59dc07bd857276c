// Package goThreeDS orchestrates 3-D Secure cardholder verification: a gateway
// lookup for a tokenized card, an interactive issuer challenge when the lookup
// asks for one, and the mapping of the result onto an authenticated reference
// with liability-shift information.
//
// A [Session] runs at most one verification at a time and is safe to call
// from multiple goroutines after initialization through [Builder.Build]. The
// challenge is driven by one of two strategies chosen by [Config].Version:
// the legacy strategy mounts a bank frame and listens on a message [bus],
// the modern strategy drives an external [ChallengeSDK].
//
// # Architecture boundaries
//
// goThreeDS is the public surface. It exposes [Session], [Builder], [Config]
// and value types (VerificationRequest, LookupResult, VerificationOutcome,
// MetricsSnapshot). Precondition ordering, lookup classification, SDK setup
// coordination and handoff persistence live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores or encoding details in its public API.
//   - Perform I/O during Build. The SDK script is loaded on the first
//     verification that needs it.
//   - Import any sub-package that re-imports goThreeDS.
//
// # Errors
//
// Every operation fails with an [*Error] carrying a stable type and code.
// errors.Is matches an exported sentinel such as [ErrLookupReferenceNotFound]
// by code; the underlying transport or SDK failure is kept as the cause.
package goThreeDS
