// Package stores provides Redis-backed, short-lived records for lookups that
// are performed on a server and resumed by a client.
//
// # Design
//
// Each record is persisted as a versioned binary envelope with a TTL. Records
// are single-use: Consume reads and deletes in one GETDEL round trip, so two
// concurrent resumes of the same handoff can never both succeed.
//
// # Architecture boundaries
//
// This package owns persistence only. It does not decode the lookup payload
// or make verification decisions.
//
// # What this package must NOT do
//
//   - Import goThreeDS or any sibling internal package.
//   - Log lookup payloads.
package stores
