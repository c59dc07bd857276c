// Package prometheus renders verification metrics in Prometheus text
// exposition format.
//
// Counter names are prefixed threeds_*_total; the single histogram is
// threeds_lookup_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate session state.
package prometheus
