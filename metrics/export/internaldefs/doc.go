// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporters, so that Prometheus and OTel output stay identical.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
