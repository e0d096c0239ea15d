// Package bench compares the B+ tree engine with Pebble under mixed
// workloads.
//
// Both engines sit behind Engine, keyed by int64. RunSuite preloads each
// engine, then drives the same seeded operation sequence through it:
//
//   - OLTP: 90% point reads, 10% writes
//   - OLAP: 10% point reads, 90% writes
//   - Reporting: range scans of RangeWidth keys
//
// Results land in a Report that renders as text, Markdown or CSV.
package bench
