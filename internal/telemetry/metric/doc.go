// Package metric provides Prometheus metrics for SaveKeep.
//
//   - prometheus.go: the registry of save, load, restore and integrity metrics
//   - collector.go: a collector reporting per-slot save point counts
//
// The play command serves them at /metrics when metrics.addr is set.
package metric
