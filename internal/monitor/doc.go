// Package monitor aggregates engine statistics: task outcome counters,
// a rolling average of processing time, queue depth, and per-state
// worker counts. It also exposes the numbers as Prometheus metrics so
// a host can scrape the engine alongside its other services.
package monitor
