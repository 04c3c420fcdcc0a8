// Package cache provides the optional content-addressed result cache
// shared across workers. Results are keyed by fingerprint (input
// identity plus processing configuration); reads never block writers
// and concurrent writes for the same key resolve single-writer-wins:
// the first completed write is kept.
package cache
