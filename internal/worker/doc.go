// Package worker implements the isolated execution units of the engine
// and the pool that owns them. Each worker is a goroutine that shares
// no mutable state with the coordinator: requests arrive on the
// worker's inbox channel and everything it produces leaves through the
// pool's fan-in results channel. A worker processes at most one task at
// a time and polls its inbox between processing chunks, which is where
// cancellation and health probes are observed.
//
// The pool spawns workers lazily up to its size, retires workers that
// sit idle past the configured timeout, probes workers for liveness,
// and replaces workers that stop answering.
package worker
