// Package scheduler implements the engine's coordinator: admission of
// waveform tasks, the FIFO overflow queue, dispatch onto the worker
// pool, cancellation, crash recovery, and the result router that
// correlates worker messages back to waiting callers.
//
// A single coordinator goroutine owns all scheduling state and reacts
// to submissions, cancellations, worker messages, and periodic
// maintenance ticks. It never blocks on an individual worker, only on
// the next available event; callers block only on their own handle.
package scheduler
