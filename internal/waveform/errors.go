package waveform

import (
	"errors"
	"fmt"
)

// Common errors surfaced by the engine. Failures are isolated per task:
// none of these ever affects other in-flight work.
var (
	// ErrValidation is returned when a task or configuration fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrSpawnFailure is returned when a worker could not be created for
	// the task that needed it. The pool stays usable for other tasks.
	ErrSpawnFailure = errors.New("worker spawn failed")

	// ErrCommunicationFailure is returned when a message could not be
	// delivered or decoded across the worker boundary.
	ErrCommunicationFailure = errors.New("worker communication failed")

	// ErrProcessingFailure is returned when decoding or waveform
	// generation failed inside a worker.
	ErrProcessingFailure = errors.New("audio processing failed")

	// ErrWorkerCrash is returned when a worker stopped responding to
	// health checks while running the task. The task is not retried.
	ErrWorkerCrash = errors.New("worker crashed")

	// ErrCancelled marks the normal terminal state of a cancelled task.
	// It is a sentinel, not a failure.
	ErrCancelled = errors.New("task cancelled")

	// ErrQueueFull is returned by submit when the overflow queue has
	// reached its configured maximum depth.
	ErrQueueFull = errors.New("task queue is full")

	// ErrShuttingDown is returned for submissions after shutdown began.
	ErrShuttingDown = errors.New("engine is shutting down")

	// ErrUnsupportedFormat is returned by a decoder that recognizes the
	// input but cannot decode it.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// ErrorTag is the wire representation of a failure class. Workers put a
// tag in terminal response messages; the result router maps it back to
// the sentinel errors above before surfacing it to the caller.
type ErrorTag string

const (
	TagNone          ErrorTag = ""
	TagSpawnFailure  ErrorTag = "spawn_failure"
	TagCommunication ErrorTag = "communication_failure"
	TagProcessing    ErrorTag = "processing_failure"
	TagWorkerCrash   ErrorTag = "worker_crash"
	TagCancelled     ErrorTag = "cancelled"
)

// TagError converts an error tag and detail message back into a typed
// error. Unknown tags are treated as communication failures since they
// indicate a protocol mismatch.
func TagError(tag ErrorTag, detail string) error {
	var sentinel error
	switch tag {
	case TagNone:
		return nil
	case TagSpawnFailure:
		sentinel = ErrSpawnFailure
	case TagCommunication:
		sentinel = ErrCommunicationFailure
	case TagProcessing:
		sentinel = ErrProcessingFailure
	case TagWorkerCrash:
		sentinel = ErrWorkerCrash
	case TagCancelled:
		sentinel = ErrCancelled
	default:
		return fmt.Errorf("%w: unknown error tag %q", ErrCommunicationFailure, tag)
	}
	if detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}

// Tag classifies an error into its wire tag. Errors outside the
// taxonomy are reported as processing failures.
func Tag(err error) ErrorTag {
	switch {
	case err == nil:
		return TagNone
	case errors.Is(err, ErrCancelled):
		return TagCancelled
	case errors.Is(err, ErrSpawnFailure):
		return TagSpawnFailure
	case errors.Is(err, ErrCommunicationFailure):
		return TagCommunication
	case errors.Is(err, ErrWorkerCrash):
		return TagWorkerCrash
	default:
		return TagProcessing
	}
}
