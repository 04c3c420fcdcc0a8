package waveform

import (
	"time"

	"github.com/google/uuid"
)

// TaskState represents the current lifecycle state of a task.
type TaskState string

// Possible task states. A task moves Queued → Dispatched → Running and
// ends in exactly one of the terminal states.
const (
	TaskStateQueued     TaskState = "queued"
	TaskStateDispatched TaskState = "dispatched"
	TaskStateRunning    TaskState = "running"
	TaskStateCancelling TaskState = "cancelling"
	TaskStateCompleted  TaskState = "completed"
	TaskStateFailed     TaskState = "failed"
	TaskStateCancelled  TaskState = "cancelled"
)

// Terminal reports whether the state is one of the three terminal states.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// Task is one unit of submitted work: a request to produce waveform
// amplitude data for a single audio file.
type Task struct {
	// ID uniquely identifies the task across the engine.
	ID uuid.UUID

	// Path is the audio file to process.
	Path string

	// Config controls how the waveform is generated.
	Config Config

	// Stream indicates the caller asked for progress updates.
	Stream bool

	// CreatedAt is the submission timestamp.
	CreatedAt time.Time

	// State is the task's current lifecycle state. It is owned and
	// mutated only by the scheduler's coordinator goroutine.
	State TaskState
}

// NewTask creates a queued task for the given file and configuration.
func NewTask(path string, cfg Config, stream bool) *Task {
	return &Task{
		ID:        uuid.New(),
		Path:      path,
		Config:    cfg,
		Stream:    stream,
		CreatedAt: time.Now().UTC(),
		State:     TaskStateQueued,
	}
}
