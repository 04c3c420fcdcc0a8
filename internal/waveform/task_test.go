package waveform

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	task := NewTask("/music/song.wav", DefaultConfig(), true)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, "/music/song.wav", task.Path)
	assert.True(t, task.Stream)
	assert.Equal(t, TaskStateQueued, task.State)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestTaskStateTerminal(t *testing.T) {
	t.Parallel()

	terminal := []TaskState{TaskStateCompleted, TaskStateFailed, TaskStateCancelled}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %s", s)
	}

	live := []TaskState{TaskStateQueued, TaskStateDispatched, TaskStateRunning, TaskStateCancelling}
	for _, s := range live {
		assert.False(t, s.Terminal(), "state %s", s)
	}
}
