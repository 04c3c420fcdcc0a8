package scheduler

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

func newQueuedTask() *waveform.Task {
	return waveform.NewTask("/music/song.wav", waveform.DefaultConfig(), false)
}

func TestTaskQueueFIFO(t *testing.T) {
	t.Parallel()

	q := newTaskQueue()
	assert.Nil(t, q.Pop())

	t1, t2, t3 := newQueuedTask(), newQueuedTask(), newQueuedTask()
	q.Push(t1)
	q.Push(t2)
	q.Push(t3)
	assert.Equal(t, 3, q.Len())

	assert.Same(t, t1, q.Pop())
	assert.Same(t, t2, q.Pop())
	assert.Same(t, t3, q.Pop())
	assert.Nil(t, q.Pop())
	assert.Equal(t, 0, q.Len())
}

func TestTaskQueueRemove(t *testing.T) {
	t.Parallel()

	q := newTaskQueue()
	t1, t2, t3 := newQueuedTask(), newQueuedTask(), newQueuedTask()
	q.Push(t1)
	q.Push(t2)
	q.Push(t3)

	removed := q.Remove(t2.ID)
	require.Same(t, t2, removed)
	assert.Equal(t, 2, q.Len())

	assert.Nil(t, q.Remove(uuid.New()), "unknown id removes nothing")

	// Order of the remainder is preserved.
	assert.Same(t, t1, q.Pop())
	assert.Same(t, t3, q.Pop())
}

func TestTaskQueueDrain(t *testing.T) {
	t.Parallel()

	q := newTaskQueue()
	t1, t2 := newQueuedTask(), newQueuedTask()
	q.Push(t1)
	q.Push(t2)

	drained := q.Drain()
	require.Len(t, drained, 2)
	assert.Same(t, t1, drained[0])
	assert.Same(t, t2, drained[1])
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}
