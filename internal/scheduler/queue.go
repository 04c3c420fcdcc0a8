package scheduler

import (
	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// taskQueue is the FIFO overflow queue for tasks admitted while every
// dispatch slot is taken. No priorities: the oldest task dispatches
// first. It is only touched by the coordinator goroutine.
type taskQueue struct {
	items []*waveform.Task
}

func newTaskQueue() *taskQueue {
	return &taskQueue{}
}

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Push(t *waveform.Task) {
	q.items = append(q.items, t)
}

// Pop removes and returns the oldest task, or nil when empty.
func (q *taskQueue) Pop() *waveform.Task {
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t
}

// Remove deletes the task with the given id, preserving order of the
// remainder. It reports whether the task was found.
func (q *taskQueue) Remove(taskID uuid.UUID) *waveform.Task {
	for i, t := range q.items {
		if t.ID == taskID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return t
		}
	}
	return nil
}

// Drain empties the queue and returns the removed tasks in order.
func (q *taskQueue) Drain() []*waveform.Task {
	items := q.items
	q.items = nil
	return items
}
