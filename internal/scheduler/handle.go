package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

type outcome struct {
	data *waveform.Data
	err  error
}

// Handle is the caller's view of a submitted task: a single-resolution
// future plus, for streaming submissions, a bounded progress stream.
type Handle struct {
	taskID    uuid.UUID
	streaming bool
	done      chan outcome
	updates   chan waveform.Progress
}

func newHandle(taskID uuid.UUID, streaming bool, progressBuffer int) *Handle {
	if progressBuffer < 1 {
		progressBuffer = 1
	}
	return &Handle{
		taskID:    taskID,
		streaming: streaming,
		done:      make(chan outcome, 1),
		updates:   make(chan waveform.Progress, progressBuffer),
	}
}

// TaskID returns the id of the task this handle tracks.
func (h *Handle) TaskID() uuid.UUID { return h.taskID }

// Wait blocks until the task reaches a terminal state or ctx expires.
// Exactly one of the result and the error is non-nil; a cancelled task
// yields waveform.ErrCancelled.
func (h *Handle) Wait(ctx context.Context) (*waveform.Data, error) {
	select {
	case out := <-h.done:
		return out.data, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Updates returns the progress stream. For streaming submissions it
// carries non-decreasing progress values in [0, 1), ends with exactly
// one update with Progress == 1.0 and Complete == true, and is then
// closed. For non-streaming submissions the channel is closed without
// ever carrying a value.
//
// The stream is bounded: when the consumer falls behind, the oldest
// undelivered update is dropped in favor of the newest one. The
// terminal update is never dropped.
func (h *Handle) Updates() <-chan waveform.Progress { return h.updates }

// push delivers a progress update with drop-oldest backpressure.
func (h *Handle) push(p waveform.Progress) {
	for {
		select {
		case h.updates <- p:
			return
		default:
		}
		select {
		case <-h.updates:
		default:
		}
	}
}
