package scheduler

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// resultRouter correlates inbound worker messages to pending caller
// handles and guarantees exactly-once terminal resolution per task.
// It is only touched by the coordinator goroutine.
type resultRouter struct {
	logger       *slog.Logger
	pending      map[uuid.UUID]*Handle
	lastProgress map[uuid.UUID]float64
}

func newResultRouter(logger *slog.Logger) *resultRouter {
	return &resultRouter{
		logger:       logger.With("component", "result_router"),
		pending:      make(map[uuid.UUID]*Handle),
		lastProgress: make(map[uuid.UUID]float64),
	}
}

func (r *resultRouter) register(h *Handle) {
	r.pending[h.taskID] = h
}

func (r *resultRouter) len() int { return len(r.pending) }

// forward delivers a progress update to the task's stream. Updates for
// non-streaming tasks are discarded, as are regressions of the
// monotonically non-decreasing progress value.
func (r *resultRouter) forward(taskID uuid.UUID, progress float64, note string) {
	h, ok := r.pending[taskID]
	if !ok {
		r.logger.Warn("progress for unknown task discarded", "task_id", taskID)
		return
	}
	if !h.streaming {
		return
	}
	if progress < r.lastProgress[taskID] {
		r.logger.Warn("non-monotonic progress discarded",
			"task_id", taskID,
			"progress", progress,
			"last", r.lastProgress[taskID])
		return
	}
	r.lastProgress[taskID] = progress
	h.push(waveform.Progress{Progress: progress, Note: note})
}

// resolve delivers the terminal outcome for a task exactly once and
// removes the mapping. Any later message bearing the same task id is
// reported as anomalous by the caller via the false return.
func (r *resultRouter) resolve(taskID uuid.UUID, data *waveform.Data, err error) bool {
	h, ok := r.pending[taskID]
	if !ok {
		r.logger.Warn("duplicate or late terminal discarded", "task_id", taskID)
		return false
	}
	delete(r.pending, taskID)
	delete(r.lastProgress, taskID)

	if h.streaming && err == nil {
		h.push(waveform.Progress{Progress: 1.0, Complete: true})
	}
	close(h.updates)

	h.done <- outcome{data: data, err: err}
	return true
}
