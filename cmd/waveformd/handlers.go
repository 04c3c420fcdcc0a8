package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sonixlabs/waveform-engine/internal/scheduler"
	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

type submitBody struct {
	Path       string `json:"path"`
	Resolution int    `json:"resolution,omitempty"`
	Method     string `json:"method,omitempty"`
	Normalize  *bool  `json:"normalize,omitempty"`
}

func (b submitBody) request() scheduler.Request {
	cfg := waveform.DefaultConfig()
	if b.Resolution > 0 {
		cfg.Resolution = b.Resolution
	}
	if b.Method != "" {
		cfg.Method = waveform.DownsampleMethod(b.Method)
	}
	if b.Normalize != nil {
		cfg.Normalize = *b.Normalize
	}
	return scheduler.Request{Path: b.Path, Config: cfg}
}

type waveformResponse struct {
	TaskID string         `json:"task_id"`
	Result *waveform.Data `json:"result"`
}

// handleSubmit submits a task and waits for its terminal result.
// Cancelling the HTTP request does not cancel the task; use the
// DELETE endpoint for that.
func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	handle, err := s.scheduler.Submit(r.Context(), body.request())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	result, err := handle.Wait(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, waveformResponse{
		TaskID: handle.TaskID().String(),
		Result: result,
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type streamFrame struct {
	TaskID   string         `json:"task_id"`
	Progress float64        `json:"progress"`
	Note     string         `json:"note,omitempty"`
	Complete bool           `json:"complete"`
	Result   *waveform.Data `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// handleStream submits a streaming task and relays its progress over a
// WebSocket, ending with one frame carrying the result or the error.
func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "missing path parameter")
		return
	}

	handle, err := s.scheduler.SubmitStreaming(r.Context(), scheduler.Request{Path: path})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.scheduler.Cancel(handle.TaskID())
		return
	}
	defer func() { _ = conn.Close() }()

	taskID := handle.TaskID().String()
	for update := range handle.Updates() {
		frame := streamFrame{
			TaskID:   taskID,
			Progress: update.Progress,
			Note:     update.Note,
			Complete: update.Complete,
		}
		if err := conn.WriteJSON(frame); err != nil {
			// Client went away; the task keeps running for the cache.
			s.logger.Debug("websocket write failed", "task_id", taskID, "error", err)
			return
		}
	}

	result, err := handle.Wait(r.Context())
	final := streamFrame{TaskID: taskID, Progress: 1.0, Complete: true, Result: result}
	if err != nil {
		final.Error = err.Error()
	}
	if err := conn.WriteJSON(final); err != nil {
		s.logger.Debug("websocket final write failed", "task_id", taskID, "error", err)
	}
}

// handleCancel cancels a queued or running task.
func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if !s.scheduler.Cancel(taskID) {
		s.writeError(w, http.StatusNotFound, "task not found or already finished")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// handleStats returns the engine statistics snapshot.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.scheduler.Stats())
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", "error", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func (s *server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, waveform.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, waveform.ErrQueueFull):
		status = http.StatusTooManyRequests
	case errors.Is(err, waveform.ErrShuttingDown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, waveform.ErrCancelled):
		status = http.StatusConflict
	case errors.Is(err, waveform.ErrProcessingFailure), errors.Is(err, waveform.ErrUnsupportedFormat):
		status = http.StatusUnprocessableEntity
	}
	s.writeError(w, status, err.Error())
}
