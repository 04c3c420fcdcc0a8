package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Kind identifies a message type within the closed protocol set.
type Kind string

// The closed set of message kinds.
const (
	// KindRequest asks a worker to process one task.
	KindRequest Kind = "request"

	// KindProgress reports partial completion of a running task.
	KindProgress Kind = "progress"

	// KindResponse is the single terminal message for a task.
	KindResponse Kind = "response"

	// KindCancel asks the worker to abort its current task at the next
	// cooperative checkpoint.
	KindCancel Kind = "cancel"

	// KindHealthCheck probes a worker for liveness.
	KindHealthCheck Kind = "health_check"

	// KindHealthReport answers a health check.
	KindHealthReport Kind = "health_report"
)

func validKind(k Kind) bool {
	switch k {
	case KindRequest, KindProgress, KindResponse, KindCancel, KindHealthCheck, KindHealthReport:
		return true
	}
	return false
}

// Envelope is the unit of exchange between coordinator and worker.
// Envelopes are value types and are never mutated after being sent.
// Delivery over a single channel preserves send order; there is no
// ordering guarantee across channels or tasks.
type Envelope struct {
	// ID uniquely identifies this message for debugging and ordering.
	ID uuid.UUID `json:"id"`

	// Kind is the message type, one of the closed set above.
	Kind Kind `json:"kind"`

	// TaskID is the task the message refers to. It is zero for
	// health checks and health reports from an idle worker.
	TaskID uuid.UUID `json:"task_id,omitempty"`

	// WorkerID attributes worker-originated messages to their sender.
	WorkerID string `json:"worker_id,omitempty"`

	// Timestamp records when the message was constructed.
	Timestamp time.Time `json:"timestamp"`

	// Payload is the kind-specific payload, serialized as JSON.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RequestPayload carries the work description for KindRequest.
type RequestPayload struct {
	Path   string          `json:"path"`
	Config waveform.Config `json:"config"`
	Stream bool            `json:"stream"`
}

// ProgressPayload carries one progress increment for KindProgress.
// Progress is monotonically non-decreasing per task and lies in [0, 1);
// only the terminal response reaches 1.0.
type ProgressPayload struct {
	Progress float64 `json:"progress"`
	Note     string  `json:"note,omitempty"`
}

// ResponsePayload is the terminal payload for KindResponse. Exactly one
// of Result or ErrorTag is meaningful. Complete is always true.
type ResponsePayload struct {
	Result   *waveform.Data    `json:"result,omitempty"`
	ErrorTag waveform.ErrorTag `json:"error_tag,omitempty"`
	ErrorMsg string            `json:"error_msg,omitempty"`
	Complete bool              `json:"complete"`
}

// HealthReportPayload answers a health check.
type HealthReportPayload struct {
	MemBytes     uint64    `json:"mem_bytes"`
	ActiveTaskID uuid.UUID `json:"active_task_id,omitempty"`
}

// NewEnvelope constructs and validates an envelope with the given kind,
// task association, and payload. A nil payload produces an envelope
// without one.
func NewEnvelope(kind Kind, taskID uuid.UUID, payload any) (Envelope, error) {
	if !validKind(kind) {
		return Envelope{}, fmt.Errorf("%w: unknown message kind %q", waveform.ErrCommunicationFailure, kind)
	}

	env := Envelope{
		ID:        uuid.New(),
		Kind:      kind,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: encoding %s payload: %v", waveform.ErrCommunicationFailure, kind, err)
		}
		env.Payload = raw
	}

	return env, nil
}

// From returns a copy of the envelope attributed to the given worker.
func (e Envelope) From(workerID string) Envelope {
	e.WorkerID = workerID
	return e
}

// Validate checks the envelope against the closed set of kinds and the
// structural requirements of its kind.
func (e Envelope) Validate() error {
	if !validKind(e.Kind) {
		return fmt.Errorf("%w: unknown message kind %q", waveform.ErrCommunicationFailure, e.Kind)
	}
	switch e.Kind {
	case KindRequest, KindProgress, KindResponse, KindCancel:
		if e.TaskID == uuid.Nil {
			return fmt.Errorf("%w: %s message without task id", waveform.ErrCommunicationFailure, e.Kind)
		}
	}
	switch e.Kind {
	case KindRequest, KindProgress, KindResponse, KindHealthReport:
		if len(e.Payload) == 0 {
			return fmt.Errorf("%w: %s message without payload", waveform.ErrCommunicationFailure, e.Kind)
		}
	}
	return nil
}

// Decode unmarshals the payload into the provided structure.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: decoding %s payload: %v", waveform.ErrCommunicationFailure, e.Kind, err)
	}
	return nil
}

// NewRequest builds a request envelope for a task.
func NewRequest(task *waveform.Task) (Envelope, error) {
	return NewEnvelope(KindRequest, task.ID, RequestPayload{
		Path:   task.Path,
		Config: task.Config,
		Stream: task.Stream,
	})
}

// NewProgress builds a progress envelope. The progress value is clamped
// below 1.0; the terminal response is the only message allowed to carry
// full completion.
func NewProgress(taskID uuid.UUID, progress float64, note string) (Envelope, error) {
	if progress < 0 {
		progress = 0
	}
	if progress >= 1 {
		progress = 0.999
	}
	return NewEnvelope(KindProgress, taskID, ProgressPayload{Progress: progress, Note: note})
}

// NewResult builds a successful terminal response envelope.
func NewResult(taskID uuid.UUID, result *waveform.Data) (Envelope, error) {
	return NewEnvelope(KindResponse, taskID, ResponsePayload{Result: result, Complete: true})
}

// NewFailure builds a failed terminal response envelope from an error.
func NewFailure(taskID uuid.UUID, err error) (Envelope, error) {
	return NewEnvelope(KindResponse, taskID, ResponsePayload{
		ErrorTag: waveform.Tag(err),
		ErrorMsg: err.Error(),
		Complete: true,
	})
}
