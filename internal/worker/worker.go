package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/cache"
	"github.com/sonixlabs/waveform-engine/internal/codec"
	"github.com/sonixlabs/waveform-engine/internal/protocol"
	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// inboxSize bounds the coordinator-to-worker channel. The coordinator
// sends at most one request plus a handful of control messages per
// task, so a small buffer suffices.
const inboxSize = 16

// generateChunks is the number of cooperative checkpoints during the
// generation phase of a task.
const generateChunks = 8

// Deps bundles the collaborators a worker needs to process a task.
// Cache is optional.
type Deps struct {
	Loader    codec.Loader
	Decoder   codec.Decoder
	Generator codec.Generator
	Cache     cache.Cache
}

// Worker is a single isolated execution context. All of its fields are
// owned by the worker goroutine after New returns; the coordinator
// interacts with it only through Send, Stop and the results channel.
type Worker struct {
	id      string
	inbox   chan protocol.Envelope
	results chan<- protocol.Envelope
	deps    Deps
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Factory creates workers on demand for the pool. Implementations may
// fail, which the scheduler reports as a spawn failure for the task
// that triggered the spawn.
type Factory func(id string, results chan<- protocol.Envelope) (*Worker, error)

// NewFactory returns the default factory producing workers with the
// given collaborators.
func NewFactory(deps Deps, logger *slog.Logger) Factory {
	return func(id string, results chan<- protocol.Envelope) (*Worker, error) {
		return New(id, results, deps, logger), nil
	}
}

// New creates a worker and starts its goroutine.
func New(id string, results chan<- protocol.Envelope, deps Deps, logger *slog.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		id:      id,
		inbox:   make(chan protocol.Envelope, inboxSize),
		results: results,
		deps:    deps,
		logger:  logger.With("worker_id", id),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// ID returns the worker's identifier.
func (w *Worker) ID() string { return w.id }

// Send delivers a message to the worker without blocking. A full inbox
// means the worker has stopped draining it, which the caller treats as
// a communication failure.
func (w *Worker) Send(env protocol.Envelope) error {
	select {
	case w.inbox <- env:
		return nil
	default:
		return fmt.Errorf("%w: worker %s inbox full", waveform.ErrCommunicationFailure, w.id)
	}
}

// Stop force-terminates the worker. Pending and in-flight work is
// abandoned at the next point the worker observes its context.
func (w *Worker) Stop() { w.cancel() }

// Done is closed when the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) run() {
	defer close(w.done)
	w.logger.Debug("worker started")

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("worker stopped")
			return
		case env := <-w.inbox:
			if err := env.Validate(); err != nil {
				w.logger.Warn("dropping invalid message", "error", err, "kind", env.Kind)
				continue
			}
			switch env.Kind {
			case protocol.KindRequest:
				w.process(env)
			case protocol.KindHealthCheck:
				w.reportHealth(uuid.Nil)
			case protocol.KindCancel:
				// Cancel for a task that already finished; nothing to do.
				w.logger.Debug("stale cancellation ignored", "task_id", env.TaskID)
			default:
				w.logger.Warn("unexpected message kind for worker", "kind", env.Kind)
			}
		}
	}
}

// process executes one task end to end and emits exactly one terminal
// response for it.
func (w *Worker) process(env protocol.Envelope) {
	taskID := env.TaskID
	logger := w.logger.With("task_id", taskID)

	var req protocol.RequestPayload
	if err := env.Decode(&req); err != nil {
		logger.Error("undecodable request", "error", err)
		w.emitFailure(taskID, err)
		return
	}

	logger.Info("processing task", "path", req.Path, "stream", req.Stream)

	result, err := w.execute(taskID, req)
	switch {
	case err != nil:
		if errors.Is(err, waveform.ErrCancelled) {
			logger.Info("task cancelled")
		} else {
			logger.Error("task failed", "error", err)
		}
		w.emitFailure(taskID, err)
	default:
		logger.Info("task completed")
		w.emitResult(taskID, result)
	}
}

// execute runs the load → decode → generate pipeline with cooperative
// checkpoints between stages and between generation chunks.
func (w *Worker) execute(taskID uuid.UUID, req protocol.RequestPayload) (*waveform.Data, error) {
	if err := req.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", waveform.ErrProcessingFailure, err)
	}

	if req.Stream {
		w.emitProgress(taskID, 0, "started")
	}

	fp := waveform.NewFingerprint(req.Path, req.Config)
	if w.deps.Cache != nil {
		if cached, err := w.deps.Cache.Get(w.ctx, fp); err != nil {
			w.logger.Warn("cache lookup failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	if err := w.checkpoint(taskID); err != nil {
		return nil, err
	}

	data, err := w.deps.Loader.Load(w.ctx, req.Path)
	if err != nil {
		return nil, err
	}
	if err := w.checkpoint(taskID); err != nil {
		return nil, err
	}

	format := codec.DetectFormat(data)
	audio, err := w.deps.Decoder.Decode(w.ctx, data, format)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil, waveform.ErrCancelled
		}
		return nil, fmt.Errorf("%w: %v", waveform.ErrProcessingFailure, err)
	}
	if err := w.checkpoint(taskID); err != nil {
		return nil, err
	}
	if req.Stream {
		w.emitProgress(taskID, 0.5, "decoded")
	}

	amplitudes, err := w.generate(taskID, req, audio)
	if err != nil {
		return nil, err
	}

	result := &waveform.Data{
		Amplitudes: amplitudes,
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
		Duration:   audio.Duration,
	}

	if w.deps.Cache != nil {
		if err := w.deps.Cache.Put(w.ctx, fp, result); err != nil {
			w.logger.Warn("cache write failed", "error", err)
		}
	}

	return result, nil
}

// generate downsamples the audio in chunks so cancellation and health
// probes are observed between chunks. Normalization runs once over the
// combined amplitudes to keep chunked and unchunked output identical.
func (w *Worker) generate(taskID uuid.UUID, req protocol.RequestPayload, audio *waveform.AudioData) ([]float64, error) {
	cfg := req.Config
	frames := 0
	if audio.Channels > 0 {
		frames = len(audio.Samples) / audio.Channels
	}

	chunks := generateChunks
	if chunks > cfg.Resolution {
		chunks = 1
	}

	chunkCfg := cfg
	chunkCfg.Normalize = false

	amplitudes := make([]float64, 0, cfg.Resolution)
	bucketBase := 0
	for c := 0; c < chunks; c++ {
		buckets := cfg.Resolution / chunks
		if c == chunks-1 {
			buckets = cfg.Resolution - bucketBase
		}
		startFrame := frames * bucketBase / cfg.Resolution
		endFrame := frames * (bucketBase + buckets) / cfg.Resolution

		chunkCfg.Resolution = buckets
		part, err := w.deps.Generator.Generate(
			audio.Samples[startFrame*audio.Channels:endFrame*audio.Channels],
			audio.Channels,
			chunkCfg,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", waveform.ErrProcessingFailure, err)
		}
		amplitudes = append(amplitudes, part...)
		bucketBase += buckets

		if err := w.checkpoint(taskID); err != nil {
			return nil, err
		}
		if req.Stream {
			w.emitProgress(taskID, 0.5+0.5*float64(c+1)/float64(chunks), "generating")
		}
	}

	if cfg.Normalize {
		var max float64
		for _, a := range amplitudes {
			if a > max {
				max = a
			}
		}
		if max > 0 {
			for i := range amplitudes {
				amplitudes[i] /= max
			}
		}
	}

	return amplitudes, nil
}

// checkpoint drains the inbox without blocking and reports whether the
// current task was cancelled or the worker force-terminated.
func (w *Worker) checkpoint(taskID uuid.UUID) error {
	for {
		select {
		case <-w.ctx.Done():
			return waveform.ErrCancelled
		case env := <-w.inbox:
			switch env.Kind {
			case protocol.KindCancel:
				if env.TaskID == taskID {
					return waveform.ErrCancelled
				}
			case protocol.KindHealthCheck:
				w.reportHealth(taskID)
			default:
				w.logger.Warn("unexpected message while busy", "kind", env.Kind)
			}
		default:
			return nil
		}
	}
}

func (w *Worker) emit(env protocol.Envelope) {
	select {
	case w.results <- env.From(w.id):
	case <-w.ctx.Done():
	}
}

func (w *Worker) emitProgress(taskID uuid.UUID, progress float64, note string) {
	env, err := protocol.NewProgress(taskID, progress, note)
	if err != nil {
		w.logger.Error("building progress message", "error", err)
		return
	}
	w.emit(env)
}

func (w *Worker) emitResult(taskID uuid.UUID, result *waveform.Data) {
	env, err := protocol.NewResult(taskID, result)
	if err != nil {
		w.logger.Error("building result message", "error", err)
		return
	}
	w.emit(env)
}

func (w *Worker) emitFailure(taskID uuid.UUID, cause error) {
	env, err := protocol.NewFailure(taskID, cause)
	if err != nil {
		w.logger.Error("building failure message", "error", err)
		return
	}
	w.emit(env)
}

func (w *Worker) reportHealth(activeTask uuid.UUID) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	env, err := protocol.NewEnvelope(protocol.KindHealthReport, uuid.Nil, protocol.HealthReportPayload{
		MemBytes:     mem.HeapAlloc,
		ActiveTaskID: activeTask,
	})
	if err != nil {
		w.logger.Error("building health report", "error", err)
		return
	}
	w.emit(env)
}
