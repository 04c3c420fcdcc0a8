package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/monitor"
	"github.com/sonixlabs/waveform-engine/internal/protocol"
	"github.com/sonixlabs/waveform-engine/internal/waveform"
	"github.com/sonixlabs/waveform-engine/internal/worker"
)

// Config holds the scheduler's tunables.
type Config struct {
	// MaxConcurrent bounds how many tasks run at once. Never exceeds
	// PoolSize.
	MaxConcurrent int

	// PoolSize bounds how many workers may exist.
	PoolSize int

	// IdleTimeout retires workers that sat idle this long.
	IdleTimeout time.Duration

	// HealthCheckTimeout marks a worker dead when a health probe goes
	// unanswered this long. It should comfortably exceed the longest
	// stretch a worker spends between cooperative checkpoints.
	HealthCheckTimeout time.Duration

	// CancelGrace bounds how long a cancellation may go unacknowledged
	// before the worker is treated as crashed.
	CancelGrace time.Duration

	// ShutdownGrace bounds how long Shutdown waits for workers to exit.
	ShutdownGrace time.Duration

	// TickInterval drives the periodic optimize pass (idle eviction and
	// health probes). Zero disables the ticker; OptimizeResources can
	// still be called explicitly.
	TickInterval time.Duration

	// MaxQueueDepth fails submissions fast once the overflow queue
	// holds this many tasks. Zero means unbounded.
	MaxQueueDepth int

	// EnableProgressReporting turns streamed progress on. When off,
	// streaming submissions degrade to plain futures.
	EnableProgressReporting bool

	// ProgressBufferSize bounds each task's progress stream.
	ProgressBufferSize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:           2,
		PoolSize:                4,
		IdleTimeout:             time.Minute,
		HealthCheckTimeout:      10 * time.Second,
		CancelGrace:             5 * time.Second,
		ShutdownGrace:           10 * time.Second,
		TickInterval:            15 * time.Second,
		MaxQueueDepth:           100,
		EnableProgressReporting: true,
		ProgressBufferSize:      16,
	}
}

// Request describes one waveform submission.
type Request struct {
	// Path is the audio file to process.
	Path string

	// Config controls waveform generation. A zero value means
	// waveform.DefaultConfig.
	Config waveform.Config
}

type inflight struct {
	task       *waveform.Task
	workerID   string
	startedAt  time.Time
	graceTimer *time.Timer
}

type submitRequest struct {
	task   *waveform.Task
	handle *Handle
	reply  chan error
}

type cancelRequest struct {
	taskID uuid.UUID
	reply  chan bool
}

type shutdownRequest struct {
	reply chan error
}

// Scheduler accepts task submissions, enforces the concurrency bound,
// queues overflow, dispatches to the worker pool, and routes results
// back to callers. Construct with New, then Start; it is caller-owned,
// there is no process-wide instance.
type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	deps    worker.Deps
	factory worker.Factory
	mon     *monitor.Monitor

	pool    *worker.Pool
	router  *resultRouter
	queue   *taskQueue
	running map[uuid.UUID]*inflight

	submits      chan *submitRequest
	cancels      chan cancelRequest
	statsReqs    chan chan monitor.Stats
	optimizeReqs chan chan struct{}
	graceExpired chan uuid.UUID
	shutdownReqs chan *shutdownRequest

	started  atomic.Bool
	stopping atomic.Bool
	loopDone chan struct{}

	// coordinator-goroutine state
	draining   bool
	drainReply chan error
}

// New creates a scheduler. The monitor may be shared with the host;
// deps supply the collaborators handed to every worker.
func New(cfg Config, deps worker.Deps, mon *monitor.Monitor, logger *slog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.MaxConcurrent > cfg.PoolSize {
		logger.Warn("max concurrency exceeds pool size, clamping",
			"max_concurrent", cfg.MaxConcurrent,
			"pool_size", cfg.PoolSize)
		cfg.MaxConcurrent = cfg.PoolSize
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = def.HealthCheckTimeout
	}
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = def.CancelGrace
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = def.ShutdownGrace
	}
	if cfg.ProgressBufferSize < 1 {
		cfg.ProgressBufferSize = def.ProgressBufferSize
	}

	return &Scheduler{
		cfg:          cfg,
		logger:       logger.With("component", "scheduler"),
		deps:         deps,
		mon:          mon,
		router:       newResultRouter(logger),
		queue:        newTaskQueue(),
		running:      make(map[uuid.UUID]*inflight),
		submits:      make(chan *submitRequest),
		cancels:      make(chan cancelRequest),
		statsReqs:    make(chan chan monitor.Stats),
		optimizeReqs: make(chan chan struct{}),
		graceExpired: make(chan uuid.UUID, 16),
		shutdownReqs: make(chan *shutdownRequest, 1),
		loopDone:     make(chan struct{}),
	}
}

// SetWorkerFactory overrides how workers are created. Must be called
// before Start.
func (s *Scheduler) SetWorkerFactory(f worker.Factory) {
	s.factory = f
}

// Start spawns the coordinator goroutine. It must be called exactly
// once before any submission.
func (s *Scheduler) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler already started")
	}
	if s.factory == nil {
		s.factory = worker.NewFactory(s.deps, s.logger)
	}
	s.pool = worker.NewPool(s.cfg.PoolSize, s.factory, s.logger)

	go s.loop()
	s.logger.Info("scheduler started",
		"max_concurrent", s.cfg.MaxConcurrent,
		"pool_size", s.cfg.PoolSize,
		"max_queue_depth", s.cfg.MaxQueueDepth)
	return nil
}

// Submit enqueues a task and returns a handle resolving to its single
// terminal outcome. It fails fast with ErrQueueFull when the overflow
// queue is at capacity and with ErrShuttingDown after shutdown began.
func (s *Scheduler) Submit(ctx context.Context, req Request) (*Handle, error) {
	return s.submit(ctx, req, false)
}

// SubmitStreaming is Submit plus a bounded progress stream on the
// returned handle.
func (s *Scheduler) SubmitStreaming(ctx context.Context, req Request) (*Handle, error) {
	return s.submit(ctx, req, true)
}

func (s *Scheduler) submit(ctx context.Context, req Request, stream bool) (*Handle, error) {
	if !s.started.Load() || s.stopping.Load() {
		return nil, waveform.ErrShuttingDown
	}

	cfg := req.Config
	if cfg == (waveform.Config{}) {
		cfg = waveform.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if req.Path == "" {
		return nil, fmt.Errorf("%w: empty input path", waveform.ErrValidation)
	}

	task := waveform.NewTask(req.Path, cfg, stream && s.cfg.EnableProgressReporting)
	handle := newHandle(task.ID, task.Stream, s.cfg.ProgressBufferSize)

	r := &submitRequest{task: task, handle: handle, reply: make(chan error, 1)}
	select {
	case s.submits <- r:
	case <-s.loopDone:
		return nil, waveform.ErrShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case err := <-r.reply:
		if err != nil {
			return nil, err
		}
		return handle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel requests cancellation of a task. A still-queued task is
// removed and guaranteed never to be dispatched; a running task is
// asked to stop cooperatively and forced after the cancel grace
// period. Returns false when the task is unknown or already terminal.
func (s *Scheduler) Cancel(taskID uuid.UUID) bool {
	if !s.started.Load() {
		return false
	}
	r := cancelRequest{taskID: taskID, reply: make(chan bool, 1)}
	select {
	case s.cancels <- r:
		return <-r.reply
	case <-s.loopDone:
		return false
	}
}

// Stats returns a snapshot of engine statistics.
func (s *Scheduler) Stats() monitor.Stats {
	if !s.started.Load() {
		return monitor.Stats{}
	}
	reply := make(chan monitor.Stats, 1)
	select {
	case s.statsReqs <- reply:
		return <-reply
	case <-s.loopDone:
		c := s.pool.Snapshot()
		return s.mon.Snapshot(c.Alive, c.Idle, c.Busy, 0, 0)
	}
}

// OptimizeResources runs one maintenance pass immediately: harvest
// unanswered health probes, retire idle workers, send fresh probes.
// Hosts call it under external memory pressure.
func (s *Scheduler) OptimizeResources() {
	if !s.started.Load() {
		return
	}
	reply := make(chan struct{}, 1)
	select {
	case s.optimizeReqs <- reply:
		<-reply
	case <-s.loopDone:
	}
}

// Shutdown stops accepting submissions, cancels queued tasks, asks
// running workers to stop, and terminates the pool within the
// shutdown grace period. It is idempotent.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	if !s.stopping.CompareAndSwap(false, true) {
		select {
		case <-s.loopDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	req := &shutdownRequest{reply: make(chan error, 1)}
	select {
	case s.shutdownReqs <- req:
	case <-s.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop is the coordinator: the only goroutine that touches the queue,
// the router, and the running set.
func (s *Scheduler) loop() {
	var tick <-chan time.Time
	if s.cfg.TickInterval > 0 {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case r := <-s.submits:
			s.handleSubmit(r)
		case r := <-s.cancels:
			r.reply <- s.handleCancel(r.taskID)
		case env := <-s.pool.Results():
			s.handleMessage(env)
		case <-tick:
			s.optimize()
		case reply := <-s.optimizeReqs:
			s.optimize()
			reply <- struct{}{}
		case reply := <-s.statsReqs:
			c := s.pool.Snapshot()
			reply <- s.mon.Snapshot(c.Alive, c.Idle, c.Busy, s.queue.Len(), len(s.running))
		case taskID := <-s.graceExpired:
			s.handleGraceExpired(taskID)
		case req := <-s.shutdownReqs:
			s.beginDrain(req)
		}

		if s.draining && len(s.running) == 0 {
			s.finishDrain()
			return
		}
	}
}

func (s *Scheduler) handleSubmit(r *submitRequest) {
	if s.draining {
		r.reply <- waveform.ErrShuttingDown
		return
	}

	mustQueue := len(s.running) >= s.cfg.MaxConcurrent
	if mustQueue && s.cfg.MaxQueueDepth > 0 && s.queue.Len() >= s.cfg.MaxQueueDepth {
		r.reply <- fmt.Errorf("%w: depth %d reached", waveform.ErrQueueFull, s.cfg.MaxQueueDepth)
		return
	}

	s.router.register(r.handle)
	s.queue.Push(r.task)
	r.reply <- nil

	s.logger.Debug("task submitted",
		"task_id", r.task.ID,
		"path", r.task.Path,
		"stream", r.task.Stream,
		"queued", s.queue.Len())

	s.dispatch()
}

// dispatch moves queued tasks onto idle workers while the concurrency
// bound allows.
func (s *Scheduler) dispatch() {
	for len(s.running) < s.cfg.MaxConcurrent && s.queue.Len() > 0 {
		task := s.queue.items[0]

		workerID, err := s.pool.Acquire(task.ID)
		if err != nil {
			// Spawn failure is fatal for this task only.
			s.queue.Pop()
			task.State = waveform.TaskStateFailed
			s.mon.RecordFailure()
			s.router.resolve(task.ID, nil, err)
			s.logger.Error("dispatch failed", "task_id", task.ID, "error", err)
			continue
		}
		if workerID == "" {
			// Every worker busy; wait for a release.
			break
		}

		s.queue.Pop()
		task.State = waveform.TaskStateDispatched

		if err := s.sendRequest(workerID, task); err != nil {
			s.pool.Release(workerID)
			task.State = waveform.TaskStateFailed
			s.mon.RecordFailure()
			s.router.resolve(task.ID, nil, err)
			s.logger.Error("request undeliverable", "task_id", task.ID, "worker_id", workerID, "error", err)
			continue
		}

		task.State = waveform.TaskStateRunning
		s.running[task.ID] = &inflight{task: task, workerID: workerID, startedAt: time.Now()}
		s.logger.Debug("task dispatched", "task_id", task.ID, "worker_id", workerID)
	}

	s.mon.RecordQueueDepth(s.queue.Len())
	c := s.pool.Snapshot()
	s.mon.RecordWorkerCounts(c.Idle, c.Busy)
}

// sendRequest delivers the request envelope, retrying once on a
// delivery failure before surfacing it.
func (s *Scheduler) sendRequest(workerID string, task *waveform.Task) error {
	env, err := protocol.NewRequest(task)
	if err != nil {
		return err
	}
	if err := s.pool.Send(workerID, env); err != nil {
		if err := s.pool.Send(workerID, env); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) handleMessage(env protocol.Envelope) {
	if err := env.Validate(); err != nil {
		s.logger.Warn("invalid worker message", "error", err, "worker_id", env.WorkerID)
		if fl, ok := s.running[env.TaskID]; ok {
			s.finishTask(fl, nil, err)
			s.dispatch()
		}
		return
	}

	s.pool.NoteActivity(env.WorkerID)

	switch env.Kind {
	case protocol.KindProgress:
		var p protocol.ProgressPayload
		if err := env.Decode(&p); err != nil {
			s.logger.Warn("undecodable progress", "error", err, "task_id", env.TaskID)
			return
		}
		s.router.forward(env.TaskID, p.Progress, p.Note)

	case protocol.KindResponse:
		s.handleTerminal(env)

	case protocol.KindHealthReport:
		// Liveness already noted above.

	default:
		s.logger.Warn("unexpected message kind from worker", "kind", env.Kind, "worker_id", env.WorkerID)
	}
}

func (s *Scheduler) handleTerminal(env protocol.Envelope) {
	fl, ok := s.running[env.TaskID]
	if !ok {
		// Duplicate or post-crash terminal; the task was already resolved.
		s.logger.Warn("terminal for task not running discarded", "task_id", env.TaskID, "worker_id", env.WorkerID)
		return
	}

	var resp protocol.ResponsePayload
	if err := env.Decode(&resp); err != nil {
		s.finishTask(fl, nil, err)
		s.dispatch()
		return
	}

	if resp.ErrorTag == waveform.TagNone {
		s.finishTask(fl, resp.Result, nil)
	} else {
		s.finishTask(fl, nil, waveform.TagError(resp.ErrorTag, resp.ErrorMsg))
	}
	s.dispatch()
}

// finishTask resolves a running task exactly once, releases its
// worker, and updates the counters.
func (s *Scheduler) finishTask(fl *inflight, data *waveform.Data, err error) {
	if fl.graceTimer != nil {
		fl.graceTimer.Stop()
	}
	delete(s.running, fl.task.ID)
	s.pool.Release(fl.workerID)

	switch {
	case err == nil:
		fl.task.State = waveform.TaskStateCompleted
		s.mon.RecordCompletion(time.Since(fl.startedAt))
	case errors.Is(err, waveform.ErrCancelled):
		fl.task.State = waveform.TaskStateCancelled
		s.mon.RecordCancellation()
	default:
		fl.task.State = waveform.TaskStateFailed
		s.mon.RecordFailure()
	}

	s.router.resolve(fl.task.ID, data, err)
}

func (s *Scheduler) handleCancel(taskID uuid.UUID) bool {
	// A queued task is removed here, in the same goroutine that
	// dispatches, so it can never be dispatched afterwards.
	if task := s.queue.Remove(taskID); task != nil {
		task.State = waveform.TaskStateCancelled
		s.mon.RecordCancellation()
		s.router.resolve(taskID, nil, waveform.ErrCancelled)
		s.logger.Info("queued task cancelled", "task_id", taskID)
		s.mon.RecordQueueDepth(s.queue.Len())
		return true
	}

	fl, ok := s.running[taskID]
	if !ok {
		return false
	}
	if fl.task.State == waveform.TaskStateCancelling {
		return true
	}

	env, err := protocol.NewEnvelope(protocol.KindCancel, taskID, nil)
	if err == nil {
		if err = s.pool.Send(fl.workerID, env); err != nil {
			err = s.pool.Send(fl.workerID, env)
		}
	}
	if err != nil {
		// Worker unreachable: skip the grace period and recover now.
		s.logger.Warn("cancel undeliverable, forcing termination", "task_id", taskID, "error", err)
		s.forceCancel(fl)
		return true
	}

	fl.task.State = waveform.TaskStateCancelling
	fl.graceTimer = time.AfterFunc(s.cfg.CancelGrace, func() {
		select {
		case s.graceExpired <- taskID:
		case <-s.loopDone:
		}
	})
	s.logger.Info("cancellation requested", "task_id", taskID, "worker_id", fl.workerID)
	return true
}

// handleGraceExpired fires when a cancellation went unacknowledged for
// the full grace period: the worker is treated as crashed and the task
// is cancelled regardless.
func (s *Scheduler) handleGraceExpired(taskID uuid.UUID) {
	fl, ok := s.running[taskID]
	if !ok || fl.task.State != waveform.TaskStateCancelling {
		return
	}
	s.logger.Warn("cancellation unacknowledged, terminating worker",
		"task_id", taskID,
		"worker_id", fl.workerID)
	s.forceCancel(fl)
	s.dispatch()
}

func (s *Scheduler) forceCancel(fl *inflight) {
	if fl.graceTimer != nil {
		fl.graceTimer.Stop()
	}
	delete(s.running, fl.task.ID)
	s.pool.Kill(fl.workerID)

	fl.task.State = waveform.TaskStateCancelled
	s.mon.RecordCancellation()
	s.router.resolve(fl.task.ID, nil, waveform.ErrCancelled)
}

// optimize is the periodic maintenance pass: collect crashed workers,
// retire idle ones, send fresh health probes.
func (s *Scheduler) optimize() {
	for _, crash := range s.pool.Harvest(s.cfg.HealthCheckTimeout) {
		fl, ok := s.running[crash.TaskID]
		if !ok {
			continue
		}
		s.finishTask(fl, nil, fmt.Errorf("%w: worker %s unresponsive", waveform.ErrWorkerCrash, crash.WorkerID))
	}

	s.pool.EvictIdle(s.cfg.IdleTimeout)
	s.pool.Probe()

	s.mon.RecordQueueDepth(s.queue.Len())
	c := s.pool.Snapshot()
	s.mon.RecordWorkerCounts(c.Idle, c.Busy)

	s.dispatch()
}

// beginDrain starts shutdown: reject new work, cancel the queue, ask
// running tasks to stop.
func (s *Scheduler) beginDrain(req *shutdownRequest) {
	s.draining = true
	s.drainReply = req.reply

	for _, task := range s.queue.Drain() {
		task.State = waveform.TaskStateCancelled
		s.mon.RecordCancellation()
		s.router.resolve(task.ID, nil, waveform.ErrCancelled)
	}

	for taskID := range s.running {
		s.handleCancel(taskID)
	}

	s.logger.Info("shutdown started", "in_flight", len(s.running))
}

// finishDrain terminates the pool and ends the coordinator.
func (s *Scheduler) finishDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()
	err := s.pool.Shutdown(ctx)

	close(s.loopDone)
	s.drainReply <- err
	s.logger.Info("scheduler stopped")
}
