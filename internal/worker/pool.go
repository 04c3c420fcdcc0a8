package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sonixlabs/waveform-engine/internal/protocol"
	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// resultsSize bounds the shared fan-in channel from all workers to the
// coordinator.
const resultsSize = 256

// State is the lifecycle state of a pooled worker.
type State string

const (
	StateSpawning State = "spawning"
	StateIdle     State = "idle"
	StateBusy     State = "busy"
	StateDraining State = "draining"
	StateDead     State = "dead"
)

// Crash describes a worker that stopped answering health probes and
// the task, if any, it took down with it.
type Crash struct {
	WorkerID string
	TaskID   uuid.UUID
}

// Counts is a per-state snapshot of the pool.
type Counts struct {
	Spawning int
	Idle     int
	Busy     int
	Alive    int
}

type member struct {
	worker       *Worker
	state        State
	lastActivity time.Time
	currentTask  uuid.UUID
	probePending bool
	probeSentAt  time.Time
}

// Pool owns a bounded collection of workers. Workers are spawned
// lazily up to the pool size, evicted when idle for too long, and
// replaced when they stop answering health probes.
//
// All mutating methods are intended to be called from the scheduler's
// coordinator goroutine; Snapshot is safe from any goroutine.
type Pool struct {
	size    int
	factory Factory
	logger  *slog.Logger
	results chan protocol.Envelope

	mu      sync.Mutex
	members map[string]*member
	seq     int
	closed  bool
}

// NewPool creates a pool with the given maximum size and worker factory.
func NewPool(size int, factory Factory, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:    size,
		factory: factory,
		logger:  logger.With("component", "worker_pool"),
		results: make(chan protocol.Envelope, resultsSize),
		members: make(map[string]*member),
	}
}

// Results is the fan-in channel carrying every worker-originated
// message.
func (p *Pool) Results() <-chan protocol.Envelope { return p.results }

// Acquire reserves a worker for the task, spawning one if the pool has
// spare capacity. It returns an empty id when every worker is busy and
// the pool is at its size limit, and ErrSpawnFailure when a needed
// spawn failed.
func (p *Pool) Acquire(taskID uuid.UUID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", waveform.ErrShuttingDown
	}

	for id, m := range p.members {
		if m.state == StateIdle {
			m.state = StateBusy
			m.currentTask = taskID
			m.lastActivity = time.Now()
			return id, nil
		}
	}

	if len(p.members) >= p.size {
		return "", nil
	}

	m, id, err := p.spawnLocked()
	if err != nil {
		return "", err
	}
	m.state = StateBusy
	m.currentTask = taskID
	return id, nil
}

// spawnLocked creates a new worker and registers it as idle.
func (p *Pool) spawnLocked() (*member, string, error) {
	p.seq++
	id := fmt.Sprintf("worker-%d", p.seq)

	m := &member{state: StateSpawning, lastActivity: time.Now()}
	p.members[id] = m

	w, err := p.factory(id, p.results)
	if err != nil {
		delete(p.members, id)
		return nil, "", fmt.Errorf("%w: %v", waveform.ErrSpawnFailure, err)
	}

	m.worker = w
	m.state = StateIdle
	p.logger.Debug("worker spawned", "worker_id", id, "pool_size", len(p.members))
	return m, id, nil
}

// Send delivers a message to the given worker.
func (p *Pool) Send(workerID string, env protocol.Envelope) error {
	p.mu.Lock()
	m, ok := p.members[workerID]
	p.mu.Unlock()
	if !ok || m.worker == nil {
		return fmt.Errorf("%w: unknown worker %s", waveform.ErrCommunicationFailure, workerID)
	}
	return m.worker.Send(env)
}

// Release returns a busy worker to the idle set.
func (p *Pool) Release(workerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[workerID]
	if !ok {
		return
	}
	m.state = StateIdle
	m.currentTask = uuid.Nil
	m.lastActivity = time.Now()
}

// TaskOf returns the task currently assigned to the worker.
func (p *Pool) TaskOf(workerID string) (uuid.UUID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[workerID]
	if !ok || m.currentTask == uuid.Nil {
		return uuid.Nil, false
	}
	return m.currentTask, true
}

// NoteActivity records that the worker produced a message, which also
// counts as proof of liveness.
func (p *Pool) NoteActivity(workerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.members[workerID]; ok {
		m.lastActivity = time.Now()
		m.probePending = false
	}
}

// EvictIdle retires workers that have been idle longer than the
// timeout and returns their ids.
func (p *Pool) EvictIdle(idleTimeout time.Duration) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted []string
	now := time.Now()
	for id, m := range p.members {
		if m.state != StateIdle || now.Sub(m.lastActivity) < idleTimeout {
			continue
		}
		m.state = StateDraining
		m.worker.Stop()
		delete(p.members, id)
		evicted = append(evicted, id)
		p.logger.Info("idle worker retired", "worker_id", id, "idle_for", now.Sub(m.lastActivity))
	}
	return evicted
}

// Probe sends a health check to every worker that does not already
// have one outstanding.
func (p *Pool) Probe() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, m := range p.members {
		if m.worker == nil || m.probePending {
			continue
		}
		env, err := protocol.NewEnvelope(protocol.KindHealthCheck, uuid.Nil, nil)
		if err != nil {
			p.logger.Error("building health check", "error", err)
			continue
		}
		if err := m.worker.Send(env); err != nil {
			// An unreachable inbox is treated like a missed probe: the
			// next harvest pass will collect the worker.
			p.logger.Warn("health check undeliverable", "worker_id", id, "error", err)
		}
		m.probePending = true
		m.probeSentAt = time.Now()
	}
}

// Harvest collects workers whose outstanding health probe has gone
// unanswered past the timeout. Each is force-terminated, removed, and
// eagerly replaced; the in-flight task of a crashed worker is reported
// so the scheduler can fail it.
func (p *Pool) Harvest(timeout time.Duration) []Crash {
	p.mu.Lock()
	defer p.mu.Unlock()

	var crashed []Crash
	now := time.Now()
	for id, m := range p.members {
		if !m.probePending || now.Sub(m.probeSentAt) < timeout {
			continue
		}
		p.logger.Warn("worker failed health check, replacing",
			"worker_id", id,
			"task_id", m.currentTask,
			"unresponsive_for", now.Sub(m.probeSentAt))

		m.state = StateDead
		m.worker.Stop()
		delete(p.members, id)
		crashed = append(crashed, Crash{WorkerID: id, TaskID: m.currentTask})

		if !p.closed {
			if _, _, err := p.spawnLocked(); err != nil {
				// Capacity shrinks until the next on-demand spawn.
				p.logger.Error("replacement spawn failed", "error", err)
			}
		}
	}
	return crashed
}

// Kill force-terminates a single worker and removes it from the pool,
// spawning a replacement. Used when a cancellation goes unacknowledged.
func (p *Pool) Kill(workerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.members[workerID]
	if !ok {
		return
	}
	m.state = StateDead
	if m.worker != nil {
		m.worker.Stop()
	}
	delete(p.members, workerID)
	p.logger.Warn("worker force-terminated", "worker_id", workerID)

	if !p.closed {
		if _, _, err := p.spawnLocked(); err != nil {
			p.logger.Error("replacement spawn failed", "error", err)
		}
	}
}

// Snapshot returns per-state worker counts.
func (p *Pool) Snapshot() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()

	var c Counts
	for _, m := range p.members {
		switch m.state {
		case StateSpawning:
			c.Spawning++
		case StateIdle:
			c.Idle++
		case StateBusy:
			c.Busy++
		}
	}
	c.Alive = len(p.members)
	return c
}

// Shutdown stops every worker and waits for them to exit until the
// context expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	workers := make([]*Worker, 0, len(p.members))
	for id, m := range p.members {
		m.state = StateDraining
		if m.worker != nil {
			workers = append(workers, m.worker)
		}
		delete(p.members, id)
	}
	p.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
	for _, w := range workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	p.logger.Info("worker pool shut down", "workers", len(workers))
	return nil
}
