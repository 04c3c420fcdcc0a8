package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonixlabs/waveform-engine/internal/mocks"
	"github.com/sonixlabs/waveform-engine/internal/protocol"
	"github.com/sonixlabs/waveform-engine/internal/waveform"
	"github.com/sonixlabs/waveform-engine/internal/worker"
)

// countingFactory spawns real workers with the default fakes and counts
// how many were created.
func countingFactory(spawns *atomic.Int32) worker.Factory {
	inner := worker.NewFactory(defaultDeps(), testLogger())
	return func(id string, results chan<- protocol.Envelope) (*worker.Worker, error) {
		spawns.Add(1)
		return inner(id, results)
	}
}

func shutdownPool(t *testing.T, p *worker.Pool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestPoolLazySpawnUpToSize(t *testing.T) {
	t.Parallel()

	var spawns atomic.Int32
	p := worker.NewPool(2, countingFactory(&spawns), testLogger())
	defer shutdownPool(t, p)

	id1, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2)

	// At capacity with every worker busy: no spawn, no error.
	id3, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	assert.Empty(t, id3)

	assert.Equal(t, int32(2), spawns.Load())
	c := p.Snapshot()
	assert.Equal(t, 2, c.Busy)
	assert.Equal(t, 2, c.Alive)
}

func TestPoolReusesReleasedWorker(t *testing.T) {
	t.Parallel()

	var spawns atomic.Int32
	p := worker.NewPool(2, countingFactory(&spawns), testLogger())
	defer shutdownPool(t, p)

	id1, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	p.Release(id1)

	id2, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "idle worker is reused before spawning")
	assert.Equal(t, int32(1), spawns.Load())
}

func TestPoolSpawnFailure(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(2, func(string, chan<- protocol.Envelope) (*worker.Worker, error) {
		return nil, errors.New("rlimit reached")
	}, testLogger())

	id, err := p.Acquire(uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, waveform.ErrSpawnFailure)
	assert.Empty(t, id)
	assert.Equal(t, 0, p.Snapshot().Alive, "failed spawn leaves no member behind")
}

func TestPoolTaskOf(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(1, worker.NewFactory(defaultDeps(), testLogger()), testLogger())
	defer shutdownPool(t, p)

	taskID := uuid.New()
	id, err := p.Acquire(taskID)
	require.NoError(t, err)

	got, ok := p.TaskOf(id)
	require.True(t, ok)
	assert.Equal(t, taskID, got)

	p.Release(id)
	_, ok = p.TaskOf(id)
	assert.False(t, ok)
}

func TestPoolEvictIdle(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(2, worker.NewFactory(defaultDeps(), testLogger()), testLogger())
	defer shutdownPool(t, p)

	id, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	p.Release(id)

	assert.Empty(t, p.EvictIdle(time.Hour), "fresh worker stays")

	evicted := p.EvictIdle(0)
	assert.Equal(t, []string{id}, evicted)
	assert.Equal(t, 0, p.Snapshot().Alive)
}

func TestPoolEvictIdleSkipsBusy(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(2, worker.NewFactory(defaultDeps(), testLogger()), testLogger())
	defer shutdownPool(t, p)

	_, err := p.Acquire(uuid.New())
	require.NoError(t, err)

	assert.Empty(t, p.EvictIdle(0))
	assert.Equal(t, 1, p.Snapshot().Busy)
}

func TestPoolProbeAndHarvestHealthy(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(1, worker.NewFactory(defaultDeps(), testLogger()), testLogger())
	defer shutdownPool(t, p)

	id, err := p.Acquire(uuid.New())
	require.NoError(t, err)
	p.Release(id)

	p.Probe()

	select {
	case env := <-p.Results():
		require.Equal(t, protocol.KindHealthReport, env.Kind)
		p.NoteActivity(env.WorkerID)
	case <-time.After(5 * time.Second):
		t.Fatal("healthy worker did not answer the probe")
	}

	assert.Empty(t, p.Harvest(0), "answered probe must not be harvested")
	assert.Equal(t, 1, p.Snapshot().Alive)
}

func TestPoolHarvestReplacesUnresponsiveWorker(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	deps := defaultDeps()
	deps.Decoder = &mocks.Decoder{
		DecodeFn: func(ctx context.Context, _ []byte, _ waveform.Format) (*waveform.AudioData, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	p := worker.NewPool(1, worker.NewFactory(deps, testLogger()), testLogger())
	defer shutdownPool(t, p)

	taskID := uuid.New()
	id, err := p.Acquire(taskID)
	require.NoError(t, err)

	task := waveform.NewTask("/music/song.wav", waveform.DefaultConfig(), false)
	task.ID = taskID
	env, err := protocol.NewRequest(task)
	require.NoError(t, err)
	require.NoError(t, p.Send(id, env))
	<-started

	p.Probe()
	crashed := p.Harvest(0)

	require.Len(t, crashed, 1)
	assert.Equal(t, id, crashed[0].WorkerID)
	assert.Equal(t, taskID, crashed[0].TaskID)

	c := p.Snapshot()
	assert.Equal(t, 1, c.Alive, "crashed worker is eagerly replaced")
	assert.Equal(t, 1, c.Idle)
}

func TestPoolKillReplacesWorker(t *testing.T) {
	t.Parallel()

	var spawns atomic.Int32
	p := worker.NewPool(1, countingFactory(&spawns), testLogger())
	defer shutdownPool(t, p)

	id, err := p.Acquire(uuid.New())
	require.NoError(t, err)

	p.Kill(id)

	_, ok := p.TaskOf(id)
	assert.False(t, ok)
	assert.Equal(t, int32(2), spawns.Load())
	assert.Equal(t, 1, p.Snapshot().Alive)
}

func TestPoolSendToUnknownWorker(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(1, worker.NewFactory(defaultDeps(), testLogger()), testLogger())
	defer shutdownPool(t, p)

	env, err := protocol.NewEnvelope(protocol.KindHealthCheck, uuid.Nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.Send("worker-99", env), waveform.ErrCommunicationFailure)
}

func TestPoolShutdown(t *testing.T) {
	t.Parallel()

	p := worker.NewPool(2, worker.NewFactory(defaultDeps(), testLogger()), testLogger())

	_, err := p.Acquire(uuid.New())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))

	_, err = p.Acquire(uuid.New())
	assert.ErrorIs(t, err, waveform.ErrShuttingDown)
	assert.Equal(t, 0, p.Snapshot().Alive)
}
