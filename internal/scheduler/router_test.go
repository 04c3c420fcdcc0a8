package scheduler

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

func newTestRouter() *resultRouter {
	return newResultRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// drainUpdates reads the closed updates channel to completion.
func drainUpdates(t *testing.T, h *Handle) []waveform.Progress {
	t.Helper()
	var got []waveform.Progress
	for p := range h.Updates() {
		got = append(got, p)
	}
	return got
}

func TestRouterResolvesExactlyOnce(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := newHandle(uuid.New(), true, 8)
	r.register(h)

	data := &waveform.Data{Amplitudes: []float64{0.5}}
	assert.True(t, r.resolve(h.taskID, data, nil))
	assert.False(t, r.resolve(h.taskID, data, nil), "second terminal is discarded")
	assert.Equal(t, 0, r.len())

	out := <-h.done
	assert.Same(t, data, out.data)
	assert.NoError(t, out.err)

	select {
	case extra := <-h.done:
		t.Fatalf("unexpected second outcome: %+v", extra)
	default:
	}
}

func TestRouterSuccessEndsStreamWithTerminalUpdate(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := newHandle(uuid.New(), true, 8)
	r.register(h)

	r.forward(h.taskID, 0.3, "decoding")
	require.True(t, r.resolve(h.taskID, &waveform.Data{}, nil))

	got := drainUpdates(t, h)
	require.Len(t, got, 2)
	assert.Equal(t, 0.3, got[0].Progress)
	assert.False(t, got[0].Complete)
	assert.Equal(t, 1.0, got[1].Progress)
	assert.True(t, got[1].Complete)
}

func TestRouterFailureClosesStreamWithoutTerminalUpdate(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := newHandle(uuid.New(), true, 8)
	r.register(h)

	require.True(t, r.resolve(h.taskID, nil, waveform.ErrProcessingFailure))

	assert.Empty(t, drainUpdates(t, h))
	out := <-h.done
	assert.ErrorIs(t, out.err, waveform.ErrProcessingFailure)
}

func TestRouterDiscardsNonMonotonicProgress(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := newHandle(uuid.New(), true, 8)
	r.register(h)

	r.forward(h.taskID, 0.5, "")
	r.forward(h.taskID, 0.3, "")
	r.forward(h.taskID, 0.7, "")
	require.True(t, r.resolve(h.taskID, &waveform.Data{}, nil))

	got := drainUpdates(t, h)
	require.Len(t, got, 3)
	assert.Equal(t, 0.5, got[0].Progress)
	assert.Equal(t, 0.7, got[1].Progress)
	assert.Equal(t, 1.0, got[2].Progress)
}

func TestRouterIgnoresProgressForNonStreamingTask(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := newHandle(uuid.New(), false, 8)
	r.register(h)

	r.forward(h.taskID, 0.5, "")
	require.True(t, r.resolve(h.taskID, &waveform.Data{}, nil))

	assert.Empty(t, drainUpdates(t, h), "non-streaming stream closes without values")
}

func TestRouterIgnoresUnknownTask(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	r.forward(uuid.New(), 0.5, "")
	assert.False(t, r.resolve(uuid.New(), nil, nil))
}

func TestRouterDropsOldestWhenConsumerLags(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := newHandle(uuid.New(), true, 2)
	r.register(h)

	r.forward(h.taskID, 0.1, "")
	r.forward(h.taskID, 0.2, "")
	r.forward(h.taskID, 0.3, "")
	require.True(t, r.resolve(h.taskID, &waveform.Data{}, nil))

	got := drainUpdates(t, h)
	require.Len(t, got, 2)
	assert.Equal(t, 0.3, got[0].Progress, "oldest updates are shed first")
	assert.Equal(t, 1.0, got[1].Progress)
	assert.True(t, got[1].Complete, "the terminal update is never dropped")
}
