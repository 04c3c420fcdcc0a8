package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fp := waveform.NewFingerprint("/music/song.wav", waveform.DefaultConfig())

	t.Run("miss returns nil without error", func(t *testing.T) {
		t.Parallel()
		m := NewMemory()
		got, err := m.Get(ctx, fp)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get", func(t *testing.T) {
		t.Parallel()
		m := NewMemory()
		data := &waveform.Data{Amplitudes: []float64{0.1, 0.2}, SampleRate: 44100}
		require.NoError(t, m.Put(ctx, fp, data))

		got, err := m.Get(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, 1, m.Len())
	})

	t.Run("first write wins", func(t *testing.T) {
		t.Parallel()
		m := NewMemory()
		first := &waveform.Data{Amplitudes: []float64{0.5}}
		second := &waveform.Data{Amplitudes: []float64{0.9}}
		require.NoError(t, m.Put(ctx, fp, first))
		require.NoError(t, m.Put(ctx, fp, second))

		got, err := m.Get(ctx, fp)
		require.NoError(t, err)
		assert.Same(t, first, got)
		assert.Equal(t, 1, m.Len())
	})
}
