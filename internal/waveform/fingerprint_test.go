package waveform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFingerprint(t *testing.T) {
	t.Parallel()

	base := NewFingerprint("/music/song.wav", DefaultConfig())

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, base, NewFingerprint("/music/song.wav", DefaultConfig()))
	})

	t.Run("path changes the key", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, base, NewFingerprint("/music/other.wav", DefaultConfig()))
	})

	t.Run("config changes the key", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.Resolution = 500
		assert.NotEqual(t, base, NewFingerprint("/music/song.wav", cfg))

		cfg = DefaultConfig()
		cfg.Method = MethodRMS
		assert.NotEqual(t, base, NewFingerprint("/music/song.wav", cfg))

		cfg = DefaultConfig()
		cfg.Normalize = !cfg.Normalize
		assert.NotEqual(t, base, NewFingerprint("/music/song.wav", cfg))
	})
}
