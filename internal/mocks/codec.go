package mocks

import (
	"context"
	"time"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Loader is a fake codec.Loader driven by LoadFn. The zero value
// returns a fixed byte slice for every path.
type Loader struct {
	LoadFn func(ctx context.Context, path string) ([]byte, error)
}

func (l *Loader) Load(ctx context.Context, path string) ([]byte, error) {
	if l.LoadFn != nil {
		return l.LoadFn(ctx, path)
	}
	return []byte("fake-audio-bytes"), nil
}

// Decoder is a fake codec.Decoder driven by DecodeFn. The zero value
// returns a short stereo buffer.
type Decoder struct {
	DecodeFn func(ctx context.Context, data []byte, format waveform.Format) (*waveform.AudioData, error)
}

func (d *Decoder) Decode(ctx context.Context, data []byte, format waveform.Format) (*waveform.AudioData, error) {
	if d.DecodeFn != nil {
		return d.DecodeFn(ctx, data, format)
	}
	return FakeAudio(), nil
}

// Generator is a fake codec.Generator driven by GenerateFn. The zero
// value produces a flat amplitude slice of the configured resolution.
type Generator struct {
	GenerateFn func(samples []float32, channels int, cfg waveform.Config) ([]float64, error)
}

func (g *Generator) Generate(samples []float32, channels int, cfg waveform.Config) ([]float64, error) {
	if g.GenerateFn != nil {
		return g.GenerateFn(samples, channels, cfg)
	}
	out := make([]float64, cfg.Resolution)
	for i := range out {
		out[i] = 0.5
	}
	return out, nil
}

// FakeAudio returns a small stereo PCM buffer suitable for tests.
func FakeAudio() *waveform.AudioData {
	samples := make([]float32, 2*4410)
	for i := range samples {
		samples[i] = float32(i%100) / 100
	}
	return &waveform.AudioData{
		Samples:    samples,
		SampleRate: 44100,
		Channels:   2,
		Duration:   100 * time.Millisecond,
	}
}
