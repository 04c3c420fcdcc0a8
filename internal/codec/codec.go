package codec

import (
	"context"
	"fmt"
	"os"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// Loader reads the raw bytes of an audio input. Workers call it once
// per task before decoding.
type Loader interface {
	// Load returns the full contents of the input at path.
	Load(ctx context.Context, path string) ([]byte, error)
}

// Decoder turns encoded audio bytes into PCM samples. Implementations
// are pure and stateless from the scheduler's perspective; they are
// invoked only inside a worker context.
type Decoder interface {
	// Decode decodes data of the given format into interleaved PCM
	// samples. It honors ctx cancellation between processing steps.
	Decode(ctx context.Context, data []byte, format waveform.Format) (*waveform.AudioData, error)
}

// Generator reduces PCM samples to waveform amplitudes.
type Generator interface {
	// Generate produces cfg.Resolution amplitude points from the
	// samples. It is called once per chunk of the input so workers can
	// observe cancellation between calls.
	Generate(samples []float32, channels int, cfg waveform.Config) ([]float64, error)
}

// FileLoader loads audio from the local filesystem.
type FileLoader struct{}

// Load reads the file at path.
func (FileLoader) Load(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", waveform.ErrProcessingFailure, path, err)
	}
	return data, nil
}
