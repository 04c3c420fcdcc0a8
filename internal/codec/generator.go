package codec

import (
	"fmt"
	"math"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// DownsampleGenerator reduces PCM samples to a fixed number of
// amplitude points using peak or RMS reduction per bucket.
type DownsampleGenerator struct{}

// Generate implements Generator.
func (DownsampleGenerator) Generate(samples []float32, channels int, cfg waveform.Config) ([]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: invalid channel count %d", waveform.ErrProcessingFailure, channels)
	}

	frames := len(samples) / channels
	amplitudes := make([]float64, cfg.Resolution)
	if frames == 0 {
		return amplitudes, nil
	}

	framesPerBucket := frames / cfg.Resolution
	if framesPerBucket == 0 {
		framesPerBucket = 1
	}

	for b := 0; b < cfg.Resolution; b++ {
		start := b * framesPerBucket
		if start >= frames {
			break
		}
		end := start + framesPerBucket
		if b == cfg.Resolution-1 || end > frames {
			end = frames
		}

		switch cfg.Method {
		case waveform.MethodRMS:
			var sum float64
			n := 0
			for f := start; f < end; f++ {
				for c := 0; c < channels; c++ {
					v := float64(samples[f*channels+c])
					sum += v * v
					n++
				}
			}
			if n > 0 {
				amplitudes[b] = math.Sqrt(sum / float64(n))
			}
		default: // MethodPeak
			var peak float64
			for f := start; f < end; f++ {
				for c := 0; c < channels; c++ {
					if v := math.Abs(float64(samples[f*channels+c])); v > peak {
						peak = v
					}
				}
			}
			amplitudes[b] = peak
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
