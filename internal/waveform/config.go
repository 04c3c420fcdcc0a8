package waveform

import "fmt"

// DownsampleMethod selects how a bucket of samples is reduced to a
// single amplitude value.
type DownsampleMethod string

const (
	// MethodPeak keeps the maximum absolute sample per bucket.
	MethodPeak DownsampleMethod = "peak"

	// MethodRMS computes the root mean square per bucket.
	MethodRMS DownsampleMethod = "rms"
)

// Config controls waveform generation for a single task. It is part of
// the cache fingerprint, so two tasks with equal path and equal config
// produce the same cached result.
type Config struct {
	// Resolution is the number of amplitude points to produce.
	Resolution int `json:"resolution"`

	// Method selects the downsampling reduction.
	Method DownsampleMethod `json:"method"`

	// Normalize scales amplitudes so the loudest point is 1.0.
	Normalize bool `json:"normalize"`
}

// DefaultConfig returns the configuration used when a caller does not
// specify one.
func DefaultConfig() Config {
	return Config{
		Resolution: 1000,
		Method:     MethodPeak,
		Normalize:  true,
	}
}

// Validate checks the configuration for values the generator cannot
// work with.
func (c Config) Validate() error {
	if c.Resolution <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrValidation, c.Resolution)
	}
	switch c.Method {
	case MethodPeak, MethodRMS:
	default:
		return fmt.Errorf("%w: unknown downsample method %q", ErrValidation, c.Method)
	}
	return nil
}
