package waveform

import "time"

// Format identifies the encoding of an audio file.
type Format string

// Supported audio formats.
const (
	FormatUnknown Format = "unknown"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatWAV     Format = "wav"
	FormatOGG     Format = "ogg"
	FormatOpus    Format = "opus"
)

// AudioData holds decoded PCM audio as produced by a Decoder.
type AudioData struct {
	// Samples are interleaved PCM samples in [-1, 1].
	Samples []float32

	// SampleRate is the sample rate in Hz.
	SampleRate int

	// Channels is the number of interleaved channels.
	Channels int

	// Duration is the total audio duration.
	Duration time.Duration
}

// Data is the finished waveform result delivered to the caller.
type Data struct {
	// Amplitudes are the downsampled amplitude points in [0, 1].
	Amplitudes []float64 `json:"amplitudes"`

	// SampleRate is the source sample rate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is the source channel count.
	Channels int `json:"channels"`

	// Duration is the source audio duration.
	Duration time.Duration `json:"duration"`
}

// Progress is one streamed progress update for a task in [0, 1]. The
// terminal update always carries Progress == 1.0 and Complete == true.
type Progress struct {
	Progress float64 `json:"progress"`
	Note     string  `json:"note,omitempty"`
	Complete bool    `json:"complete"`
}
