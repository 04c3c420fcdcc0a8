package codec

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// WAVDecoder decodes uncompressed 16-bit PCM RIFF/WAVE data. Compressed
// formats are reported as unsupported; wiring a full codec suite in is
// a deployment concern, not a scheduler concern.
type WAVDecoder struct{}

// Decode implements Decoder for FormatWAV.
func (WAVDecoder) Decode(ctx context.Context, data []byte, format waveform.Format) (*waveform.AudioData, error) {
	switch format {
	case waveform.FormatWAV:
	case waveform.FormatUnknown:
		return nil, fmt.Errorf("%w: unrecognized audio data", waveform.ErrProcessingFailure)
	default:
		return nil, fmt.Errorf("%w: %s", waveform.ErrUnsupportedFormat, format)
	}

	if len(data) < 12 {
		return nil, fmt.Errorf("%w: truncated RIFF header", waveform.ErrProcessingFailure)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	// Walk the RIFF chunks looking for fmt and data.
	off := 12
	for off+8 <= len(data) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunkID := string(data[off : off+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+chunkLen > len(data) {
			return nil, fmt.Errorf("%w: chunk %q exceeds file size", waveform.ErrProcessingFailure, chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", waveform.ErrProcessingFailure)
			}
			audioFormat := binary.LittleEndian.Uint16(data[body : body+2])
			if audioFormat != 1 {
				return nil, fmt.Errorf("%w: non-PCM wav (format %d)", waveform.ErrUnsupportedFormat, audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkLen]
		}

		// Chunks are word aligned.
		off = body + chunkLen + chunkLen%2
	}

	if sampleRate == 0 || channels == 0 {
		return nil, fmt.Errorf("%w: missing fmt chunk", waveform.ErrProcessingFailure)
	}
	if pcm == nil {
		return nil, fmt.Errorf("%w: missing data chunk", waveform.ErrProcessingFailure)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %d-bit wav", waveform.ErrUnsupportedFormat, bitsPerSample)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(s) / 32768.0
	}

	frames := len(samples) / channels
	return &waveform.AudioData{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   time.Duration(frames) * time.Second / time.Duration(sampleRate),
	}, nil
}
