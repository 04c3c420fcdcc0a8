package codec

import (
	"bytes"

	"github.com/sonixlabs/waveform-engine/internal/waveform"
)

// DetectFormat sniffs the audio format from the leading bytes of a
// file. It returns FormatUnknown when no signature matches.
func DetectFormat(data []byte) waveform.Format {
	if len(data) < 4 {
		return waveform.FormatUnknown
	}

	// ID3 tag or MPEG sync frame.
	if bytes.HasPrefix(data, []byte("ID3")) {
		return waveform.FormatMP3
	}
	if sync := uint16(data[0])<<8 | uint16(data[1]); sync&0xFFE0 == 0xFFE0 {
		return waveform.FormatMP3
	}

	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return waveform.FormatWAV
	}

	if bytes.HasPrefix(data, []byte("fLaC")) {
		return waveform.FormatFLAC
	}

	if bytes.HasPrefix(data, []byte("OggS")) {
		// An Ogg container holding an Opus stream starts its first
		// packet with the OpusHead magic.
		if bytes.Contains(data[:min(len(data), 64)], []byte("OpusHead")) {
			return waveform.FormatOpus
		}
		return waveform.FormatOGG
	}

	return waveform.FormatUnknown
}
