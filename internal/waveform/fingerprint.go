package waveform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint is a cache key derived from the input identity plus the
// processing configuration. Equal fingerprints mean the cached result
// can be reused without decoding.
type Fingerprint string

// NewFingerprint computes the cache key for a path/config pair.
func NewFingerprint(path string, cfg Config) Fingerprint {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%t", path, cfg.Resolution, cfg.Method, cfg.Normalize)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
