// Package codec defines the collaborator boundary the workers depend
// on: loading audio bytes, decoding them into PCM samples, and reducing
// samples to waveform amplitudes. The interfaces keep the scheduler
// core independent of any concrete audio library; the package also
// ships magic-byte format detection, a minimal PCM WAV decoder, and a
// peak/RMS downsampling generator as working reference implementations.
package codec
