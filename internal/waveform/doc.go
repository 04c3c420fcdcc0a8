// Package waveform defines the core entities of the waveform engine:
// processing tasks and their lifecycle states, waveform generation
// configuration, decoded audio and generated waveform data, cache
// fingerprints, and the error taxonomy shared by the scheduler, the
// worker pool, and callers.
package waveform
