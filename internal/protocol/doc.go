// Package protocol defines the closed set of messages exchanged between
// the scheduler's coordinator and its workers. Every message is an
// immutable Envelope carrying a unique id, a timestamp, and a typed
// payload; an envelope whose kind is outside the closed set is rejected
// as a communication failure at the receiving side.
package protocol
