// Package logger provides structured logging functionality for the
// daemon.
package logger
