// Package monitoring holds the process-wide logging hooks.
//
// Binaries log through Logf. Library packages own three streams each
// (ops, diag, trace) configured from a LogWriters value.
package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogWriters holds the io.Writers for each logging stream.
//
//	Ops    actionable warnings, errors, lifecycle events
//	Diag   day-to-day diagnostics and tuning context
//	Trace  per-frame telemetry
//
// A nil writer mutes that stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// NewStreamLogger creates a *log.Logger for w with the given prefix, or
// returns nil if w is nil.
func NewStreamLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}
