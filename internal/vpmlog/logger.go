// Package vpmlog is a minimal io.Writer-backed logger, adapted from
// golang-dep's log/logger.go: no levels, no structured fields, just
// formatted lines to whatever sink the caller hands it (a file, stderr,
// a test buffer, or io.Discard when --quiet).
package vpmlog

import (
	"fmt"
	"io"
)

// Logger wraps an io.Writer with line- and format-oriented helpers.
type Logger struct {
	io.Writer
}

// New returns a Logger that writes to w.
func New(w io.Writer) *Logger {
	return &Logger{Writer: w}
}

// Logln logs a line built the way fmt.Println would.
func (l *Logger) Logln(args ...interface{}) {
	fmt.Fprintln(l, args...)
}

// Logf logs a formatted string with no trailing newline added.
func (l *Logger) Logf(format string, args ...interface{}) {
	fmt.Fprintf(l, format, args...)
}

// LogOpfln logs a formatted line prefixed with "vpm: ".
func (l *Logger) LogOpfln(format string, args ...interface{}) {
	fmt.Fprintf(l, "vpm: "+format+"\n", args...)
}
