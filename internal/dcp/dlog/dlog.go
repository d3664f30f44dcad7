// Package dlog is the DCP engine's ambient logger. The teacher repo has
// no dedicated logging package of its own — it gates diagnostic prints
// behind config.Verbose and writes with plain fmt.Fprintf(os.Stderr, ...)
// (see internal/session/session.go, internal/provider/provider.go). dlog
// keeps that idiom instead of pulling in a structured-logging library
// the rest of the corpus never reaches for.
package dlog

import (
	"fmt"
	"log"
	"os"
)

// Logger gates Debug output behind a debug flag, matching the teacher's
// config.Debug / config.Verbose pattern, and always emits Info/Warn/Error.
type Logger struct {
	debug bool
	out   *log.Logger
}

// New creates a Logger writing to stderr, with Debug output enabled iff
// debug is true (spec §6 "debug: enable file logging" — disk logging
// itself is the host's concern per spec §1; this only gates verbosity).
func New(debug bool) *Logger {
	return &Logger{debug: debug, out: log.New(os.Stderr, "dcp: ", log.LstdFlags)}
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.out.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.out.Output(2, "INFO  "+fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.out.Output(2, "WARN  "+fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.out.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}
