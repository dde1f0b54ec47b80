// Package logger defines the structured logging interface used throughout
// the engine, in the style of the teacher lineage's later loggers
// (cockroachdb tooling standardizes on this Infof/Warningf/Errorf shape
// built atop github.com/cockroachdb/redact for safely-markable arguments).
package logger

import (
	"fmt"
	"log"
	"os"

	"github.com/cockroachdb/redact"
)

// Logger is the minimal structured-logging surface the engine depends on.
// Callers that do not want logging pass NoOp.
type Logger interface {
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// stdLogger writes to a standard library *log.Logger. Messages are formatted
// with fmt.Sprintf; no argument is redacted.
type stdLogger struct {
	*log.Logger
}

// New returns a Logger that writes to os.Stderr with a "strata: " prefix.
func New() Logger {
	return &stdLogger{Logger: log.New(os.Stderr, "strata: ", log.LstdFlags)}
}

func (l *stdLogger) Infof(format string, args ...interface{}) {
	l.Output(2, "INFO  "+fmt.Sprintf(format, args...))
}

func (l *stdLogger) Warningf(format string, args ...interface{}) {
	l.Output(2, "WARN  "+fmt.Sprintf(format, args...))
}

func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.Output(2, "ERROR "+fmt.Sprintf(format, args...))
}

type noopLogger struct{}

// NoOp discards every message. Useful for tests and for callers that wire
// their own observability pipeline above the engine.
var NoOp Logger = noopLogger{}

func (noopLogger) Infof(string, ...interface{})    {}
func (noopLogger) Warningf(string, ...interface{}) {}
func (noopLogger) Errorf(string, ...interface{})   {}

// Safe wraps a value so that it is never considered sensitive by a redacting
// sink downstream (e.g. file numbers, level indices, byte counts -- never
// key or value bytes, which may carry user data).
func Safe(v interface{}) redact.SafeValue {
	return redact.Safe(v)
}
