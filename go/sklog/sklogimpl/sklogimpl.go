// Package sklogimpl defines the interface for the logging implementation used
// by sklog, and holds the currently registered implementation.
package sklogimpl

import (
	"fmt"
)

// Severity identifies the sort of log: info, warning etc.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Fatal
)

// Logger is implemented by all logging backends.
type Logger interface {
	// Log sends the given message to the logging backend. depth is the
	// number of stack frames to skip when reporting the calling location;
	// 0 means the caller of Log. If format is the empty string the args
	// are formatted with fmt.Sprint, otherwise fmt.Sprintf.
	Log(depth int, severity Severity, format string, args ...interface{})

	// Flush any pending log lines.
	Flush()
}

var logger Logger

// SetLogger changes the package to use the given Logger.
func SetLogger(l Logger) {
	logger = l
}

// Log records one log line with the currently registered Logger. Logging at
// Fatal severity exits the process; that is the backend's responsibility.
func Log(depth int, severity Severity, format string, args ...interface{}) {
	logger.Log(depth+1, severity, format, args...)
}

// Flush flushes the currently registered Logger.
func Flush() {
	logger.Flush()
}

// String returns the name of the Severity.
func (s Severity) String() string {
	switch s {
	case Debug:
		return "Debug"
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}
