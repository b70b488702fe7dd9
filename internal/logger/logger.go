// Package logger is the process-wide kindex log. Debug, Info, Warn and
// Section print only in verbose mode (the --verbose flag); Error always
// prints. Output goes to stderr unless redirected with SetOutput.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose turns verbose output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects all log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// Debug logs pipeline detail.
func Debug(format string, args ...any) { logf(levelDebug, format, args...) }

// Info logs progress a user running with --verbose wants to see.
func Info(format string, args ...any) { logf(levelInfo, format, args...) }

// Warn logs a recoverable failure, such as one file in a directory run.
func Warn(format string, args ...any) { logf(levelWarn, format, args...) }

// Error logs a failure the user must see, verbose or not.
func Error(format string, args ...any) { logf(levelError, format, args...) }

// Section prints a blank line and a "=== name ===" header.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func logf(l level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !verbose && l != levelError {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", l, fmt.Sprintf(format, args...))
}
