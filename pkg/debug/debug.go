// Package debug provides conditional debug logging for treegrid.
//
// Debug logging is enabled by setting the TREEGRID_DEBUG environment variable:
//
//	TREEGRID_DEBUG=1 treegrid outline.yaml
//
// When enabled, debug messages are written to stderr with timestamps and
// Assert panics on a failed condition. When disabled (default), all debug
// functions are no-ops and callers take their release-mode fallback.
//
// Usage:
//
//	import "github.com/vanderheijden86/treegrid/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("projecting %d rows", count)
//	    // ...
//	    debug.LogTiming("myFunc", elapsed)
//	}
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[TREEGRID_DEBUG] "

var (
	// enabled is true when TREEGRID_DEBUG env var is set
	enabled bool
	// logger writes to stderr with [TREEGRID_DEBUG] prefix
	logger *log.Logger
)

func init() {
	if os.Getenv("TREEGRID_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
// Note: This also requires initializing the logger if not already done.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output, mainly for tests and for the TUI which
// owns the terminal while running.
func SetOutput(w io.Writer) {
	if logger == nil {
		logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
		return
	}
	logger.SetOutput(w)
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !enabled || !cond {
		return
	}
	logger.Printf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Trace is an alias for LogEnterExit for convenience.
var Trace = LogEnterExit

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !enabled {
		return
	}
	logger.Printf("%s: %T = %+v", name, v, v)
}

// Assert logs a message and panics if the condition is false.
// Only active when debug is enabled; callers must still handle the
// failing case for release runs.
func Assert(cond bool, msg string) {
	if !enabled {
		return
	}
	if !cond {
		logger.Printf("ASSERTION FAILED: %s", msg)
		panic(fmt.Sprintf("debug assertion failed: %s", msg))
	}
}

// AssertNoError logs and panics if err is not nil.
// Only active when debug is enabled.
func AssertNoError(err error, context string) {
	if !enabled {
		return
	}
	if err != nil {
		logger.Printf("ASSERTION FAILED: %s: %v", context, err)
		panic(fmt.Sprintf("debug assertion failed: %s: %v", context, err))
	}
}
