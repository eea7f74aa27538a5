package logging

import (
	"io"
	"log"
	"os"
)

// Leveled wrapper over the standard log package. Debug output is gated on
// the flag passed to Initialize; Info and Error always print. Components log
// through the package functions so output stays on one destination.

type logger struct {
	debug bool
	out   *log.Logger
}

var global *logger

// Initialize sets up the process-wide logger. Call once at startup before
// any component logs; calls before then are dropped.
func Initialize(debug bool) {
	var output io.Writer = os.Stdout
	if log.Writer() != os.Stderr {
		output = log.Writer()
	}
	global = &logger{
		debug: debug,
		out:   log.New(output, "", log.LstdFlags),
	}
}

func Info(format string, args ...any) {
	if global != nil {
		global.out.Printf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if global != nil && global.debug {
		global.out.Printf("DEBUG: "+format, args...)
	}
}

func Error(format string, args ...any) {
	if global != nil {
		global.out.Printf("ERROR: "+format, args...)
	}
}

// IsDebugEnabled reports whether Initialize enabled debug output.
func IsDebugEnabled() bool {
	return global != nil && global.debug
}
