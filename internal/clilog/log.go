// Package clilog provides the compositor's three logging levels: info
// (always shown), verbose (gated by --verbose), and error, mirroring the
// log/logVerbose/logError helpers the original command-line tool used.
package clilog

import (
	"fmt"
	"log"
	"os"
)

var verbose = false

// SetVerbose enables or disables Verbose output. It is not safe to call
// concurrently with Info/Verbose/Error.
func SetVerbose(v bool) { verbose = v }

// Info logs a message that is always shown.
func Info(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Verbose logs a message only when verbose mode is enabled.
func Verbose(format string, args ...interface{}) {
	if verbose {
		log.Printf(format, args...)
	}
}

// Error logs a message to stderr, independent of verbose mode.
func Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
