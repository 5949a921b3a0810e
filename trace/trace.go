// Package trace provides the one-line execution trace messages that the
// class loader, verifier, and interpreter emit when the corresponding
// global trace flag is enabled, mirroring jacobin/trace.
package trace

import (
	"fmt"
	"os"
)

// Trace writes an informational trace line to stdout.
func Trace(msg string) {
	_, _ = fmt.Fprintln(os.Stdout, msg)
}

// Error writes an error trace line to stderr.
func Error(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
}

// Warning writes a warning trace line to stderr.
func Warning(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, "WARNING: "+msg)
}
