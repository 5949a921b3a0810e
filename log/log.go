// Package log is the engine's leveled diagnostic logger, mirroring
// jacobin/log: a small set of severities, a package-level current level,
// and a Log function that writes to stderr when the message's level is at
// or above the configured threshold.
package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, lowest (most verbose) to highest.
const (
	FINEST = iota
	FINER
	FINE
	CONFIG
	INFO
	WARNING
	SEVERE
)

var levelNames = map[int]string{
	FINEST:  "FINEST",
	FINER:   "FINER",
	FINE:    "FINE",
	CONFIG:  "CONFIG",
	INFO:    "INFO",
	WARNING: "WARNING",
	SEVERE:  "SEVERE",
}

var (
	mu          sync.Mutex
	level       = WARNING
	initialized bool
	sink        = os.Stderr
	fileSink    *lumberjack.Logger
)

// Init resets the logger to its default state: level WARNING, writing to
// stderr. Safe to call repeatedly (e.g. once per test).
func Init() {
	mu.Lock()
	defer mu.Unlock()
	level = WARNING
	initialized = true
	fileSink = nil
}

// SetLogLevel changes the current minimum severity that gets written.
// Returns an error if lvl is not one of the defined levels.
func SetLogLevel(lvl int) error {
	if _, ok := levelNames[lvl]; !ok {
		return fmt.Errorf("log: invalid log level %d", lvl)
	}
	mu.Lock()
	level = lvl
	mu.Unlock()
	return nil
}

// CurrentLevel returns the active minimum severity.
func CurrentLevel() int {
	mu.Lock()
	defer mu.Unlock()
	return level
}

// SetFile redirects log output to a rotating file sink (jacobin's
// -Xlog:file= equivalent). maxSizeMB is the size at which the file rotates.
func SetFile(path string, maxSizeMB int) {
	mu.Lock()
	defer mu.Unlock()
	fileSink = &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSizeMB,
		MaxAge:   7,
		Compress: true,
	}
}

// Log writes msg if lvl is at or above the configured threshold. It
// returns an error only when lvl is unrecognized; logging itself never
// fails the caller's operation.
func Log(msg string, lvl int) error {
	name, ok := levelNames[lvl]
	if !ok {
		return fmt.Errorf("log: invalid log level %d", lvl)
	}

	mu.Lock()
	threshold := level
	out := fileSink
	mu.Unlock()

	if lvl < threshold {
		return nil
	}

	line := fmt.Sprintf("[%s] %s %s\n", time.Now().Format(time.RFC3339), name, msg)
	if out != nil {
		_, _ = out.Write([]byte(line))
		return nil
	}
	_, _ = fmt.Fprint(sink, line)
	return nil
}
