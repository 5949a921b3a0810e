// Package globals holds the single process-wide VM state block, mirroring
// jacobin/globals: a lazily-initialized singleton reached through
// GetGlobalRef, plus the handful of knobs (trace flags, class-file version
// ceiling, starting jar/class) every other package reads.
package globals

import (
	"sync"
	"sync/atomic"

	"vjvm/types"
)

// ThrowFunc is the signature used to surface a host-detected condition
// (array bounds, null deref, ...) as a Java exception in the current
// thread. It is set by the thread package at startup to avoid an import
// cycle between globals and thread.
type ThrowFunc func(excClassName string, msg string)

// Globals is the process-wide VM configuration and state block.
type Globals struct {
	JacobinName string // the name the CLI was invoked as, e.g. "vjvm"
	JavaHome    string
	StartingJar string
	StartingClass string
	AppArgs     []string

	// VersionCeiling is the highest class-file major version this engine
	// will load; classes newer than this fail with
	// UnsupportedClassFileVersion (spec ยง4.8, ยง7).
	VersionCeiling uint16

	StrictJDK bool

	// Verification policy, mirroring -Xverify:{none,remote,all}.
	VerifyNone bool

	TraceClass  bool
	TraceCloadi bool
	TraceInst   bool
	TraceVerify bool

	JvmFrameStackShown bool

	SystemProperties map[string]string

	LoaderWg sync.WaitGroup

	FuncThrowException ThrowFunc

	ExitNow bool
	ExitCode int

	threadIDSeq atomic.Int64
}

var (
	mu      sync.Mutex
	current *Globals
)

// GetGlobalRef returns the process-wide Globals, creating it with
// defaults on first use.
func GetGlobalRef() *Globals {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = newDefault()
	}
	return current
}

func newDefault() *Globals {
	return &Globals{
		VersionCeiling:   types.Java17,
		SystemProperties: map[string]string{},
		FuncThrowException: func(string, string) {
			// no-op until thread.Init wires the real handler
		},
	}
}

// InitGlobals resets process state to defaults, recording jacobinName as
// the invocation name. Tests call this to get a clean slate per the
// teacher's convention (globals.InitGlobals("test")).
func InitGlobals(jacobinName string) *Globals {
	mu.Lock()
	defer mu.Unlock()
	current = newDefault()
	current.JacobinName = jacobinName
	return current
}

// NextThreadID returns a monotonically increasing thread id, per spec ยง3's
// "Thread ... Monotonic id".
func (g *Globals) NextThreadID() int64 {
	return g.threadIDSeq.Add(1)
}
