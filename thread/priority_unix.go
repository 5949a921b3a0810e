//go:build unix

package thread

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// applyHostPriority pins the calling goroutine to its own OS thread
// (Go threads are otherwise reused across goroutines, which would make
// a "thread priority" meaningless) and applies the mapped niceness via
// setpriority(2). A thread that never calls SetPriority is never
// locked to an OS thread, so this is opt-in cost.
func applyHostPriority(javaPriority int) error {
	runtime.LockOSThread()
	return unix.Setpriority(unix.PRIO_PROCESS, 0, niceness(javaPriority))
}
