// Package thread is the per-thread execution context (component C12):
// a frame stack, the interrupt/sleep machinery Object/Thread intrinsics
// rely on, and the Java-to-host thread priority mapping. The bytecode
// dispatch loop itself lives in package interp, which imports thread;
// thread never imports interp, so the invocation driver's callback into
// <clinit> execution is supplied by the caller rather than linked here.
package thread

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"vjvm/classfile"
	"vjvm/classloader"
	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/gfunction"
)

// Java thread priority band, per JVMS Thread.MIN_PRIORITY/NORM_PRIORITY/
// MAX_PRIORITY.
const (
	MinPriority  = 1
	NormPriority = 5
	MaxPriority  = 10
)

// Thread is one Java thread's execution state: its own frame stack
// (never shared with another thread, per spec §5), interruption flag,
// and the loader/intrinsic registry/hierarchy it resolves classes and
// calls against.
type Thread struct {
	ID        int64
	Name      string
	Loader    *classloader.Loader
	Gfuncs    *gfunction.Registry
	Hierarchy classloader.Hierarchy

	frames []*frame.Frame

	priority    atomic.Int32
	interrupted atomic.Bool

	mu          sync.Mutex
	sleepCancel context.CancelFunc
}

// New creates a thread with an empty frame stack and normal priority.
func New(id int64, name string, loader *classloader.Loader, gfuncs *gfunction.Registry) *Thread {
	t := &Thread{
		ID:        id,
		Name:      name,
		Loader:    loader,
		Gfuncs:    gfuncs,
		Hierarchy: classloader.Hierarchy{Loader: loader},
	}
	t.priority.Store(NormPriority)
	return t
}

// PushFrame pushes f onto the thread's call stack.
func (t *Thread) PushFrame(f *frame.Frame) { t.frames = append(t.frames, f) }

// PopFrame pops and returns the top frame, or nil if the stack is empty.
func (t *Thread) PopFrame() *frame.Frame {
	if len(t.frames) == 0 {
		return nil
	}
	f := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	return f
}

// CurrentFrame returns the top frame without popping it, or nil if the
// stack is empty.
func (t *Thread) CurrentFrame() *frame.Frame {
	if len(t.frames) == 0 {
		return nil
	}
	return t.frames[len(t.frames)-1]
}

// Depth returns the number of frames currently on the stack.
func (t *Thread) Depth() int { return len(t.frames) }

// Interrupt sets the interrupted flag and, if the thread is blocked in
// Sleep, cancels the wait immediately.
func (t *Thread) Interrupt() {
	t.interrupted.Store(true)
	t.mu.Lock()
	cancel := t.sleepCancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsInterrupted reports the interrupted flag, clearing it first if
// clear is true -- Thread.interrupted() vs Thread.isInterrupted().
func (t *Thread) IsInterrupted(clear bool) bool {
	v := t.interrupted.Load()
	if clear {
		t.interrupted.Store(false)
	}
	return v
}

// CheckInterrupted returns an InterruptedError (clearing the flag) if
// the thread was interrupted, matching the checked-exception methods'
// "clears status as a side effect of throwing" rule.
func (t *Thread) CheckInterrupted() error {
	if t.IsInterrupted(true) {
		return &InterruptedError{}
	}
	return nil
}

// Sleep blocks the calling goroutine for ms milliseconds, honoring
// Interrupt: an interrupt delivered before or during the sleep makes it
// return an InterruptedError (with the flag cleared) instead of waiting
// out the remainder. Deadline accounting for the wait and for the
// interrupt-cancellation race is done with a rate.Limiter sized to the
// requested duration, burst 1, with its initial token pre-spent so the
// single WaitN reservation blocks for the full interval.
func (t *Thread) Sleep(ms int64) error {
	if err := t.CheckInterrupted(); err != nil {
		return err
	}
	if ms <= 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.sleepCancel = cancel
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.sleepCancel = nil
		t.mu.Unlock()
		cancel()
	}()

	limiter := rate.NewLimiter(rate.Every(time.Duration(ms)*time.Millisecond), 1)
	limiter.Allow() // spend the initial burst so the reservation below waits the full interval
	if err := limiter.WaitN(ctx, 1); err != nil {
		if t.IsInterrupted(true) {
			return &InterruptedError{}
		}
		return err
	}
	return t.CheckInterrupted()
}

// Priority returns the thread's current Java priority (1..10).
func (t *Thread) Priority() int { return int(t.priority.Load()) }

// SetPriority validates p is within [MinPriority, MaxPriority], records
// it, and attempts to apply it to the underlying host thread. A host
// that cannot honor thread priorities (unsupported platform, or denied
// by the OS) reports UnsupportedOperationException rather than
// silently ignoring the request.
func (t *Thread) SetPriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return fmt.Errorf("thread: priority %d out of range [%d,%d]", p, MinPriority, MaxPriority)
	}
	t.priority.Store(int32(p))
	if err := applyHostPriority(p); err != nil {
		return &UnsupportedPriorityError{Priority: p, Cause: err}
	}
	return nil
}

// niceness maps a Java priority (1..10) linearly onto the POSIX
// "nice" band (-20, highest, to 19, lowest): MinPriority -> 19,
// MaxPriority -> -20.
func niceness(javaPriority int) int {
	const (
		niceHigh = -20
		niceLow  = 19
	)
	span := float64(niceLow - niceHigh)
	frac := float64(javaPriority-MinPriority) / float64(MaxPriority-MinPriority)
	return niceLow - int(frac*span)
}

// UnsupportedPriorityError reports that the host could not apply a
// thread priority change.
type UnsupportedPriorityError struct {
	Priority int
	Cause    error
}

func (e *UnsupportedPriorityError) Error() string {
	return fmt.Sprintf("priority %d not supported on this host: %v", e.Priority, e.Cause)
}

func (e *UnsupportedPriorityError) Unwrap() error { return e.Cause }

func (e *UnsupportedPriorityError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.UnsupportedOperationException, e.Error())
}

// CollectInstanceFields walks class's superclass chain (via the
// thread's loader, up to and including java/lang/Object) and returns
// the merged (name -> descriptor) map of every non-static field a new
// instance of class must carry. A subclass field shadows a superclass
// field of the same name, matching the common case; true per-declaring-
// class field shadowing (two distinct storage slots for the same name)
// is not modeled, as no component in this engine needs to distinguish
// them.
func (t *Thread) CollectInstanceFields(class *classfile.Class) (map[string]string, error) {
	var chain []*classfile.Class
	for c := class; c != nil; {
		chain = append(chain, c)
		if c.Super == "" {
			break
		}
		super, err := t.Loader.LoadClass(c.Super)
		if err != nil {
			return nil, err
		}
		c = super
	}
	fields := map[string]string{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			if !f.IsStatic() {
				fields[f.Name] = f.Descriptor
			}
		}
	}
	return fields, nil
}
