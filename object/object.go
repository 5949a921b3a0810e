// Package object is the runtime heap: Java object/array instances and
// their monitors. It is the concrete counterpart to vtype's abstract
// lattice -- vtype tracks what the verifier proves about a reference;
// object is what that reference actually points to once code runs.
package object

import (
	"sync"
	"sync/atomic"
	"time"

	"vjvm/stringpool"
	"vjvm/types"
)

// FieldSlot is one instance or static field's runtime value, tagged with
// its descriptor so array-element widths and numeric conversions don't
// need a second lookup into the class's Field table.
type FieldSlot struct {
	Descriptor string
	Value      interface{}
}

// Object is a runtime instance of a class. KlassName is a string-pool
// index (mirroring jacobin/object's Object.KlassName) rather than a
// pointer to the owning Class, so objects don't pin a *classfile.Class
// alive and so object has no import-cycle dependency on classloader.
type Object struct {
	KlassName uint32
	Fields    map[string]*FieldSlot

	monitor monitor
}

// NewObject allocates a zero-valued instance of the class named
// className (interned into the string pool), with fields seeded to
// fieldDefs' descriptors (zero value per descriptor; reference fields
// start nil, matching Java's default-initialization rule).
func NewObject(className string, fieldDefs map[string]string) *Object {
	fields := make(map[string]*FieldSlot, len(fieldDefs))
	for name, desc := range fieldDefs {
		fields[name] = &FieldSlot{Descriptor: desc, Value: zeroValue(desc)}
	}
	return &Object{
		KlassName: stringpool.Intern(className),
		Fields:    fields,
	}
}

// ClassName returns the object's class's internal name.
func (o *Object) ClassName() string {
	s, _ := stringpool.GetString(o.KlassName)
	return s
}

// ZeroValue returns the default-initialization value for a field or
// array element of the given descriptor (0/0.0 for primitives, nil for
// references), per JVMS ยง2.3/ยง2.4's default-value rule.
func ZeroValue(descriptor string) interface{} {
	return zeroValue(descriptor)
}

func zeroValue(descriptor string) interface{} {
	if descriptor == "" {
		return nil
	}
	switch descriptor[0] {
	case 'B', 'C', 'I', 'S', 'Z':
		return int32(0)
	case 'J':
		return int64(0)
	case 'F':
		return float32(0)
	case 'D':
		return float64(0)
	default:
		return nil // reference or array: null
	}
}

// Array is a runtime Java array: a fixed-length, homogeneously-typed
// element slice. ElementDescriptor is the component type's descriptor
// ("I", "Ljava/lang/String;", "[I", ...), per spec's array-of-expected-
// component-type check (ยง4.6) and the bounds/null checks performed at
// run time (ยง4.9).
type Array struct {
	ElementDescriptor string
	Elements          []interface{}

	monitor monitor
}

// NewArray allocates an array of n elements of the given component
// descriptor, each zero-valued. Negative n is the caller's
// NegativeArraySizeException to raise; Array itself just requires n >= 0.
func NewArray(elementDescriptor string, n int) *Array {
	elems := make([]interface{}, n)
	zero := zeroValue(elementDescriptor)
	for i := range elems {
		elems[i] = zero
	}
	return &Array{ElementDescriptor: elementDescriptor, Elements: elems}
}

// Length returns the array's length.
func (a *Array) Length() int { return len(a.Elements) }

// IsCategory2Array reports whether elements of this array occupy two
// operand-stack slots when loaded (long/double arrays).
func (a *Array) IsCategory2Array() bool {
	return types.IsCategory2(a.ElementDescriptor)
}

// Monitorable is implemented by Object and Array: anything the
// monitorenter/monitorexit instructions, and synchronized method entry,
// can lock.
type Monitorable interface {
	Monitor() *monitor
}

func (o *Object) Monitor() *monitor { return &o.monitor }
func (a *Array) Monitor() *monitor  { return &a.monitor }

// monitor is a reentrant lock owned by at most one thread, counted by
// depth, per spec ยง4.9/ยง5: monitorenter/monitorexit and synchronized
// method entry/exit all route through the same owner+depth bookkeeping,
// so a thread that re-enters its own monitor doesn't block, and an
// unbalanced exit by a non-owner is detected rather than silently
// corrupting the lock.
type monitor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	owner   int64 // thread id, 0 = unowned
	hasOwner atomic.Bool
	depth   int
}

// ErrNotOwner is returned by Exit when the calling thread does not
// currently hold the monitor -- the host-level detection of
// IllegalMonitorStateException.
var ErrNotOwner = notOwnerError{}

type notOwnerError struct{}

func (notOwnerError) Error() string { return "current thread does not own this object's monitor" }

// Enter acquires the monitor for tid, blocking if another thread holds
// it. Re-entry by the owning thread increments depth without blocking.
func (m *monitor) Enter(tid int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
	for m.hasOwner.Load() && m.owner != tid {
		m.cond.Wait()
	}
	m.owner = tid
	m.hasOwner.Store(true)
	m.depth++
}

// Exit releases one level of tid's hold on the monitor, waking a waiter
// once depth reaches zero. Returns ErrNotOwner if tid does not hold it.
func (m *monitor) Exit(tid int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasOwner.Load() || m.owner != tid {
		return ErrNotOwner
	}
	m.depth--
	if m.depth == 0 {
		m.hasOwner.Store(false)
		m.owner = 0
		if m.cond != nil {
			m.cond.Signal()
		}
	}
	return nil
}

// IsHeldBy reports whether tid currently holds the monitor (any depth).
func (m *monitor) IsHeldBy(tid int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasOwner.Load() && m.owner == tid
}

// Wait releases tid's hold on the monitor (remembering its depth) and
// blocks until notified or timeout elapses, then reacquires the
// monitor at the same depth, per Object.wait's contract. timeout <= 0
// means wait indefinitely. Returns ErrNotOwner if tid does not hold
// the monitor.
func (m *monitor) Wait(tid int64, timeout time.Duration) error {
	m.mu.Lock()
	if !m.hasOwner.Load() || m.owner != tid {
		m.mu.Unlock()
		return ErrNotOwner
	}
	if m.cond == nil {
		m.cond = sync.NewCond(&m.mu)
	}
	savedDepth := m.depth
	m.depth = 0
	m.hasOwner.Store(false)
	m.owner = 0
	m.cond.Broadcast() // let a blocked Enter proceed while this thread waits

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			m.mu.Lock()
			m.cond.Broadcast()
			m.mu.Unlock()
		})
	}
	m.cond.Wait()
	if timer != nil {
		timer.Stop()
	}

	for m.hasOwner.Load() && m.owner != tid {
		m.cond.Wait()
	}
	m.owner = tid
	m.hasOwner.Store(true)
	m.depth = savedDepth
	m.mu.Unlock()
	return nil
}

// Notify wakes one thread blocked in Wait on this monitor.
func (m *monitor) Notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cond != nil {
		m.cond.Signal()
	}
}

// NotifyAll wakes every thread blocked in Wait on this monitor.
func (m *monitor) NotifyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cond != nil {
		m.cond.Broadcast()
	}
}
