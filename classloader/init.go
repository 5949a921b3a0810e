package classloader

import (
	"fmt"
	"sync"

	"vjvm/classfile"
)

// initConds gives each class its own condition variable for threads
// blocked on its Initializing state, without adding a sync.Cond field to
// every classfile.Class (most classes are never contended on).
var (
	initCondsMu sync.Mutex
	initConds   = map[*classfile.Class]*sync.Cond{}
)

func condFor(c *classfile.Class) *sync.Cond {
	initCondsMu.Lock()
	defer initCondsMu.Unlock()
	cond, ok := initConds[c]
	if !ok {
		cond = sync.NewCond(&sync.Mutex{})
		initConds[c] = cond
	}
	return cond
}

// ClinitFunc runs a class's <clinit>, if it has one, assigning its
// static field values. Supplied by the caller (the thread/interp
// packages) rather than imported directly, so classloader has no
// dependency on the interpreter.
type ClinitFunc func(class *classfile.Class) error

// EnsureInitialized drives spec ยง4.8's initialization state machine for
// class and, recursively, its full superclass chain: Loaded classes are
// rejected (they must be Linked first), Linked classes race to claim
// Initializing via CompareAndSwapState, exactly one winner runs clinit,
// and every other caller -- on this thread or another -- either
// re-enters immediately (same thread, <clinit> recursing into itself or
// a subclass) or blocks until the class leaves Initializing. A class
// whose initialization previously failed never retries; every caller
// gets NoClassDefFoundError, per JVMS ยง5.5.
func (l *Loader) EnsureInitialized(class *classfile.Class, threadID int64, clinit ClinitFunc) error {
	if class.Super != "" {
		super, err := l.LoadClass(class.Super)
		if err != nil {
			return err
		}
		if err := l.EnsureInitialized(super, threadID, clinit); err != nil {
			return err
		}
	}

	for {
		switch class.State() {
		case classfile.StateInitialized:
			return nil

		case classfile.StateFailed:
			return &NoClassDefFoundError{ClassName: class.Name, Reason: "initialization previously failed"}

		case classfile.StateInitializing:
			if class.InitializingThread() == threadID {
				return nil
			}
			cond := condFor(class)
			cond.L.Lock()
			for class.State() == classfile.StateInitializing {
				cond.Wait()
			}
			cond.L.Unlock()

		case classfile.StateLinked:
			if !class.CompareAndSwapState(classfile.StateLinked, classfile.StateInitializing, threadID) {
				continue // lost the race; reloop and observe whoever won
			}
			err := clinit(class)
			cond := condFor(class)
			cond.L.Lock()
			if err != nil {
				class.SetState(classfile.StateFailed)
			} else {
				class.SetState(classfile.StateInitialized)
			}
			cond.Broadcast()
			cond.L.Unlock()
			if err != nil {
				return &NoClassDefFoundError{ClassName: class.Name, Reason: err.Error()}
			}
			return nil

		case classfile.StateLoaded:
			return fmt.Errorf("%s: initialized before linking", class.Name)
		}
	}
}
