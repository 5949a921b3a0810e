package classloader

import (
	"golang.org/x/sync/errgroup"

	"vjvm/classfile"
	"vjvm/globals"
	"vjvm/verifier"
)

// link performs spec ยง4.8's linking step: before a class's own bytecode
// is ever executed, its superclass and all implemented interfaces must
// already be loaded (and themselves linked), and every method's
// bytecode must pass component C6's dataflow verification. Object has
// neither a supertype nor an interface and links trivially. Interfaces
// are loaded the same way but never drive a shared-monitor
// initialization of their own on this path; they are initialized
// lazily, by the invocation driver, only when one of their fields is
// actually read (spec ยง4.8 note).
func (l *Loader) link(class *classfile.Class) error {
	if class.Super != "" || len(class.Interfaces) > 0 {
		var g errgroup.Group
		if class.Super != "" {
			super := class.Super
			g.Go(func() error {
				_, err := l.LoadClass(super)
				return err
			})
		}
		for _, iface := range class.Interfaces {
			iface := iface
			g.Go(func() error {
				_, err := l.LoadClass(iface)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return &NoClassDefFoundError{ClassName: class.Name, Reason: err.Error()}
		}
	}

	if !globals.GetGlobalRef().VerifyNone {
		h := Hierarchy{Loader: l}
		for _, method := range class.Methods {
			if err := verifier.Verify(class, method, h); err != nil {
				return &VerifyFailedError{ClassName: class.Name, Cause: err}
			}
		}
	}

	class.SetState(classfile.StateLinked)
	return nil
}
