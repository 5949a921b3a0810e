package interp

import (
	"fmt"

	"vjvm/classfile"
	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
	"vjvm/types"
)

func isInvokeOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Invokevirtual, opcode.Invokespecial, opcode.Invokestatic, opcode.Invokeinterface, opcode.Invokedynamic:
		return true
	}
	return false
}

// execInvoke is the invocation driver: it resolves the method-ref, pops
// arguments (receiver included for anything but invokestatic), resolves
// the target method -- by dynamic dispatch from the receiver's actual
// class for invokevirtual/invokeinterface, directly against the
// resolved class otherwise -- and runs it, either through a registered
// gfunction intrinsic or by recursing into Run with a freshly pushed
// frame. invokedynamic's call-site bootstrap linkage is not modeled;
// it always raises UnsupportedOperationException.
func execInvoke(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	if ins.Op == opcode.Invokedynamic {
		return throwResult(excnames.UnsupportedOperationException, "invokedynamic is not supported"), nil
	}

	ref, err := f.Class.Pool.MemberRefAt(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	params, ret, err := splitMethodDescriptor(ref.Descriptor)
	if err != nil {
		return result{}, err
	}

	args := make([]interface{}, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		var v interface{}
		var err error
		if types.IsCategory2(params[i]) {
			v, err = f.PopCategory2()
		} else {
			v, err = f.Pop()
		}
		if err != nil {
			return result{}, err
		}
		args[i] = v
	}

	var class *classfile.Class
	var method *classfile.Method

	if ins.Op == opcode.Invokestatic {
		class, err = th.Loader.LoadClass(ref.ClassName)
		if err != nil {
			return errToThrowOrFail(err)
		}
		method, err = findMethodInChain(th, class, ref.Name, ref.Descriptor)
		if err != nil {
			return errToThrowOrFail(err)
		}
	} else {
		recv, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if recv == nil {
			return throwResult(excnames.NullPointerException, fmt.Sprintf("Cannot invoke %q because the object reference is null", ref.Name)), nil
		}
		args = append([]interface{}{recv}, args...)

		startClassName := ref.ClassName
		if ins.Op == opcode.Invokevirtual || ins.Op == opcode.Invokeinterface {
			if obj, ok := recv.(*object.Object); ok {
				startClassName = obj.ClassName()
			}
		}
		startClass, err := th.Loader.LoadClass(startClassName)
		if err != nil {
			return errToThrowOrFail(err)
		}
		class = startClass
		method, err = findMethodInChain(th, startClass, ref.Name, ref.Descriptor)
		if err != nil {
			return errToThrowOrFail(err)
		}
	}

	if method.IsAbstract() {
		return result{}, fmt.Errorf("invoke: %s.%s%s resolved to an abstract method", class.Name, ref.Name, ref.Descriptor)
	}

	if err := ensureInitialized(th, class); err != nil {
		return errToThrowOrFail(err)
	}

	v, hasV, thrown, rerr := runMethod(th, class, method, args)
	if rerr != nil {
		return result{}, rerr
	}
	if thrown != nil {
		return result{kind: outcomeThrew, thrown: thrown}, nil
	}
	if ret == "" || !hasV {
		return contResult, nil
	}
	if types.IsCategory2(ret) {
		return contResult, f.PushCategory2(v)
	}
	return contResult, f.Push(v)
}

// findMethodInChain walks startClass and its superclasses looking for
// name+descriptor, the dynamic-dispatch resolution invokevirtual and
// invokeinterface need since there is no per-class vtable cache here.
func findMethodInChain(th *thread.Thread, startClass *classfile.Class, name, descriptor string) (*classfile.Method, error) {
	for class := startClass; ; {
		if m := class.FindMethod(name, descriptor); m != nil {
			return m, nil
		}
		if class.Super == "" {
			return nil, fmt.Errorf("no such method %s%s on %s or its superclasses", name, descriptor, startClass.Name)
		}
		super, err := th.Loader.LoadClass(class.Super)
		if err != nil {
			return nil, err
		}
		class = super
	}
}

// ensureInitialized triggers class.Loader's init state machine, running
// <clinit> (if present) through the same Run driver as ordinary
// bytecode. A <clinit> that throws is reported back to EnsureInitialized
// as a plain error, which records the class Failed and, on every future
// access attempt, reports NoClassDefFoundError -- this engine does not
// model ExceptionInInitializerError as a distinct wrapper type.
func ensureInitialized(th *thread.Thread, class *classfile.Class) error {
	return th.Loader.EnsureInitialized(class, th.ID, func(c *classfile.Class) error {
		clinit := c.FindMethod("<clinit>", "()V")
		if clinit == nil {
			return nil
		}
		_, _, thrown, err := runMethod(th, c, clinit, nil)
		if err != nil {
			return err
		}
		if thrown != nil {
			return fmt.Errorf("%s.<clinit> threw %s", c.Name, thrown.ClassName())
		}
		return nil
	})
}

// RunMain is the interpreter's one exported entry point for code outside
// this package: it ensures class is Initialized (running <clinit> if
// this is the first use) and then invokes method with args exactly as
// invokestatic would from inside running bytecode. cmd/vjvm uses this to
// start a program's public static void main(String[]).
func RunMain(th *thread.Thread, class *classfile.Class, method *classfile.Method, args []interface{}) (interface{}, bool, *object.Object, error) {
	if err := ensureInitialized(th, class); err != nil {
		return nil, false, nil, err
	}
	return runMethod(th, class, method, args)
}

// runMethod executes method of class with the given arguments (receiver
// included at args[0] for an instance method), either via a registered
// gfunction intrinsic (for a native method) or by pushing a fresh frame
// and recursing into Run.
func runMethod(th *thread.Thread, class *classfile.Class, method *classfile.Method, args []interface{}) (interface{}, bool, *object.Object, error) {
	if method.IsNative() {
		return invokeIntrinsic(th, class, method, args)
	}

	nf := frame.New(class, method)
	if err := placeArgs(nf, method, args); err != nil {
		return nil, false, nil, err
	}
	th.PushFrame(nf)
	v, hasV, thrown, err := Run(th)
	th.PopFrame()
	return v, hasV, thrown, err
}

func invokeIntrinsic(th *thread.Thread, class *classfile.Class, method *classfile.Method, args []interface{}) (interface{}, bool, *object.Object, error) {
	fn, ok := th.Gfuncs.Lookup(class.Name, method.Name, method.Descriptor, class.Version.Major)
	if !ok {
		return nil, false, nil, fmt.Errorf("native method %s.%s%s has no registered intrinsic", class.Name, method.Name, method.Descriptor)
	}
	v, err := fn(th, args)
	if err != nil {
		if p, ok := err.(excnames.Provider); ok {
			je := p.JVMError()
			return nil, false, newException(je.ClassName, je.Msg), nil
		}
		return nil, false, nil, err
	}
	_, ret, derr := splitMethodDescriptor(method.Descriptor)
	if derr != nil {
		return nil, false, nil, derr
	}
	if ret == "" {
		return nil, false, nil, nil
	}
	return v, true, nil, nil
}

// placeArgs copies args into nf's local variable slots in declared
// order, receiver first for an instance method, widening to two slots
// for every category-2 (long/double) parameter per JVMS ยง2.6.1.
func placeArgs(nf *frame.Frame, method *classfile.Method, args []interface{}) error {
	params, _, err := splitMethodDescriptor(method.Descriptor)
	if err != nil {
		return err
	}
	slot := 0
	ai := 0
	// <clinit> never has a receiver, even when its ACC_STATIC bit is clear.
	if !method.IsStatic() && method.Name != "<clinit>" {
		if err := nf.SetLocal(slot, args[ai]); err != nil {
			return err
		}
		slot++
		ai++
	}
	for _, p := range params {
		if types.IsCategory2(p) {
			if err := nf.SetLocalCategory2(slot, args[ai]); err != nil {
				return err
			}
			slot += 2
		} else {
			if err := nf.SetLocal(slot, args[ai]); err != nil {
				return err
			}
			slot++
		}
		ai++
	}
	return nil
}

// errToThrowOrFail converts a host error that carries a Java throwable
// mapping (excnames.Provider, the classloader error family) into a
// thrown result; anything else is a genuine internal failure and is
// returned as-is for Run to report.
func errToThrowOrFail(err error) (result, error) {
	if p, ok := err.(excnames.Provider); ok {
		je := p.JVMError()
		return result{kind: outcomeThrew, thrown: newException(je.ClassName, je.Msg)}, nil
	}
	return result{}, err
}
