// Package interp is the bytecode dispatch loop and invocation driver
// (components C9 and C10): it drives one frame's instructions to
// completion, resolves method calls to either a gfunction intrinsic or
// a freshly pushed frame, triggers class initialization on first active
// use, and walks a method's exception table when a throw unwinds
// through it. It sits above classloader, gfunction, frame, object, and
// thread, closing the loop those packages leave open -- thread owns the
// frame stack and sleep/interrupt bookkeeping but never executes
// bytecode, and classloader.EnsureInitialized takes a ClinitFunc
// callback rather than importing this package, so the dependency only
// runs one way.
package interp

import (
	"fmt"

	"vjvm/codeinfo"
	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
)

// outcome is what executing one instruction means for the dispatch
// loop: fall through to the next instruction, a jump dispatch already
// applied to f.PC, a method return, or a thrown exception to route
// through the current frame's exception table.
type outcome int

const (
	outcomeContinue outcome = iota
	outcomeJumped
	outcomeReturned
	outcomeThrew
)

// result is the per-instruction outcome. Which of returnValue/
// hasReturnValue/thrown is meaningful depends on kind.
type result struct {
	kind           outcome
	returnValue    interface{}
	hasReturnValue bool
	thrown         *object.Object
}

var contResult = result{kind: outcomeContinue}

// Run drives th's current frame to completion: it executes instructions
// until the method returns normally, or an exception propagates past
// every exception-table entry guarding the current pc, recursing into
// Run for every invocation the bytecode performs. Callers push the
// entry frame (via th.PushFrame) before calling Run, and pop it
// themselves afterward; Run never pops its own frame, so a caller can
// still inspect it (its monitor, its locals) after the call returns.
func Run(th *thread.Thread) (value interface{}, hasValue bool, thrown *object.Object, err error) {
	f := th.CurrentFrame()
	if f == nil {
		return nil, false, nil, fmt.Errorf("interp: no active frame")
	}

	ci, err := codeinfo.Build(f.Method.Instructions)
	if err != nil {
		return nil, false, nil, fmt.Errorf("interp: %s.%s: %w", f.Class.Name, f.Method.Name, err)
	}

	for {
		if ierr := th.CheckInterrupted(); ierr != nil {
			return nil, false, newException(excnames.InterruptedException, ierr.Error()), nil
		}

		idx, ok := ci.IndexAt(f.PC)
		if !ok {
			return nil, false, nil, fmt.Errorf("%s.%s: pc %d is not an instruction boundary", f.Class.Name, f.Method.Name, f.PC)
		}
		ins := &f.Method.Instructions[idx]

		r, execErr := dispatch(th, f, ci, idx, ins)
		if execErr != nil {
			return nil, false, nil, fmt.Errorf("%s.%s at pc %d (%s): %w", f.Class.Name, f.Method.Name, f.PC, opcode.Name(ins.Op), execErr)
		}

		switch r.kind {
		case outcomeContinue:
			next := idx + 1
			off, ok := ci.OffsetAt(next)
			if !ok {
				return nil, false, nil, fmt.Errorf("%s.%s: fell off the end of the method", f.Class.Name, f.Method.Name)
			}
			f.PC = off

		case outcomeJumped:
			// dispatch already set f.PC to the resolved target

		case outcomeReturned:
			releaseFrameMonitor(th, f)
			return r.returnValue, r.hasReturnValue, nil, nil

		case outcomeThrew:
			handled, herr := handleThrow(th, f, ci, idx, r.thrown)
			if herr != nil {
				return nil, false, nil, herr
			}
			if !handled {
				releaseFrameMonitor(th, f)
				return nil, false, r.thrown, nil
			}
			// f.PC now points at the handler, f.Stack holds [thrown]
		}
	}
}

func releaseFrameMonitor(th *thread.Thread, f *frame.Frame) {
	if f.Monitor != nil {
		_ = f.Monitor.Exit(th.ID)
	}
}

// handleThrow searches f.Method's exception table for a handler
// covering the throw site at idx whose catch type matches thrown's
// class. On a match it resets the operand stack to hold just the
// thrown reference and repoints f.PC at the handler, per JVMS ยง2.10.
func handleThrow(th *thread.Thread, f *frame.Frame, ci *codeinfo.CodeInfo, idx int, thrown *object.Object) (bool, error) {
	off, ok := ci.OffsetAt(idx)
	if !ok {
		return false, fmt.Errorf("interp: instruction %d has no byte offset", idx)
	}
	for _, e := range f.Method.ExceptionTable {
		if off < e.StartPC || off >= e.EndPC {
			continue
		}
		if !catchMatches(th, thrown.ClassName(), e.CatchType) {
			continue
		}
		if !ci.IsValidOffset(e.HandlerPC) {
			return false, fmt.Errorf("exception handler_pc %d is not an instruction boundary", e.HandlerPC)
		}
		f.Stack = f.Stack[:0]
		if err := f.Push(thrown); err != nil {
			return false, err
		}
		f.PC = e.HandlerPC
		return true, nil
	}
	return false, nil
}

// catchMatches reports whether a handler whose catch_type is catchType
// ("" for a finally-style catch-all) covers an exception of class
// thrownClass. Exact name equality is checked first and is the only
// check that can ever fire for an engine-synthesized exception (new*
// NullPointerException and friends are never given a classpath-backed
// java/lang hierarchy); IsSubclassOf is attempted afterward for a
// user's own loaded throwables, degrading to "no match" rather than an
// error if an ancestor can't be resolved.
func catchMatches(th *thread.Thread, thrownClass, catchType string) bool {
	if catchType == "" || catchType == excnames.Throwable {
		return true
	}
	if thrownClass == catchType {
		return true
	}
	return th.Hierarchy.IsSubclassOf(thrownClass, catchType)
}

// newException synthesizes a host-detected exception object. Runtime
// exceptions the engine itself raises (NullPointerException,
// ArithmeticException, ...) are not resolved through the classloader --
// most classpaths in this engine's test harnesses never carry a
// java/lang tree -- so the object is built directly with one field,
// "message", holding msg.
func newException(className, msg string) *object.Object {
	obj := object.NewObject(className, map[string]string{"message": "Ljava/lang/String;"})
	obj.Fields["message"].Value = msg
	return obj
}

func throwResult(className, msg string) result {
	return result{kind: outcomeThrew, thrown: newException(className, msg)}
}

func returnResult(v interface{}) result {
	return result{kind: outcomeReturned, returnValue: v, hasReturnValue: true}
}

var voidReturn = result{kind: outcomeReturned}

// dispatch executes the single instruction ins (at instruction index
// idx) against f, routing to the per-family exec* functions grouped the
// way verifier/families.go groups its step* transfer functions -- same
// opcode families, generalized from abstract types to concrete runtime
// values.
func dispatch(th *thread.Thread, f *frame.Frame, ci *codeinfo.CodeInfo, idx int, ins *opcode.Instruction) (result, error) {
	op := ins.Op
	switch {
	case op == opcode.Nop:
		return contResult, nil
	case isConstantOp(op):
		return execConstant(f, ins)
	case isLocalLoadOp(op):
		return execLocalLoad(f, ins)
	case isLocalStoreOp(op):
		return execLocalStore(f, ins)
	case isArrayLoadOp(op):
		return execArrayLoad(f, ins)
	case isArrayStoreOp(op):
		return execArrayStore(f, ins)
	case isStackOp(op):
		return execStackOp(f, ins)
	case isArithmeticOp(op):
		return execArithmetic(f, ins)
	case op == opcode.Iinc:
		return execIinc(f, ins)
	case isConversionOp(op):
		return execConversion(f, ins)
	case isCompareOp(op):
		return execCompare(f, ins)
	case opcode.IsBranch(op) || opcode.IsSwitch(op) || op == opcode.Ret:
		return execBranch(f, ci, idx, ins)
	case opcode.IsReturn(op) && op != opcode.Athrow:
		return execReturn(f, ins)
	case op == opcode.Athrow:
		return execThrow(f)
	case isFieldOp(op):
		return execFieldAccess(th, f, ins)
	case isInvokeOp(op):
		return execInvoke(th, f, ins)
	case op == opcode.New:
		return execNew(th, f, ins)
	case op == opcode.Newarray:
		return execNewarray(f, ins)
	case op == opcode.Anewarray:
		return execAnewarray(th, f, ins)
	case op == opcode.Multianewarray:
		return execMultianewarray(th, f, ins)
	case op == opcode.Arraylength:
		return execArraylength(f)
	case op == opcode.Checkcast || op == opcode.Instanceof:
		return execTypeCheck(th, f, ins)
	case op == opcode.Monitorenter || op == opcode.Monitorexit:
		return execMonitor(th, f, ins)
	}
	return result{}, fmt.Errorf("unimplemented opcode %s", opcode.Name(op))
}
