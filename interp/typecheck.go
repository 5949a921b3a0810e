package interp

import (
	"fmt"

	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
)

// execTypeCheck implements checkcast (throws ClassCastException on a
// failed cast; a null reference always casts successfully, per JVMS
// ยง6.5.checkcast) and instanceof (pushes 0 for a null reference, else
// 1/0 for whether the object is an instance of the resolved class).
func execTypeCheck(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	targetClass, err := f.Class.Pool.ClassNameAt(ins.CPIndex)
	if err != nil {
		return result{}, err
	}

	v, err := f.Pop()
	if err != nil {
		return result{}, err
	}

	if ins.Op == opcode.Instanceof {
		if v == nil {
			return contResult, f.Push(int32(0))
		}
		if isInstance(th, v, targetClass) {
			return contResult, f.Push(int32(1))
		}
		return contResult, f.Push(int32(0))
	}

	// checkcast
	if v == nil {
		return contResult, f.Push(v)
	}
	if !isInstance(th, v, targetClass) {
		return throwResult(excnames.ClassCastException, fmt.Sprintf("cannot cast to %s", targetClass)), nil
	}
	return contResult, f.Push(v)
}

func isInstance(th *thread.Thread, v interface{}, targetClass string) bool {
	switch o := v.(type) {
	case *object.Object:
		return o.ClassName() == targetClass || th.Hierarchy.IsSubclassOf(o.ClassName(), targetClass)
	case *object.Array:
		return "["+o.ElementDescriptor == targetClass
	}
	return false
}
