package interp

import (
	"fmt"

	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
	"vjvm/types"
)

func isFieldOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Getstatic, opcode.Putstatic, opcode.Getfield, opcode.Putfield:
		return true
	}
	return false
}

// execFieldAccess resolves the field-ref through the constant pool and
// performs the access. getstatic/putstatic first ensure the owning
// class is initialized (reading or writing a static field is a JVMS
// ยง5.5 "active use"); getfield/putfield additionally pop and
// null-check the receiver.
func execFieldAccess(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	ref, err := f.Class.Pool.MemberRefAt(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	category2 := types.IsCategory2(ref.Descriptor)

	switch ins.Op {
	case opcode.Getstatic, opcode.Putstatic:
		class, err := th.Loader.LoadClass(ref.ClassName)
		if err != nil {
			return errToThrowOrFail(err)
		}
		if err := ensureInitialized(th, class); err != nil {
			return errToThrowOrFail(err)
		}
		if ins.Op == opcode.Getstatic {
			v, ok := class.StaticValues[ref.Name]
			if !ok {
				v = object.ZeroValue(ref.Descriptor)
			}
			if category2 {
				return contResult, f.PushCategory2(v)
			}
			return contResult, f.Push(v)
		}
		var v interface{}
		if category2 {
			v, err = f.PopCategory2()
		} else {
			v, err = f.Pop()
		}
		if err != nil {
			return result{}, err
		}
		class.StaticValues[ref.Name] = v
		return contResult, nil

	case opcode.Getfield:
		recv, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if recv == nil {
			return throwResult(excnames.NullPointerException, fmt.Sprintf("Cannot read field %q because the receiver is null", ref.Name)), nil
		}
		obj, ok := recv.(*object.Object)
		if !ok {
			return result{}, fmt.Errorf("getfield %s.%s: receiver is not an object", ref.ClassName, ref.Name)
		}
		slot, ok := obj.Fields[ref.Name]
		if !ok {
			return result{}, fmt.Errorf("getfield: %s has no field %s", obj.ClassName(), ref.Name)
		}
		if category2 {
			return contResult, f.PushCategory2(slot.Value)
		}
		return contResult, f.Push(slot.Value)

	case opcode.Putfield:
		var v interface{}
		var err error
		if category2 {
			v, err = f.PopCategory2()
		} else {
			v, err = f.Pop()
		}
		if err != nil {
			return result{}, err
		}
		recv, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if recv == nil {
			return throwResult(excnames.NullPointerException, fmt.Sprintf("Cannot assign field %q because the receiver is null", ref.Name)), nil
		}
		obj, ok := recv.(*object.Object)
		if !ok {
			return result{}, fmt.Errorf("putfield %s.%s: receiver is not an object", ref.ClassName, ref.Name)
		}
		slot, ok := obj.Fields[ref.Name]
		if !ok {
			return result{}, fmt.Errorf("putfield: %s has no field %s", obj.ClassName(), ref.Name)
		}
		slot.Value = v
		return contResult, nil
	}
	return result{}, fmt.Errorf("unreachable field opcode %s", opcode.Name(ins.Op))
}
