package verifier

import (
	"fmt"

	"vjvm/classfile"
	"vjvm/opcode"
	"vjvm/vframe"
	"vjvm/vtype"
)

func pushFieldType(f *vframe.Frame, t vtype.Type) error {
	if t.IsCategory2() {
		return f.PushCategory2(t)
	}
	return f.Push(t)
}

func popFieldType(f *vframe.Frame, t vtype.Type) (vtype.Type, error) {
	if t.IsCategory2() {
		return f.PopCategory2()
	}
	return f.Pop()
}

// stepFieldAccess resolves the field-ref through the constant pool and
// checks/produces operand types against the field's descriptor. getfield
// and putfield additionally pop the receiver reference.
func stepFieldAccess(op opcode.Opcode, class *classfile.Class, ins *opcode.Instruction, f *vframe.Frame) error {
	ref, err := class.Pool.MemberRefAt(ins.CPIndex)
	if err != nil {
		return err
	}
	fieldT, err := fieldType(ref.Descriptor)
	if err != nil {
		return err
	}

	switch op {
	case opcode.Getstatic:
		return pushFieldType(f, fieldT)
	case opcode.Putstatic:
		v, err := popFieldType(f, fieldT)
		if err != nil {
			return err
		}
		if v.Kind != fieldT.Kind {
			return fmt.Errorf("putstatic %s.%s: expected %s, got %s", ref.ClassName, ref.Name, fieldT, v)
		}
		return nil
	case opcode.Getfield:
		recv, err := f.Pop()
		if err != nil {
			return err
		}
		if !isReferenceType(recv) {
			return fmt.Errorf("getfield %s.%s: expected object reference receiver, got %s", ref.ClassName, ref.Name, recv)
		}
		return pushFieldType(f, fieldT)
	case opcode.Putfield:
		v, err := popFieldType(f, fieldT)
		if err != nil {
			return err
		}
		if v.Kind != fieldT.Kind {
			return fmt.Errorf("putfield %s.%s: expected %s, got %s", ref.ClassName, ref.Name, fieldT, v)
		}
		recv, err := f.Pop()
		if err != nil {
			return err
		}
		if !isReferenceType(recv) {
			return fmt.Errorf("putfield %s.%s: expected object reference receiver, got %s", ref.ClassName, ref.Name, recv)
		}
		return nil
	}
	return fmt.Errorf("unreachable field opcode %s", opcode.Name(op))
}

// stepInvoke pops arguments in reverse descriptor order, then (for
// non-static calls) the receiver, then pushes the return type if the
// method is non-void. invokespecial on <init> additionally requires the
// receiver to be an Uninitialized/UninitializedThis type and replaces
// every occurrence of it in the frame with the initialized object type,
// per JVMS ยง4.10.1.9.
func stepInvoke(op opcode.Opcode, class *classfile.Class, ins *opcode.Instruction, f *vframe.Frame, idx int) error {
	ref, err := class.Pool.MemberRefAt(ins.CPIndex)
	if err != nil {
		return err
	}
	params, ret, err := methodDescriptor(ref.Descriptor)
	if err != nil {
		return err
	}

	for i := len(params) - 1; i >= 0; i-- {
		v, err := popFieldType(f, params[i])
		if err != nil {
			return err
		}
		if v.Kind != params[i].Kind {
			return fmt.Errorf("%s %s.%s: argument %d expected %s, got %s", opcode.Name(op), ref.ClassName, ref.Name, i, params[i], v)
		}
	}

	if op != opcode.Invokestatic {
		recv, err := f.Pop()
		if err != nil {
			return err
		}
		if op == opcode.Invokespecial && ref.Name == "<init>" {
			if recv.Kind != vtype.Uninitialized && recv.Kind != vtype.UninitializedThis {
				return fmt.Errorf("invokespecial <init>: expected uninitialized receiver, got %s", recv)
			}
			f.InitializeObject(recv, vtype.ObjectType(ref.ClassName))
			return pushReturnIfAny(f, ret, isVoidReturn(ref.Descriptor))
		}
		if !isReferenceType(recv) {
			return fmt.Errorf("%s %s.%s: expected object reference receiver, got %s", opcode.Name(op), ref.ClassName, ref.Name, recv)
		}
	}

	return pushReturnIfAny(f, ret, isVoidReturn(ref.Descriptor))
}

func pushReturnIfAny(f *vframe.Frame, ret vtype.Type, void bool) error {
	if void {
		return nil
	}
	return pushFieldType(f, ret)
}

// stepInvokeDynamic resolves the call site's descriptor from the
// InvokeDynamic constant pool entry's NameAndType; it has no receiver
// (the bootstrap method supplies the callable).
func stepInvokeDynamic(class *classfile.Class, ins *opcode.Instruction, f *vframe.Frame) error {
	e, err := class.Pool.Get(ins.CPIndex)
	if err != nil {
		return err
	}
	if e.Tag != classfile.TagInvokeDynamic {
		return fmt.Errorf("invokedynamic: constant pool entry %d is not InvokeDynamic", ins.CPIndex)
	}
	_, descriptor, err := class.Pool.NameAndTypeAt(e.NameAndTypeIndex)
	if err != nil {
		return err
	}
	params, ret, err := methodDescriptor(descriptor)
	if err != nil {
		return err
	}
	for i := len(params) - 1; i >= 0; i-- {
		v, err := popFieldType(f, params[i])
		if err != nil {
			return err
		}
		if v.Kind != params[i].Kind {
			return fmt.Errorf("invokedynamic: argument %d expected %s, got %s", i, params[i], v)
		}
	}
	return pushReturnIfAny(f, ret, isVoidReturn(descriptor))
}
