package verifier

import (
	"fmt"

	"vjvm/classfile"
	"vjvm/codeinfo"
	"vjvm/opcode"
	"vjvm/vframe"
	"vjvm/vtype"
)

// step applies op's transfer function to f in place, mutating it from
// the instruction's entry frame into its exit frame, per the opcode
// families in spec ยง4.6. Control-transfer instructions (branches,
// switches, goto, return, athrow) have no frame effect beyond what's
// handled here; successor computation itself lives in cfg.
func step(class *classfile.Class, method *classfile.Method, idx int, f *vframe.Frame, h vtype.Hierarchy) error {
	ins := &method.Instructions[idx]
	op := ins.Op

	switch {
	case isConstant(op):
		return stepConstant(class, ins, f)
	case isLocalLoad(op):
		return stepLocalLoad(op, ins, f)
	case isLocalStore(op):
		return stepLocalStore(op, ins, f)
	case isStackOp(op):
		return stepStackOp(op, f)
	case op == opcode.Iinc:
		_, err := f.GetLocal(ins.LocalIndex)
		return err
	case isArithmetic(op):
		return stepArithmetic(op, f)
	case isConversion(op):
		return stepConversion(op, f)
	case isComparison(op):
		return stepComparison(op, f)
	case opcode.IsConditionalBranch(op):
		return stepConditionalBranch(op, f)
	case op == opcode.Goto, op == opcode.GotoW:
		return nil
	case op == opcode.Jsr, op == opcode.JsrW:
		return f.Push(vtype.IntegerType())
	case op == opcode.Ret:
		_, err := f.GetLocal(ins.LocalIndex)
		return err
	case op == opcode.Tableswitch, op == opcode.Lookupswitch:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if v.Kind != vtype.Integer {
			return fmt.Errorf("%s: expected int selector, got %s", opcode.Name(op), v)
		}
		return nil
	case op == opcode.Ireturn, op == opcode.Freturn, op == opcode.Areturn:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if (op == opcode.Ireturn && v.Kind != vtype.Integer) ||
			(op == opcode.Freturn && v.Kind != vtype.Float) ||
			(op == opcode.Areturn && !isReferenceType(v)) {
			return fmt.Errorf("%s: wrong return operand type %s", opcode.Name(op), v)
		}
		return nil
	case op == opcode.Lreturn, op == opcode.Dreturn:
		_, err := f.PopCategory2()
		return err
	case op == opcode.Return:
		return nil
	case op == opcode.Athrow:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if !isReferenceType(v) {
			return fmt.Errorf("athrow: expected throwable reference, got %s", v)
		}
		return nil
	case op == opcode.Getstatic, op == opcode.Putstatic, op == opcode.Getfield, op == opcode.Putfield:
		return stepFieldAccess(op, class, ins, f)
	case op == opcode.Invokevirtual, op == opcode.Invokespecial, op == opcode.Invokestatic, op == opcode.Invokeinterface:
		return stepInvoke(op, class, ins, f, idx)
	case op == opcode.Invokedynamic:
		return stepInvokeDynamic(class, ins, f)
	case op == opcode.New:
		if _, err := class.Pool.ClassNameAt(ins.CPIndex); err != nil {
			return err
		}
		ci, err := codeinfo.Build(method.Instructions)
		if err != nil {
			return err
		}
		offset, ok := ci.OffsetAt(idx)
		if !ok {
			return fmt.Errorf("new: instruction %d has no byte offset", idx)
		}
		return f.Push(vtype.UninitializedType(offset))
	case op == opcode.Newarray:
		count, err := f.Pop()
		if err != nil {
			return err
		}
		if count.Kind != vtype.Integer {
			return fmt.Errorf("newarray: expected int count, got %s", count)
		}
		return f.Push(vtype.ObjectType(primitiveArrayDescriptor(ins.IntImm)))
	case op == opcode.Anewarray:
		count, err := f.Pop()
		if err != nil {
			return err
		}
		if count.Kind != vtype.Integer {
			return fmt.Errorf("anewarray: expected int count, got %s", count)
		}
		elemClass, err := class.Pool.ClassNameAt(ins.CPIndex)
		if err != nil {
			return err
		}
		return f.Push(vtype.ObjectType("[L" + elemClass + ";"))
	case op == opcode.Multianewarray:
		for i := int32(0); i < ins.IntImm; i++ {
			dim, err := f.Pop()
			if err != nil {
				return err
			}
			if dim.Kind != vtype.Integer {
				return fmt.Errorf("multianewarray: expected int dimension, got %s", dim)
			}
		}
		arrClass, err := class.Pool.ClassNameAt(ins.CPIndex)
		if err != nil {
			return err
		}
		return f.Push(vtype.ObjectType(arrClass))
	case op == opcode.Arraylength:
		if _, err := f.Pop(); err != nil {
			return err
		}
		return f.Push(vtype.IntegerType())
	case op == opcode.Checkcast:
		if _, err := f.Pop(); err != nil {
			return err
		}
		className, err := class.Pool.ClassNameAt(ins.CPIndex)
		if err != nil {
			return err
		}
		return f.Push(vtype.ObjectType(className))
	case op == opcode.Instanceof:
		if _, err := f.Pop(); err != nil {
			return err
		}
		return f.Push(vtype.IntegerType())
	case op == opcode.Monitorenter, op == opcode.Monitorexit:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if !isReferenceType(v) {
			return fmt.Errorf("%s: expected object reference, got %s", opcode.Name(op), v)
		}
		return nil
	case isArrayLoad(op):
		return stepArrayLoad(op, f)
	case isArrayStore(op):
		return stepArrayStore(op, f)
	case op == opcode.Nop:
		return nil
	}

	return fmt.Errorf("no transfer function for opcode %s", opcode.Name(op))
}

func primitiveArrayDescriptor(atype int32) string {
	// JVMS Table 6.5.newarray-A
	switch atype {
	case 4:
		return "[Z"
	case 5:
		return "[C"
	case 6:
		return "[F"
	case 7:
		return "[D"
	case 8:
		return "[B"
	case 9:
		return "[S"
	case 10:
		return "[I"
	case 11:
		return "[J"
	default:
		return "[?"
	}
}
