package verifier

import (
	"fmt"

	"vjvm/classfile"
	"vjvm/opcode"
	"vjvm/vframe"
	"vjvm/vtype"
)

func isConstant(op opcode.Opcode) bool {
	switch op {
	case opcode.AconstNull,
		opcode.IconstM1, opcode.Iconst0, opcode.Iconst1, opcode.Iconst2, opcode.Iconst3, opcode.Iconst4, opcode.Iconst5,
		opcode.Lconst0, opcode.Lconst1,
		opcode.Fconst0, opcode.Fconst1, opcode.Fconst2,
		opcode.Dconst0, opcode.Dconst1,
		opcode.Bipush, opcode.Sipush,
		opcode.Ldc, opcode.LdcW, opcode.Ldc2W:
		return true
	}
	return false
}

func stepConstant(class *classfile.Class, ins *opcode.Instruction, f *vframe.Frame) error {
	switch ins.Op {
	case opcode.AconstNull:
		return f.Push(vtype.NullType())
	case opcode.IconstM1, opcode.Iconst0, opcode.Iconst1, opcode.Iconst2, opcode.Iconst3, opcode.Iconst4, opcode.Iconst5,
		opcode.Bipush, opcode.Sipush:
		return f.Push(vtype.IntegerType())
	case opcode.Lconst0, opcode.Lconst1:
		return f.PushCategory2(vtype.LongType())
	case opcode.Fconst0, opcode.Fconst1, opcode.Fconst2:
		return f.Push(vtype.FloatType())
	case opcode.Dconst0, opcode.Dconst1:
		return f.PushCategory2(vtype.DoubleType())
	case opcode.Ldc, opcode.LdcW:
		return stepLdc(class, ins, f)
	case opcode.Ldc2W:
		e, err := class.Pool.Get(ins.CPIndex)
		if err != nil {
			return err
		}
		switch e.Tag {
		case classfile.TagLong:
			return f.PushCategory2(vtype.LongType())
		case classfile.TagDouble:
			return f.PushCategory2(vtype.DoubleType())
		default:
			return fmt.Errorf("ldc2_w: constant pool entry %d is not Long or Double", ins.CPIndex)
		}
	}
	return fmt.Errorf("unreachable constant opcode %s", opcode.Name(ins.Op))
}

func stepLdc(class *classfile.Class, ins *opcode.Instruction, f *vframe.Frame) error {
	e, err := class.Pool.Get(ins.CPIndex)
	if err != nil {
		return err
	}
	switch e.Tag {
	case classfile.TagInteger:
		return f.Push(vtype.IntegerType())
	case classfile.TagFloat:
		return f.Push(vtype.FloatType())
	case classfile.TagString:
		return f.Push(vtype.ObjectType("java/lang/String"))
	case classfile.TagClass:
		return f.Push(vtype.ObjectType("java/lang/Class"))
	case classfile.TagMethodHandle:
		return f.Push(vtype.ObjectType("java/lang/invoke/MethodHandle"))
	case classfile.TagMethodType:
		return f.Push(vtype.ObjectType("java/lang/invoke/MethodType"))
	case classfile.TagDynamic:
		return f.Push(vtype.TopType()) // resolved lazily at run time; type comes from the bootstrap result
	default:
		return fmt.Errorf("ldc: constant pool entry %d has non-loadable tag %d", ins.CPIndex, e.Tag)
	}
}

func isLocalLoad(op opcode.Opcode) bool {
	switch op {
	case opcode.Iload, opcode.Iload0, opcode.Iload1, opcode.Iload2, opcode.Iload3,
		opcode.Lload, opcode.Lload0, opcode.Lload1, opcode.Lload2, opcode.Lload3,
		opcode.Fload, opcode.Fload0, opcode.Fload1, opcode.Fload2, opcode.Fload3,
		opcode.Dload, opcode.Dload0, opcode.Dload1, opcode.Dload2, opcode.Dload3,
		opcode.Aload, opcode.Aload0, opcode.Aload1, opcode.Aload2, opcode.Aload3:
		return true
	}
	return false
}

func localLoadIndex(ins *opcode.Instruction) int {
	switch ins.Op {
	case opcode.Iload0, opcode.Lload0, opcode.Fload0, opcode.Dload0, opcode.Aload0:
		return 0
	case opcode.Iload1, opcode.Lload1, opcode.Fload1, opcode.Dload1, opcode.Aload1:
		return 1
	case opcode.Iload2, opcode.Lload2, opcode.Fload2, opcode.Dload2, opcode.Aload2:
		return 2
	case opcode.Iload3, opcode.Lload3, opcode.Fload3, opcode.Dload3, opcode.Aload3:
		return 3
	default:
		return ins.LocalIndex
	}
}

func stepLocalLoad(op opcode.Opcode, ins *opcode.Instruction, f *vframe.Frame) error {
	idx := localLoadIndex(ins)
	switch op {
	case opcode.Lload, opcode.Lload0, opcode.Lload1, opcode.Lload2, opcode.Lload3,
		opcode.Dload, opcode.Dload0, opcode.Dload1, opcode.Dload2, opcode.Dload3:
		if idx+1 >= len(f.Locals) {
			return fmt.Errorf("local %d+1 out of bounds", idx)
		}
		v := f.Locals[idx]
		if !v.IsCategory2() {
			return fmt.Errorf("local %d: expected category-2 type, got %s", idx, v)
		}
		return f.PushCategory2(v)
	default:
		v, err := f.GetLocal(idx)
		if err != nil {
			return err
		}
		return f.Push(v)
	}
}

func isLocalStore(op opcode.Opcode) bool {
	switch op {
	case opcode.Istore, opcode.Istore0, opcode.Istore1, opcode.Istore2, opcode.Istore3,
		opcode.Lstore, opcode.Lstore0, opcode.Lstore1, opcode.Lstore2, opcode.Lstore3,
		opcode.Fstore, opcode.Fstore0, opcode.Fstore1, opcode.Fstore2, opcode.Fstore3,
		opcode.Dstore, opcode.Dstore0, opcode.Dstore1, opcode.Dstore2, opcode.Dstore3,
		opcode.Astore, opcode.Astore0, opcode.Astore1, opcode.Astore2, opcode.Astore3:
		return true
	}
	return false
}

func localStoreIndex(ins *opcode.Instruction) int {
	switch ins.Op {
	case opcode.Istore0, opcode.Lstore0, opcode.Fstore0, opcode.Dstore0, opcode.Astore0:
		return 0
	case opcode.Istore1, opcode.Lstore1, opcode.Fstore1, opcode.Dstore1, opcode.Astore1:
		return 1
	case opcode.Istore2, opcode.Lstore2, opcode.Fstore2, opcode.Dstore2, opcode.Astore2:
		return 2
	case opcode.Istore3, opcode.Lstore3, opcode.Fstore3, opcode.Dstore3, opcode.Astore3:
		return 3
	default:
		return ins.LocalIndex
	}
}

func stepLocalStore(op opcode.Opcode, ins *opcode.Instruction, f *vframe.Frame) error {
	idx := localStoreIndex(ins)
	switch op {
	case opcode.Lstore, opcode.Lstore0, opcode.Lstore1, opcode.Lstore2, opcode.Lstore3,
		opcode.Dstore, opcode.Dstore0, opcode.Dstore1, opcode.Dstore2, opcode.Dstore3:
		v, err := f.PopCategory2()
		if err != nil {
			return err
		}
		return f.SetLocalCategory2(idx, v)
	default:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		return f.SetLocal(idx, v)
	}
}

func isStackOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Pop, opcode.Pop2, opcode.Dup, opcode.DupX1, opcode.DupX2,
		opcode.Dup2, opcode.Dup2X1, opcode.Dup2X2, opcode.Swap:
		return true
	}
	return false
}

// stepStackOp implements the stack permutations of JVMS ยง6.5 (dup*,
// pop*, swap), each variant spelled out explicitly and moving slots one by
// one. Only swap checks operand categories (it rejects a category-2
// operand); the other variants do not check that the two slots of a
// category-2 value stay together.
func stepStackOp(op opcode.Opcode, f *vframe.Frame) error {
	switch op {
	case opcode.Pop:
		_, err := f.Pop()
		return err
	case opcode.Pop2:
		_, err := f.Pop()
		if err != nil {
			return err
		}
		_, err = f.Pop()
		return err
	case opcode.Dup:
		v, err := f.Peek()
		if err != nil {
			return err
		}
		return f.Push(v)
	case opcode.DupX1:
		v1, err := f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	case opcode.DupX2:
		v1, err := f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Pop()
		if err != nil {
			return err
		}
		v3, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v3); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	case opcode.Dup2:
		v1, err := f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	case opcode.Dup2X1:
		v1, err := f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Pop()
		if err != nil {
			return err
		}
		v3, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v3); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	case opcode.Dup2X2:
		v1, err := f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Pop()
		if err != nil {
			return err
		}
		v3, err := f.Pop()
		if err != nil {
			return err
		}
		v4, err := f.Pop()
		if err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		if err := f.Push(v4); err != nil {
			return err
		}
		if err := f.Push(v3); err != nil {
			return err
		}
		if err := f.Push(v2); err != nil {
			return err
		}
		return f.Push(v1)
	case opcode.Swap:
		v1, err := f.Pop()
		if err != nil {
			return err
		}
		v2, err := f.Pop()
		if err != nil {
			return err
		}
		if v1.IsCategory2() || v2.IsCategory2() {
			return fmt.Errorf("swap: operands must both be category-1")
		}
		if err := f.Push(v1); err != nil {
			return err
		}
		return f.Push(v2)
	}
	return fmt.Errorf("unreachable stack opcode %s", opcode.Name(op))
}

func isArithmetic(op opcode.Opcode) bool {
	switch op {
	case opcode.Iadd, opcode.Isub, opcode.Imul, opcode.Idiv, opcode.Irem, opcode.Ineg,
		opcode.Ishl, opcode.Ishr, opcode.Iushr, opcode.Iand, opcode.Ior, opcode.Ixor,
		opcode.Ladd, opcode.Lsub, opcode.Lmul, opcode.Ldiv, opcode.Lrem, opcode.Lneg,
		opcode.Lshl, opcode.Lshr, opcode.Lushr, opcode.Land, opcode.Lor, opcode.Lxor,
		opcode.Fadd, opcode.Fsub, opcode.Fmul, opcode.Fdiv, opcode.Frem, opcode.Fneg,
		opcode.Dadd, opcode.Dsub, opcode.Dmul, opcode.Ddiv, opcode.Drem, opcode.Dneg:
		return true
	}
	return false
}

// shiftOps take an int shift amount (category-1) even when shifting a
// long, per JVMS ยง6.5.lshl etc.
func isShift(op opcode.Opcode) bool {
	switch op {
	case opcode.Ishl, opcode.Ishr, opcode.Iushr, opcode.Lshl, opcode.Lshr, opcode.Lushr:
		return true
	}
	return false
}

func isUnary(op opcode.Opcode) bool {
	switch op {
	case opcode.Ineg, opcode.Lneg, opcode.Fneg, opcode.Dneg:
		return true
	}
	return false
}

func arithmeticCategory(op opcode.Opcode) vtype.Type {
	switch op {
	case opcode.Iadd, opcode.Isub, opcode.Imul, opcode.Idiv, opcode.Irem, opcode.Ineg,
		opcode.Ishl, opcode.Ishr, opcode.Iushr, opcode.Iand, opcode.Ior, opcode.Ixor:
		return vtype.IntegerType()
	case opcode.Ladd, opcode.Lsub, opcode.Lmul, opcode.Ldiv, opcode.Lrem, opcode.Lneg,
		opcode.Lshl, opcode.Lshr, opcode.Lushr, opcode.Land, opcode.Lor, opcode.Lxor:
		return vtype.LongType()
	case opcode.Fadd, opcode.Fsub, opcode.Fmul, opcode.Fdiv, opcode.Frem, opcode.Fneg:
		return vtype.FloatType()
	case opcode.Dadd, opcode.Dsub, opcode.Dmul, opcode.Ddiv, opcode.Drem, opcode.Dneg:
		return vtype.DoubleType()
	}
	return vtype.TopType()
}

func stepArithmetic(op opcode.Opcode, f *vframe.Frame) error {
	want := arithmeticCategory(op)
	pop := f.Pop
	push := func(t vtype.Type) error { return f.Push(t) }
	if want.IsCategory2() {
		pop = f.PopCategory2
		push = func(t vtype.Type) error { return f.PushCategory2(t) }
	}

	if isUnary(op) {
		v, err := pop()
		if err != nil {
			return err
		}
		if v.Kind != want.Kind {
			return fmt.Errorf("%s: expected %s, got %s", opcode.Name(op), want, v)
		}
		return push(want)
	}

	// Shifts pop an int shift amount on top of a single value1 operand of
	// the shifted type, per JVMS ยง6.5.ishl/lshl etc -- not two
	// want-typed operands like the other binary arithmetic ops.
	if isShift(op) {
		amt, err := f.Pop()
		if err != nil {
			return err
		}
		if amt.Kind != vtype.Integer {
			return fmt.Errorf("%s: shift amount must be int, got %s", opcode.Name(op), amt)
		}
		v, err := pop()
		if err != nil {
			return err
		}
		if v.Kind != want.Kind {
			return fmt.Errorf("%s: expected %s, got %s", opcode.Name(op), want, v)
		}
		return push(want)
	}

	b, err := pop()
	if err != nil {
		return err
	}
	a, err := pop()
	if err != nil {
		return err
	}
	if a.Kind != want.Kind || b.Kind != want.Kind {
		return fmt.Errorf("%s: expected two %s operands, got %s and %s", opcode.Name(op), want, a, b)
	}
	return push(want)
}

func isConversion(op opcode.Opcode) bool {
	switch op {
	case opcode.I2l, opcode.I2f, opcode.I2d, opcode.L2i, opcode.L2f, opcode.L2d,
		opcode.F2i, opcode.F2l, opcode.F2d, opcode.D2i, opcode.D2l, opcode.D2f,
		opcode.I2b, opcode.I2c, opcode.I2s:
		return true
	}
	return false
}

func conversionTypes(op opcode.Opcode) (from, to vtype.Type) {
	switch op {
	case opcode.I2l:
		return vtype.IntegerType(), vtype.LongType()
	case opcode.I2f:
		return vtype.IntegerType(), vtype.FloatType()
	case opcode.I2d:
		return vtype.IntegerType(), vtype.DoubleType()
	case opcode.L2i:
		return vtype.LongType(), vtype.IntegerType()
	case opcode.L2f:
		return vtype.LongType(), vtype.FloatType()
	case opcode.L2d:
		return vtype.LongType(), vtype.DoubleType()
	case opcode.F2i:
		return vtype.FloatType(), vtype.IntegerType()
	case opcode.F2l:
		return vtype.FloatType(), vtype.LongType()
	case opcode.F2d:
		return vtype.FloatType(), vtype.DoubleType()
	case opcode.D2i:
		return vtype.DoubleType(), vtype.IntegerType()
	case opcode.D2l:
		return vtype.DoubleType(), vtype.LongType()
	case opcode.D2f:
		return vtype.DoubleType(), vtype.FloatType()
	case opcode.I2b, opcode.I2c, opcode.I2s:
		return vtype.IntegerType(), vtype.IntegerType()
	}
	return vtype.TopType(), vtype.TopType()
}

func stepConversion(op opcode.Opcode, f *vframe.Frame) error {
	from, to := conversionTypes(op)
	var v vtype.Type
	var err error
	if from.IsCategory2() {
		v, err = f.PopCategory2()
	} else {
		v, err = f.Pop()
	}
	if err != nil {
		return err
	}
	if v.Kind != from.Kind {
		return fmt.Errorf("%s: expected %s, got %s", opcode.Name(op), from, v)
	}
	if to.IsCategory2() {
		return f.PushCategory2(to)
	}
	return f.Push(to)
}

func isComparison(op opcode.Opcode) bool {
	switch op {
	case opcode.Lcmp, opcode.Fcmpl, opcode.Fcmpg, opcode.Dcmpl, opcode.Dcmpg:
		return true
	}
	return false
}

func stepComparison(op opcode.Opcode, f *vframe.Frame) error {
	var want vtype.Type
	var pop func() (vtype.Type, error)
	switch op {
	case opcode.Lcmp:
		want, pop = vtype.LongType(), f.PopCategory2
	case opcode.Fcmpl, opcode.Fcmpg:
		want, pop = vtype.FloatType(), f.Pop
	case opcode.Dcmpl, opcode.Dcmpg:
		want, pop = vtype.DoubleType(), f.PopCategory2
	}
	b, err := pop()
	if err != nil {
		return err
	}
	a, err := pop()
	if err != nil {
		return err
	}
	if a.Kind != want.Kind || b.Kind != want.Kind {
		return fmt.Errorf("%s: expected two %s operands", opcode.Name(op), want)
	}
	return f.Push(vtype.IntegerType())
}

// stepConditionalBranch pops the operands a conditional branch consumes.
// Successor computation (where control actually goes) is cfg's job; this
// only validates and pops what the comparison needs.
func stepConditionalBranch(op opcode.Opcode, f *vframe.Frame) error {
	switch op {
	case opcode.Ifeq, opcode.Ifne, opcode.Iflt, opcode.Ifge, opcode.Ifgt, opcode.Ifle:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if v.Kind != vtype.Integer {
			return fmt.Errorf("%s: expected int, got %s", opcode.Name(op), v)
		}
		return nil
	case opcode.IfIcmpeq, opcode.IfIcmpne, opcode.IfIcmplt, opcode.IfIcmpge, opcode.IfIcmpgt, opcode.IfIcmple:
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if a.Kind != vtype.Integer || b.Kind != vtype.Integer {
			return fmt.Errorf("%s: expected two int operands", opcode.Name(op))
		}
		return nil
	case opcode.IfAcmpeq, opcode.IfAcmpne:
		b, err := f.Pop()
		if err != nil {
			return err
		}
		a, err := f.Pop()
		if err != nil {
			return err
		}
		if !isReferenceType(a) || !isReferenceType(b) {
			return fmt.Errorf("%s: expected two reference operands", opcode.Name(op))
		}
		return nil
	case opcode.Ifnull, opcode.Ifnonnull:
		v, err := f.Pop()
		if err != nil {
			return err
		}
		if !isReferenceType(v) {
			return fmt.Errorf("%s: expected reference, got %s", opcode.Name(op), v)
		}
		return nil
	}
	return fmt.Errorf("unreachable conditional branch %s", opcode.Name(op))
}

func isReferenceType(t vtype.Type) bool {
	switch t.Kind {
	case vtype.Object, vtype.Null, vtype.Uninitialized, vtype.UninitializedThis:
		return true
	}
	return false
}

func isArrayLoad(op opcode.Opcode) bool {
	switch op {
	case opcode.Iaload, opcode.Laload, opcode.Faload, opcode.Daload, opcode.Aaload,
		opcode.Baload, opcode.Caload, opcode.Saload:
		return true
	}
	return false
}

func stepArrayLoad(op opcode.Opcode, f *vframe.Frame) error {
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	if idx.Kind != vtype.Integer {
		return fmt.Errorf("%s: array index must be int, got %s", opcode.Name(op), idx)
	}
	arr, err := f.Pop()
	if err != nil {
		return err
	}
	if !isReferenceType(arr) {
		return fmt.Errorf("%s: expected array reference, got %s", opcode.Name(op), arr)
	}
	switch op {
	case opcode.Iaload, opcode.Baload, opcode.Caload, opcode.Saload:
		return f.Push(vtype.IntegerType())
	case opcode.Faload:
		return f.Push(vtype.FloatType())
	case opcode.Laload:
		return f.PushCategory2(vtype.LongType())
	case opcode.Daload:
		return f.PushCategory2(vtype.DoubleType())
	case opcode.Aaload:
		return f.Push(vtype.ObjectType("java/lang/Object"))
	}
	return fmt.Errorf("unreachable array load %s", opcode.Name(op))
}

func isArrayStore(op opcode.Opcode) bool {
	switch op {
	case opcode.Iastore, opcode.Lastore, opcode.Fastore, opcode.Dastore, opcode.Aastore,
		opcode.Bastore, opcode.Castore, opcode.Sastore:
		return true
	}
	return false
}

func stepArrayStore(op opcode.Opcode, f *vframe.Frame) error {
	var value vtype.Type
	var err error
	switch op {
	case opcode.Lastore, opcode.Dastore:
		value, err = f.PopCategory2()
	default:
		value, err = f.Pop()
	}
	if err != nil {
		return err
	}
	switch op {
	case opcode.Iastore, opcode.Bastore, opcode.Castore, opcode.Sastore:
		if value.Kind != vtype.Integer {
			return fmt.Errorf("%s: expected int value, got %s", opcode.Name(op), value)
		}
	case opcode.Fastore:
		if value.Kind != vtype.Float {
			return fmt.Errorf("%s: expected float value, got %s", opcode.Name(op), value)
		}
	case opcode.Lastore:
		if value.Kind != vtype.Long {
			return fmt.Errorf("%s: expected long value, got %s", opcode.Name(op), value)
		}
	case opcode.Dastore:
		if value.Kind != vtype.Double {
			return fmt.Errorf("%s: expected double value, got %s", opcode.Name(op), value)
		}
	case opcode.Aastore:
		if !isReferenceType(value) {
			return fmt.Errorf("%s: expected reference value, got %s", opcode.Name(op), value)
		}
	}
	idx, err := f.Pop()
	if err != nil {
		return err
	}
	if idx.Kind != vtype.Integer {
		return fmt.Errorf("%s: array index must be int, got %s", opcode.Name(op), idx)
	}
	arr, err := f.Pop()
	if err != nil {
		return err
	}
	if !isReferenceType(arr) {
		return fmt.Errorf("%s: expected array reference, got %s", opcode.Name(op), arr)
	}
	return nil
}
