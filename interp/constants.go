package interp

import (
	"fmt"

	"vjvm/classfile"
	"vjvm/frame"
	"vjvm/opcode"
)

func isConstantOp(op opcode.Opcode) bool {
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

// execConstant implements the const-pushing family: the dedicated
// iconst_0-style opcodes, bipush/sipush's immediates, and ldc/ldc_w/
// ldc2_w's constant-pool loads. ldc of a live String constant yields a
// native Go string (the engine's runtime representation of
// java/lang/String, per gfunction's intrinsics), not an object.Object.
func execConstant(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	var err error
	switch ins.Op {
	case opcode.AconstNull:
		err = f.Push(nil)
	case opcode.IconstM1:
		err = f.Push(int32(-1))
	case opcode.Iconst0:
		err = f.Push(int32(0))
	case opcode.Iconst1:
		err = f.Push(int32(1))
	case opcode.Iconst2:
		err = f.Push(int32(2))
	case opcode.Iconst3:
		err = f.Push(int32(3))
	case opcode.Iconst4:
		err = f.Push(int32(4))
	case opcode.Iconst5:
		err = f.Push(int32(5))
	case opcode.Lconst0:
		err = f.PushCategory2(int64(0))
	case opcode.Lconst1:
		err = f.PushCategory2(int64(1))
	case opcode.Fconst0:
		err = f.Push(float32(0))
	case opcode.Fconst1:
		err = f.Push(float32(1))
	case opcode.Fconst2:
		err = f.Push(float32(2))
	case opcode.Dconst0:
		err = f.PushCategory2(float64(0))
	case opcode.Dconst1:
		err = f.PushCategory2(float64(1))
	case opcode.Bipush, opcode.Sipush:
		err = f.Push(ins.IntImm)
	case opcode.Ldc, opcode.LdcW:
		return execLdc(f, ins)
	case opcode.Ldc2W:
		return execLdc2W(f, ins)
	default:
		return result{}, fmt.Errorf("unreachable constant opcode %s", opcode.Name(ins.Op))
	}
	return contResult, err
}

func execLdc(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	e, err := f.Class.Pool.Get(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	switch e.Tag {
	case classfile.TagInteger:
		return contResult, f.Push(e.IntVal)
	case classfile.TagFloat:
		return contResult, f.Push(e.FloatVal)
	case classfile.TagString:
		s, err := f.Class.Pool.StringAt(ins.CPIndex)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(s)
	default:
		return result{}, fmt.Errorf("ldc: constant pool entry %d has unsupported tag %d for this engine", ins.CPIndex, e.Tag)
	}
}

func execLdc2W(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	e, err := f.Class.Pool.Get(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	switch e.Tag {
	case classfile.TagLong:
		return contResult, f.PushCategory2(e.LongVal)
	case classfile.TagDouble:
		return contResult, f.PushCategory2(e.DoubleVal)
	default:
		return result{}, fmt.Errorf("ldc2_w: constant pool entry %d is not Long or Double", ins.CPIndex)
	}
}
