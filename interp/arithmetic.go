package interp

import (
	"fmt"
	"math"

	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/opcode"
)

func isArithmeticOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Iadd, opcode.Ladd, opcode.Fadd, opcode.Dadd,
		opcode.Isub, opcode.Lsub, opcode.Fsub, opcode.Dsub,
		opcode.Imul, opcode.Lmul, opcode.Fmul, opcode.Dmul,
		opcode.Idiv, opcode.Ldiv, opcode.Fdiv, opcode.Ddiv,
		opcode.Irem, opcode.Lrem, opcode.Frem, opcode.Drem,
		opcode.Ineg, opcode.Lneg, opcode.Fneg, opcode.Dneg,
		opcode.Ishl, opcode.Lshl, opcode.Ishr, opcode.Lshr,
		opcode.Iushr, opcode.Lushr,
		opcode.Iand, opcode.Land, opcode.Ior, opcode.Lor, opcode.Ixor, opcode.Lxor:
		return true
	}
	return false
}

// execArithmetic implements the binary/unary numeric opcodes. Integer
// and long division/remainder by zero throw ArithmeticException (JVMS
// ยง6.5.idiv/irem); float/double division by zero instead produces
// IEEE 754 Infinity/NaN and never throws.
func execArithmetic(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	switch ins.Op {
	case opcode.Ineg:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(-v)
	case opcode.Lneg:
		v, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(-v)
	case opcode.Fneg:
		v, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(-v)
	case opcode.Dneg:
		v, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(-v)
	}

	switch ins.Op {
	case opcode.Iadd, opcode.Isub, opcode.Imul, opcode.Idiv, opcode.Irem,
		opcode.Iand, opcode.Ior, opcode.Ixor:
		b, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		a, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		switch ins.Op {
		case opcode.Iadd:
			return contResult, f.Push(a + b)
		case opcode.Isub:
			return contResult, f.Push(a - b)
		case opcode.Imul:
			return contResult, f.Push(a * b)
		case opcode.Idiv:
			if b == 0 {
				return throwResult(excnames.ArithmeticException, "/ by zero"), nil
			}
			return contResult, f.Push(a / b)
		case opcode.Irem:
			if b == 0 {
				return throwResult(excnames.ArithmeticException, "/ by zero"), nil
			}
			return contResult, f.Push(a % b)
		case opcode.Iand:
			return contResult, f.Push(a & b)
		case opcode.Ior:
			return contResult, f.Push(a | b)
		case opcode.Ixor:
			return contResult, f.Push(a ^ b)
		}

	case opcode.Ladd, opcode.Lsub, opcode.Lmul, opcode.Ldiv, opcode.Lrem,
		opcode.Land, opcode.Lor, opcode.Lxor:
		b, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		a, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		switch ins.Op {
		case opcode.Ladd:
			return contResult, f.PushCategory2(a + b)
		case opcode.Lsub:
			return contResult, f.PushCategory2(a - b)
		case opcode.Lmul:
			return contResult, f.PushCategory2(a * b)
		case opcode.Ldiv:
			if b == 0 {
				return throwResult(excnames.ArithmeticException, "/ by zero"), nil
			}
			return contResult, f.PushCategory2(a / b)
		case opcode.Lrem:
			if b == 0 {
				return throwResult(excnames.ArithmeticException, "/ by zero"), nil
			}
			return contResult, f.PushCategory2(a % b)
		case opcode.Land:
			return contResult, f.PushCategory2(a & b)
		case opcode.Lor:
			return contResult, f.PushCategory2(a | b)
		case opcode.Lxor:
			return contResult, f.PushCategory2(a ^ b)
		}

	case opcode.Fadd, opcode.Fsub, opcode.Fmul, opcode.Fdiv, opcode.Frem:
		b, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		a, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		switch ins.Op {
		case opcode.Fadd:
			return contResult, f.Push(a + b)
		case opcode.Fsub:
			return contResult, f.Push(a - b)
		case opcode.Fmul:
			return contResult, f.Push(a * b)
		case opcode.Fdiv:
			return contResult, f.Push(a / b)
		case opcode.Frem:
			return contResult, f.Push(float32(math.Mod(float64(a), float64(b))))
		}

	case opcode.Dadd, opcode.Dsub, opcode.Dmul, opcode.Ddiv, opcode.Drem:
		b, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		a, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		switch ins.Op {
		case opcode.Dadd:
			return contResult, f.PushCategory2(a + b)
		case opcode.Dsub:
			return contResult, f.PushCategory2(a - b)
		case opcode.Dmul:
			return contResult, f.PushCategory2(a * b)
		case opcode.Ddiv:
			return contResult, f.PushCategory2(a / b)
		case opcode.Drem:
			return contResult, f.PushCategory2(math.Mod(a, b))
		}

	case opcode.Ishl, opcode.Ishr, opcode.Iushr:
		shift, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		s := uint(shift) & 0x1F
		switch ins.Op {
		case opcode.Ishl:
			return contResult, f.Push(v << s)
		case opcode.Ishr:
			return contResult, f.Push(v >> s)
		case opcode.Iushr:
			return contResult, f.Push(int32(uint32(v) >> s))
		}

	case opcode.Lshl, opcode.Lshr, opcode.Lushr:
		shift, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		v, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		s := uint(shift) & 0x3F
		switch ins.Op {
		case opcode.Lshl:
			return contResult, f.PushCategory2(v << s)
		case opcode.Lshr:
			return contResult, f.PushCategory2(v >> s)
		case opcode.Lushr:
			return contResult, f.PushCategory2(int64(uint64(v) >> s))
		}
	}
	return result{}, fmt.Errorf("unreachable arithmetic opcode %s", opcode.Name(ins.Op))
}

func popInt(f *frame.Frame) (int32, error) {
	v, err := f.Pop()
	if err != nil {
		return 0, err
	}
	i, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("expected int operand, got %#v", v)
	}
	return i, nil
}

func popLong(f *frame.Frame) (int64, error) {
	v, err := f.PopCategory2()
	if err != nil {
		return 0, err
	}
	i, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("expected long operand, got %#v", v)
	}
	return i, nil
}

func popFloat(f *frame.Frame) (float32, error) {
	v, err := f.Pop()
	if err != nil {
		return 0, err
	}
	fl, ok := v.(float32)
	if !ok {
		return 0, fmt.Errorf("expected float operand, got %#v", v)
	}
	return fl, nil
}

func popDouble(f *frame.Frame) (float64, error) {
	v, err := f.PopCategory2()
	if err != nil {
		return 0, err
	}
	d, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected double operand, got %#v", v)
	}
	return d, nil
}
