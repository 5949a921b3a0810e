package interp

import (
	"fmt"

	"vjvm/frame"
	"vjvm/opcode"
)

func isCompareOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Lcmp, opcode.Fcmpl, opcode.Fcmpg, opcode.Dcmpl, opcode.Dcmpg:
		return true
	}
	return false
}

// execCompare implements lcmp/fcmpl/fcmpg/dcmpl/dcmpg, each pushing -1,
// 0, or 1 for less-than/equal/greater-than. The fcmpg/dcmpg variants
// push 1 when either operand is NaN, fcmpl/dcmpl push -1 -- the two
// forms exist so a following branch can treat "unordered" as either
// outcome, per JVMS ยง6.5.
func execCompare(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	switch ins.Op {
	case opcode.Lcmp:
		b, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		a, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(compareInt64(a, b))

	case opcode.Fcmpl, opcode.Fcmpg:
		b, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		a, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		if a != a || b != b {
			if ins.Op == opcode.Fcmpg {
				return contResult, f.Push(int32(1))
			}
			return contResult, f.Push(int32(-1))
		}
		return contResult, f.Push(compareFloat64(float64(a), float64(b)))

	case opcode.Dcmpl, opcode.Dcmpg:
		b, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		a, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		if a != a || b != b {
			if ins.Op == opcode.Dcmpg {
				return contResult, f.Push(int32(1))
			}
			return contResult, f.Push(int32(-1))
		}
		return contResult, f.Push(compareFloat64(a, b))
	}
	return result{}, fmt.Errorf("unreachable compare opcode %s", opcode.Name(ins.Op))
}

func compareInt64(a, b int64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int32 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
