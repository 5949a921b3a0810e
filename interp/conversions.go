package interp

import (
	"fmt"

	"vjvm/frame"
	"vjvm/opcode"
)

func isConversionOp(op opcode.Opcode) bool {
	switch op {
	case opcode.I2l, opcode.I2f, opcode.I2d,
		opcode.L2i, opcode.L2f, opcode.L2d,
		opcode.F2i, opcode.F2l, opcode.F2d,
		opcode.D2i, opcode.D2l, opcode.D2f,
		opcode.I2b, opcode.I2c, opcode.I2s:
		return true
	}
	return false
}

// execConversion implements the numeric widening/narrowing opcodes.
// Narrowing a float/double to an integral type that cannot represent it
// (NaN, +-Inf, out of range) saturates per JVMS ยง6.5.f2i and friends,
// which is exactly what Go's float-to-int conversion already does not
// do -- so NaN/out-of-range values are special-cased explicitly.
func execConversion(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	switch ins.Op {
	case opcode.I2l:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(int64(v))
	case opcode.I2f:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(float32(v))
	case opcode.I2d:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(float64(v))
	case opcode.I2b:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(int32(int8(v)))
	case opcode.I2c:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(int32(uint16(v)))
	case opcode.I2s:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(int32(int16(v)))

	case opcode.L2i:
		v, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(int32(v))
	case opcode.L2f:
		v, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(float32(v))
	case opcode.L2d:
		v, err := popLong(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(float64(v))

	case opcode.F2i:
		v, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(saturateToInt32(float64(v)))
	case opcode.F2l:
		v, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(saturateToInt64(float64(v)))
	case opcode.F2d:
		v, err := popFloat(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(float64(v))

	case opcode.D2i:
		v, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(saturateToInt32(v))
	case opcode.D2l:
		v, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(saturateToInt64(v))
	case opcode.D2f:
		v, err := popDouble(f)
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(float32(v))
	}
	return result{}, fmt.Errorf("unreachable conversion opcode %s", opcode.Name(ins.Op))
}

func saturateToInt32(v float64) int32 {
	if v != v { // NaN
		return 0
	}
	if v >= float64(1<<31) {
		return 1<<31 - 1
	}
	if v <= -float64(1<<31) {
		return -(1 << 31)
	}
	return int32(v)
}

func saturateToInt64(v float64) int64 {
	if v != v { // NaN
		return 0
	}
	const maxI64 = float64(1<<63 - 1)
	const minI64 = -float64(1 << 63)
	if v >= maxI64 {
		return 1<<63 - 1
	}
	if v <= minI64 {
		return -(1 << 63)
	}
	return int64(v)
}
