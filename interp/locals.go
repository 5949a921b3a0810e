package interp

import (
	"fmt"

	"vjvm/frame"
	"vjvm/opcode"
)

func isLocalLoadOp(op opcode.Opcode) bool {
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

func isCategory2Load(op opcode.Opcode) bool {
	switch op {
	case opcode.Lload, opcode.Lload0, opcode.Lload1, opcode.Lload2, opcode.Lload3,
		opcode.Dload, opcode.Dload0, opcode.Dload1, opcode.Dload2, opcode.Dload3:
		return true
	}
	return false
}

func isCategory2Store(op opcode.Opcode) bool {
	switch op {
	case opcode.Lstore, opcode.Lstore0, opcode.Lstore1, opcode.Lstore2, opcode.Lstore3,
		opcode.Dstore, opcode.Dstore0, opcode.Dstore1, opcode.Dstore2, opcode.Dstore3:
		return true
	}
	return false
}

func execLocalLoad(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	var idx int
	switch ins.Op {
	case opcode.Iload0, opcode.Lload0, opcode.Fload0, opcode.Dload0, opcode.Aload0:
		idx = 0
	case opcode.Iload1, opcode.Lload1, opcode.Fload1, opcode.Dload1, opcode.Aload1:
		idx = 1
	case opcode.Iload2, opcode.Lload2, opcode.Fload2, opcode.Dload2, opcode.Aload2:
		idx = 2
	case opcode.Iload3, opcode.Lload3, opcode.Fload3, opcode.Dload3, opcode.Aload3:
		idx = 3
	default:
		idx = ins.LocalIndex
	}

	if isCategory2Load(ins.Op) {
		v, err := f.GetLocal(idx)
		if err != nil {
			return result{}, err
		}
		return contResult, f.PushCategory2(v)
	}
	v, err := f.GetLocal(idx)
	if err != nil {
		return result{}, err
	}
	return contResult, f.Push(v)
}

func isLocalStoreOp(op opcode.Opcode) bool {
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

func execLocalStore(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	var idx int
	switch ins.Op {
	case opcode.Istore0, opcode.Lstore0, opcode.Fstore0, opcode.Dstore0, opcode.Astore0:
		idx = 0
	case opcode.Istore1, opcode.Lstore1, opcode.Fstore1, opcode.Dstore1, opcode.Astore1:
		idx = 1
	case opcode.Istore2, opcode.Lstore2, opcode.Fstore2, opcode.Dstore2, opcode.Astore2:
		idx = 2
	case opcode.Istore3, opcode.Lstore3, opcode.Fstore3, opcode.Dstore3, opcode.Astore3:
		idx = 3
	default:
		idx = ins.LocalIndex
	}

	if isCategory2Store(ins.Op) {
		v, err := f.PopCategory2()
		if err != nil {
			return result{}, err
		}
		return contResult, f.SetLocalCategory2(idx, v)
	}
	v, err := f.Pop()
	if err != nil {
		return result{}, err
	}
	return contResult, f.SetLocal(idx, v)
}

func execIinc(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	v, err := f.GetLocal(ins.LocalIndex)
	if err != nil {
		return result{}, err
	}
	i, ok := v.(int32)
	if !ok {
		return result{}, fmt.Errorf("iinc: local %d is not an int", ins.LocalIndex)
	}
	return contResult, f.SetLocal(ins.LocalIndex, i+ins.IntImm)
}

func isStackOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Pop, opcode.Pop2, opcode.Dup, opcode.DupX1, opcode.DupX2,
		opcode.Dup2, opcode.Dup2X1, opcode.Dup2X2, opcode.Swap:
		return true
	}
	return false
}

// execStackOp implements the category-aware stack permutations of JVMS
// ยง6.5 (pop*/dup*/swap), each spelled out explicitly rather than
// generalized -- the same approach verifier/families.go's stepStackOp
// takes, since the category-2-split rule differs per variant.
func execStackOp(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	switch ins.Op {
	case opcode.Pop:
		_, err := f.Pop()
		return contResult, err
	case opcode.Pop2:
		if _, err := f.Pop(); err != nil {
			return result{}, err
		}
		_, err := f.Pop()
		return contResult, err
	case opcode.Dup:
		v, err := f.Peek()
		if err != nil {
			return result{}, err
		}
		return contResult, f.Push(v)
	case opcode.DupX1:
		v1, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v2, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if err := f.Push(v1); err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		return contResult, f.Push(v1)
	case opcode.DupX2:
		v1, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v2, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v3, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if err := f.Push(v1); err != nil {
			return result{}, err
		}
		if err := f.Push(v3); err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		return contResult, f.Push(v1)
	case opcode.Dup2:
		v1, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v2, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		if err := f.Push(v1); err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		return contResult, f.Push(v1)
	case opcode.Dup2X1:
		v1, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v2, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v3, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		if err := f.Push(v1); err != nil {
			return result{}, err
		}
		if err := f.Push(v3); err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		return contResult, f.Push(v1)
	case opcode.Dup2X2:
		v1, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v2, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v3, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v4, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		if err := f.Push(v1); err != nil {
			return result{}, err
		}
		if err := f.Push(v4); err != nil {
			return result{}, err
		}
		if err := f.Push(v3); err != nil {
			return result{}, err
		}
		if err := f.Push(v2); err != nil {
			return result{}, err
		}
		return contResult, f.Push(v1)
	case opcode.Swap:
		v1, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		v2, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		if err := f.Push(v1); err != nil {
			return result{}, err
		}
		return contResult, f.Push(v2)
	}
	return result{}, fmt.Errorf("unreachable stack opcode %s", opcode.Name(ins.Op))
}
