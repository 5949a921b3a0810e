package interp

import (
	"fmt"

	"vjvm/codeinfo"
	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
)

// execBranch implements every control-transfer opcode except return/
// athrow: goto/goto_w, jsr/jsr_w/ret, tableswitch/lookupswitch, and the
// conditional if* family. Simple-branch Instruction.Offset is already
// the absolute target instruction index (opcode.FromBytes resolves it
// once at decode time); tableswitch/lookupswitch Default/Offsets stay
// relative to their own instruction index, so those add idx explicitly.
func execBranch(f *frame.Frame, ci *codeinfo.CodeInfo, idx int, ins *opcode.Instruction) (result, error) {
	switch ins.Op {
	case opcode.Goto, opcode.GotoW:
		return jumpToIndex(f, ci, int(ins.Offset))

	case opcode.Jsr, opcode.JsrW:
		next := idx + 1
		retOff, ok := ci.OffsetAt(next)
		if !ok {
			return result{}, fmt.Errorf("jsr: no instruction follows the subroutine call")
		}
		if err := f.Push(retOff); err != nil {
			return result{}, err
		}
		return jumpToIndex(f, ci, int(ins.Offset))

	case opcode.Ret:
		v, err := f.GetLocal(ins.LocalIndex)
		if err != nil {
			return result{}, err
		}
		retOff, ok := v.(int)
		if !ok {
			return result{}, fmt.Errorf("ret: local %d does not hold a returnAddress", ins.LocalIndex)
		}
		if !ci.IsValidOffset(retOff) {
			return result{}, fmt.Errorf("ret: returnAddress %d is not an instruction boundary", retOff)
		}
		f.PC = retOff
		return result{kind: outcomeJumped}, nil

	case opcode.Tableswitch:
		return execTableswitch(f, ci, idx, ins)

	case opcode.Lookupswitch:
		return execLookupswitch(f, ci, idx, ins)
	}

	return execConditionalBranch(f, ci, idx, ins)
}

func jumpToIndex(f *frame.Frame, ci *codeinfo.CodeInfo, targetIdx int) (result, error) {
	off, ok := ci.OffsetAt(targetIdx)
	if !ok {
		return result{}, fmt.Errorf("branch target instruction %d out of range", targetIdx)
	}
	f.PC = off
	return result{kind: outcomeJumped}, nil
}

func execTableswitch(f *frame.Frame, ci *codeinfo.CodeInfo, idx int, ins *opcode.Instruction) (result, error) {
	v, err := popInt(f)
	if err != nil {
		return result{}, err
	}
	if v < ins.Table.Low || v > ins.Table.High {
		return jumpToIndex(f, ci, idx+int(ins.Table.Default))
	}
	return jumpToIndex(f, ci, idx+int(ins.Table.Offsets[v-ins.Table.Low]))
}

func execLookupswitch(f *frame.Frame, ci *codeinfo.CodeInfo, idx int, ins *opcode.Instruction) (result, error) {
	v, err := popInt(f)
	if err != nil {
		return result{}, err
	}
	for _, p := range ins.Lookup.Pairs {
		if p.Match == v {
			return jumpToIndex(f, ci, idx+int(p.Offset))
		}
	}
	return jumpToIndex(f, ci, idx+int(ins.Lookup.Default))
}

// execConditionalBranch implements ifeq..ifle (compare int to zero),
// if_icmp* (compare two ints), if_acmp* (reference identity), and
// ifnull/ifnonnull, falling through when the condition does not hold.
func execConditionalBranch(f *frame.Frame, ci *codeinfo.CodeInfo, idx int, ins *opcode.Instruction) (result, error) {
	var taken bool
	switch ins.Op {
	case opcode.Ifeq, opcode.Ifne, opcode.Iflt, opcode.Ifge, opcode.Ifgt, opcode.Ifle:
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		taken = intBranchTaken(ins.Op, v, 0)

	case opcode.IfIcmpeq, opcode.IfIcmpne, opcode.IfIcmplt, opcode.IfIcmpge, opcode.IfIcmpgt, opcode.IfIcmple:
		b, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		a, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		taken = intBranchTaken(icmpToIf(ins.Op), a, b)

	case opcode.IfAcmpeq, opcode.IfAcmpne:
		b, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		a, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		eq := a == b
		taken = eq == (ins.Op == opcode.IfAcmpeq)

	case opcode.Ifnull, opcode.Ifnonnull:
		v, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		taken = (v == nil) == (ins.Op == opcode.Ifnull)

	default:
		return result{}, fmt.Errorf("unreachable conditional branch opcode %s", opcode.Name(ins.Op))
	}

	if !taken {
		return contResult, nil
	}
	return jumpToIndex(f, ci, int(ins.Offset))
}

// icmpToIf maps an if_icmp* opcode onto the equivalent ifxx comparison
// against zero, so both families share one comparison table.
func icmpToIf(op opcode.Opcode) opcode.Opcode {
	switch op {
	case opcode.IfIcmpeq:
		return opcode.Ifeq
	case opcode.IfIcmpne:
		return opcode.Ifne
	case opcode.IfIcmplt:
		return opcode.Iflt
	case opcode.IfIcmpge:
		return opcode.Ifge
	case opcode.IfIcmpgt:
		return opcode.Ifgt
	case opcode.IfIcmple:
		return opcode.Ifle
	}
	return op
}

func intBranchTaken(ifOp opcode.Opcode, a, b int32) bool {
	switch ifOp {
	case opcode.Ifeq:
		return a == b
	case opcode.Ifne:
		return a != b
	case opcode.Iflt:
		return a < b
	case opcode.Ifge:
		return a >= b
	case opcode.Ifgt:
		return a > b
	case opcode.Ifle:
		return a <= b
	}
	return false
}

func execReturn(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	switch ins.Op {
	case opcode.Return:
		return voidReturn, nil
	case opcode.Ireturn, opcode.Freturn, opcode.Areturn:
		v, err := f.Pop()
		if err != nil {
			return result{}, err
		}
		return returnResult(v), nil
	case opcode.Lreturn, opcode.Dreturn:
		v, err := f.PopCategory2()
		if err != nil {
			return result{}, err
		}
		return returnResult(v), nil
	}
	return result{}, fmt.Errorf("unreachable return opcode %s", opcode.Name(ins.Op))
}

func execThrow(f *frame.Frame) (result, error) {
	v, err := f.Pop()
	if err != nil {
		return result{}, err
	}
	if v == nil {
		return throwResult(excnames.NullPointerException, "athrow: null"), nil
	}
	obj, ok := v.(*object.Object)
	if !ok {
		return result{}, fmt.Errorf("athrow: operand is not a throwable object")
	}
	return result{kind: outcomeThrew, thrown: obj}, nil
}
