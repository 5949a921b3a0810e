package interp

import (
	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
)

func isArrayLoadOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Iaload, opcode.Laload, opcode.Faload, opcode.Daload,
		opcode.Aaload, opcode.Baload, opcode.Caload, opcode.Saload:
		return true
	}
	return false
}

func isArrayStoreOp(op opcode.Opcode) bool {
	switch op {
	case opcode.Iastore, opcode.Lastore, opcode.Fastore, opcode.Dastore,
		opcode.Aastore, opcode.Bastore, opcode.Castore, opcode.Sastore:
		return true
	}
	return false
}

// boundsCheckedArray pops the index then the array reference (wire
// order: arrayref, index are pushed in that order, so index is on top),
// and returns the *object.Array, the in-range index, or a thrown
// NullPointerException/ArrayIndexOutOfBoundsException result in place
// of an error.
func boundsCheckedArray(f *frame.Frame) (*object.Array, int, *result, error) {
	idxVal, err := f.Pop()
	if err != nil {
		return nil, 0, nil, err
	}
	arrVal, err := f.Pop()
	if err != nil {
		return nil, 0, nil, err
	}
	if arrVal == nil {
		r := throwResult(excnames.NullPointerException, "array reference is null")
		return nil, 0, &r, nil
	}
	arr, ok := arrVal.(*object.Array)
	if !ok {
		r := throwResult(excnames.ClassCastException, "operand is not an array")
		return nil, 0, &r, nil
	}
	idx, ok := idxVal.(int32)
	if !ok {
		r := throwResult(excnames.ClassCastException, "array index is not an int")
		return nil, 0, &r, nil
	}
	if idx < 0 || int(idx) >= arr.Length() {
		r := throwResult(excnames.ArrayIndexOutOfBoundsException, "index out of bounds")
		return nil, 0, &r, nil
	}
	return arr, int(idx), nil, nil
}

func execArrayLoad(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	arr, idx, thrown, err := boundsCheckedArray(f)
	if err != nil || thrown != nil {
		if thrown != nil {
			return *thrown, nil
		}
		return result{}, err
	}
	v := arr.Elements[idx]
	switch ins.Op {
	case opcode.Laload, opcode.Daload:
		return contResult, f.PushCategory2(v)
	default:
		return contResult, f.Push(v)
	}
}

func execArrayStore(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	var v interface{}
	var err error
	if ins.Op == opcode.Lastore || ins.Op == opcode.Dastore {
		v, err = f.PopCategory2()
	} else {
		v, err = f.Pop()
	}
	if err != nil {
		return result{}, err
	}

	idxVal, err := f.Pop()
	if err != nil {
		return result{}, err
	}
	arrVal, err := f.Pop()
	if err != nil {
		return result{}, err
	}
	if arrVal == nil {
		return throwResult(excnames.NullPointerException, "array reference is null"), nil
	}
	arr, ok := arrVal.(*object.Array)
	if !ok {
		return throwResult(excnames.ClassCastException, "operand is not an array"), nil
	}
	idx, ok := idxVal.(int32)
	if !ok {
		return throwResult(excnames.ClassCastException, "array index is not an int"), nil
	}
	if idx < 0 || int(idx) >= arr.Length() {
		return throwResult(excnames.ArrayIndexOutOfBoundsException, "index out of bounds"), nil
	}
	arr.Elements[idx] = v
	return contResult, nil
}

func execArraylength(f *frame.Frame) (result, error) {
	v, err := f.Pop()
	if err != nil {
		return result{}, err
	}
	if v == nil {
		return throwResult(excnames.NullPointerException, "array reference is null"), nil
	}
	arr, ok := v.(*object.Array)
	if !ok {
		return throwResult(excnames.ClassCastException, "operand is not an array"), nil
	}
	return contResult, f.Push(int32(arr.Length()))
}
