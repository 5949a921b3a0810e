package interp

import (
	"fmt"

	"vjvm/excnames"
	"vjvm/frame"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
)

// newarrayDescriptor maps the JVMS ยง6.5.newarray atype codes (4..11) to
// this engine's element descriptor letters.
func newarrayDescriptor(atype int32) (string, error) {
	switch atype {
	case 4:
		return "Z", nil
	case 5:
		return "C", nil
	case 6:
		return "F", nil
	case 7:
		return "D", nil
	case 8:
		return "B", nil
	case 9:
		return "S", nil
	case 10:
		return "I", nil
	case 11:
		return "J", nil
	}
	return "", fmt.Errorf("newarray: unknown atype %d", atype)
}

func execNew(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	className, err := f.Class.Pool.ClassNameAt(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	class, err := th.Loader.LoadClass(className)
	if err != nil {
		return errToThrowOrFail(err)
	}
	if err := ensureInitialized(th, class); err != nil {
		return errToThrowOrFail(err)
	}
	fields, err := th.CollectInstanceFields(class)
	if err != nil {
		return errToThrowOrFail(err)
	}
	obj := object.NewObject(className, fields)
	return contResult, f.Push(obj)
}

func execNewarray(f *frame.Frame, ins *opcode.Instruction) (result, error) {
	n, err := popInt(f)
	if err != nil {
		return result{}, err
	}
	if n < 0 {
		return throwResult(excnames.NegativeArraySizeException, fmt.Sprintf("%d", n)), nil
	}
	desc, err := newarrayDescriptor(ins.IntImm)
	if err != nil {
		return result{}, err
	}
	return contResult, f.Push(object.NewArray(desc, int(n)))
}

func execAnewarray(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	n, err := popInt(f)
	if err != nil {
		return result{}, err
	}
	if n < 0 {
		return throwResult(excnames.NegativeArraySizeException, fmt.Sprintf("%d", n)), nil
	}
	componentClass, err := f.Class.Pool.ClassNameAt(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	desc := componentDescriptor(componentClass)
	return contResult, f.Push(object.NewArray(desc, int(n)))
}

// componentDescriptor turns a resolved class name from anewarray/
// multianewarray's constant-pool entry into a field descriptor: an
// already-array name ("[I", "[Ljava/lang/String;") is used verbatim,
// anything else is wrapped as "L<name>;".
func componentDescriptor(className string) string {
	if len(className) > 0 && className[0] == '[' {
		return className
	}
	return "L" + className + ";"
}

func execMultianewarray(th *thread.Thread, f *frame.Frame, ins *opcode.Instruction) (result, error) {
	arrayClassName, err := f.Class.Pool.ClassNameAt(ins.CPIndex)
	if err != nil {
		return result{}, err
	}
	dims := int(ins.IntImm)
	if dims < 1 {
		return result{}, fmt.Errorf("multianewarray: invalid dimension count %d", dims)
	}
	counts := make([]int32, dims)
	for i := dims - 1; i >= 0; i-- {
		v, err := popInt(f)
		if err != nil {
			return result{}, err
		}
		counts[i] = v
	}
	for _, c := range counts {
		if c < 0 {
			return throwResult(excnames.NegativeArraySizeException, fmt.Sprintf("%d", c)), nil
		}
	}
	desc := componentDescriptor(arrayClassName)
	arr, err := buildMultiArray(desc, counts)
	if err != nil {
		return result{}, err
	}
	return contResult, f.Push(arr)
}

// buildMultiArray recursively allocates a dims-dimensional array of the
// given full array descriptor ("[[I" for counts == [2,3], say), one
// *object.Array nested inside another, stripping one leading '[' of
// desc per recursion level.
func buildMultiArray(desc string, counts []int32) (*object.Array, error) {
	if len(desc) == 0 || desc[0] != '[' {
		return nil, fmt.Errorf("multianewarray: descriptor %q is not an array type", desc)
	}
	elementDesc := desc[1:]
	arr := object.NewArray(elementDesc, int(counts[0]))
	if len(counts) == 1 {
		return arr, nil
	}
	for i := range arr.Elements {
		sub, err := buildMultiArray(elementDesc, counts[1:])
		if err != nil {
			return nil, err
		}
		arr.Elements[i] = sub
	}
	return arr, nil
}

