package verifier

import (
	"fmt"
	"strings"

	"vjvm/types"
	"vjvm/vtype"
)

// fieldType parses a single field descriptor ("I", "Ljava/lang/String;",
// "[I", ...) into a verification type. Arrays are modeled as Object
// references named by their full array descriptor, e.g. "[I" or
// "[Ljava/lang/String;" -- the same representation used for array class
// names throughout the engine (spec's `[java/lang/String` naming, kept
// in descriptor form here since the verifier never needs to distinguish
// array-of-int from array-of-object beyond assignability, which
// classloader's Hierarchy implementation resolves).
func fieldType(descriptor string) (vtype.Type, error) {
	if descriptor == "" {
		return vtype.Type{}, fmt.Errorf("empty descriptor")
	}
	switch descriptor[0] {
	case 'B', 'C', 'I', 'S', 'Z':
		return vtype.IntegerType(), nil
	case 'F':
		return vtype.FloatType(), nil
	case 'J':
		return vtype.LongType(), nil
	case 'D':
		return vtype.DoubleType(), nil
	case 'L':
		if !strings.HasSuffix(descriptor, ";") {
			return vtype.Type{}, fmt.Errorf("malformed object descriptor %q", descriptor)
		}
		return vtype.ObjectType(descriptor[1 : len(descriptor)-1]), nil
	case '[':
		return vtype.ObjectType(descriptor), nil
	default:
		return vtype.Type{}, fmt.Errorf("unknown descriptor %q", descriptor)
	}
}

// methodDescriptor splits a method descriptor into its parameter types
// (in declared order) and return type ("" for void).
func methodDescriptor(descriptor string) (params []vtype.Type, ret vtype.Type, err error) {
	open := strings.IndexByte(descriptor, '(')
	parenClose := strings.IndexByte(descriptor, ')')
	if open != 0 || parenClose < 0 {
		return nil, vtype.Type{}, fmt.Errorf("malformed method descriptor %q", descriptor)
	}
	body := descriptor[1:parenClose]
	returnDesc := descriptor[parenClose+1:]

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			t, _ := fieldType(string(body[i]))
			params = append(params, t)
		case 'L':
			j := strings.IndexByte(body[i:], ';')
			if j < 0 {
				return nil, vtype.Type{}, fmt.Errorf("malformed method descriptor %q", descriptor)
			}
			t, _ := fieldType(body[i : i+j+1])
			params = append(params, t)
			i += j
		case '[':
			j := i
			for j < len(body) && body[j] == '[' {
				j++
			}
			if j >= len(body) {
				return nil, vtype.Type{}, fmt.Errorf("malformed method descriptor %q", descriptor)
			}
			if body[j] == 'L' {
				k := strings.IndexByte(body[j:], ';')
				if k < 0 {
					return nil, vtype.Type{}, fmt.Errorf("malformed method descriptor %q", descriptor)
				}
				params = append(params, vtype.ObjectType(body[i:j+k+1]))
				i = j + k
			} else {
				params = append(params, vtype.ObjectType(body[i:j+1]))
				i = j
			}
		}
	}

	if returnDesc == types.Void {
		return params, vtype.Type{}, nil
	}
	ret, err = fieldType(returnDesc)
	return params, ret, err
}

func isVoidReturn(descriptor string) bool {
	idx := strings.IndexByte(descriptor, ')')
	return idx >= 0 && descriptor[idx+1:] == types.Void
}
