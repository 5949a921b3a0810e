package interp

import (
	"fmt"
	"strings"

	"vjvm/types"
)

// splitMethodDescriptor parses a method descriptor into its parameter
// descriptors, in declared order, and its return descriptor ("" for
// void). Mirrors verifier/descriptor.go's methodDescriptor, but yields
// plain descriptor strings rather than vtype.Type -- the interpreter
// only needs this to know how many stack slots to pop per argument and
// whether a slot is category-2, not to typecheck them (the verifier
// already did that before this method is ever run).
func splitMethodDescriptor(descriptor string) (params []string, ret string, err error) {
	open := strings.IndexByte(descriptor, '(')
	close_ := strings.IndexByte(descriptor, ')')
	if open != 0 || close_ < 0 {
		return nil, "", fmt.Errorf("malformed method descriptor %q", descriptor)
	}
	body := descriptor[1:close_]
	returnDesc := descriptor[close_+1:]

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
			params = append(params, string(body[i]))
		case 'L':
			j := strings.IndexByte(body[i:], ';')
			if j < 0 {
				return nil, "", fmt.Errorf("malformed method descriptor %q", descriptor)
			}
			params = append(params, body[i:i+j+1])
			i += j
		case '[':
			j := i
			for j < len(body) && body[j] == '[' {
				j++
			}
			if j >= len(body) {
				return nil, "", fmt.Errorf("malformed method descriptor %q", descriptor)
			}
			if body[j] == 'L' {
				k := strings.IndexByte(body[j:], ';')
				if k < 0 {
					return nil, "", fmt.Errorf("malformed method descriptor %q", descriptor)
				}
				params = append(params, body[i:j+k+1])
				i = j + k
			} else {
				params = append(params, body[i:j+1])
				i = j
			}
		default:
			return nil, "", fmt.Errorf("malformed method descriptor %q", descriptor)
		}
	}

	if returnDesc == types.Void {
		return params, "", nil
	}
	return params, returnDesc, nil
}
