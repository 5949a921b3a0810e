// Package verifier is the per-opcode dataflow transfer function and
// fixed-point driver (component C6): it proves type-safety of one method
// by repeatedly applying opcode transfer functions over an abstract
// frame, merging at control-flow join points until the worklist empties.
package verifier

import (
	"fmt"

	"vjvm/cfg"
	"vjvm/classfile"
	"vjvm/codeinfo"
	"vjvm/excnames"
	"vjvm/opcode"
	"vjvm/types"
	"vjvm/vframe"
	"vjvm/vtype"
)

// VerifyError wraps any transfer-function or merge failure, so callers
// can surface a single typed java.lang.VerifyError regardless of which
// internal check failed (spec ยง7: "the verifier is total -- it either
// certifies a method or returns a single typed error").
type VerifyError struct {
	Method string
	Index  int
	Err    error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("VerifyError in %s at instruction %d: %v", e.Method, e.Index, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Verify runs the dataflow fixed point over method's instructions,
// building the entry frame at method start from its descriptor (`this`
// for non-static methods, then declared parameters, category-2 types
// taking two slots) and iterating via the C5 worklist until every
// instruction's entry frame stops changing.
func Verify(class *classfile.Class, method *classfile.Method, h vtype.Hierarchy) error {
	if method.IsNative() || method.IsAbstract() {
		return nil // no code to verify
	}
	if err := checkVersionGating(class.Version, method.Instructions); err != nil {
		return &VerifyError{Method: method.Name, Err: err}
	}

	ci, err := codeinfo.Build(method.Instructions)
	if err != nil {
		return &VerifyError{Method: method.Name, Err: err}
	}

	entry, err := methodEntryFrame(class, method)
	if err != nil {
		return &VerifyError{Method: method.Name, Err: err}
	}

	n := len(method.Instructions)
	entries := make([]*vframe.Frame, n)
	visited := make([]bool, n)
	entries[0] = entry

	w := cfg.NewWorklist(n)
	w.Add(0)

	for {
		idx, ok := w.Pop()
		if !ok {
			break
		}
		visited[idx] = true
		exit := entries[idx].Clone()
		if err := step(class, method, idx, exit, h); err != nil {
			return &VerifyError{Method: method.Name, Index: idx, Err: err}
		}

		if err := checkStackMap(method, ci, idx, entries[idx], h); err != nil {
			return &VerifyError{Method: method.Name, Index: idx, Err: err}
		}

		succs, err := cfg.Successors(method.Instructions, ci, idx, class.Version)
		if err != nil {
			return &VerifyError{Method: method.Name, Index: idx, Err: err}
		}
		excSuccs, err := cfg.ExceptionSuccessors(ci, method.ExceptionTable, idx)
		if err != nil {
			return &VerifyError{Method: method.Name, Index: idx, Err: err}
		}

		for _, s := range succs {
			changed, err := mergeInto(entries, s, exit, h)
			if err != nil {
				return &VerifyError{Method: method.Name, Index: idx, Err: err}
			}
			if changed {
				w.Add(s)
			}
		}
		for _, s := range excSuccs {
			handlerFrame := vframe.WithLocals(cloneLocals(exit.Locals), exit.MaxStack)
			_ = handlerFrame.Push(vtype.ObjectType(excnames.Throwable))
			changed, err := mergeInto(entries, s, handlerFrame, h)
			if err != nil {
				return &VerifyError{Method: method.Name, Index: idx, Err: err}
			}
			if changed {
				w.Add(s)
			}
		}
	}

	method.Verified = true
	return nil
}

func cloneLocals(locals []vtype.Type) []vtype.Type {
	out := make([]vtype.Type, len(locals))
	copy(out, locals)
	return out
}

func mergeInto(entries []*vframe.Frame, idx int, exit *vframe.Frame, h vtype.Hierarchy) (bool, error) {
	if entries[idx] == nil {
		entries[idx] = exit.Clone()
		return true, nil
	}
	return entries[idx].Merge(exit, h)
}

func checkVersionGating(version types.ClassFileVersion, instructions []opcode.Instruction) error {
	if !version.AtLeast(types.Java7) {
		return nil
	}
	for _, ins := range instructions {
		if ins.Op == opcode.Jsr || ins.Op == opcode.JsrW || ins.Op == opcode.Ret {
			return fmt.Errorf("%s not permitted in class file version >= %d", opcode.Name(ins.Op), types.Java7)
		}
	}
	return nil
}

func methodEntryFrame(class *classfile.Class, method *classfile.Method) (*vframe.Frame, error) {
	params, _, err := methodDescriptor(method.Descriptor)
	if err != nil {
		return nil, err
	}

	locals := make([]vtype.Type, 0, method.MaxLocals)
	if !method.IsStatic() {
		if method.Name == "<init>" {
			locals = append(locals, vtype.UninitializedThisType())
		} else {
			locals = append(locals, vtype.ObjectType(class.Name))
		}
	}
	for _, p := range params {
		if p.IsCategory2() {
			locals = append(locals, p, vtype.TopType())
		} else {
			locals = append(locals, p)
		}
	}
	for len(locals) < method.MaxLocals {
		locals = append(locals, vtype.TopType())
	}
	if len(locals) > method.MaxLocals {
		return nil, fmt.Errorf("declared max_locals %d too small for %d parameter slots", method.MaxLocals, len(locals))
	}
	return vframe.WithLocals(locals, method.MaxStack), nil
}

// checkStackMap enforces spec ยง4.6's StackMapTable integration: at every
// offset a frame-map attribute declares, the computed frame must be
// assignable to the declared one.
func checkStackMap(method *classfile.Method, ci *codeinfo.CodeInfo, idx int, computed *vframe.Frame, h vtype.Hierarchy) error {
	if len(method.StackMapTable) == 0 {
		return nil
	}
	offset, ok := ci.OffsetAt(idx)
	if !ok {
		return fmt.Errorf("instruction %d has no byte offset", idx)
	}
	for _, smf := range method.StackMapTable {
		if smf.Offset != offset {
			continue
		}
		declared, err := declaredFrame(smf, method.MaxStack)
		if err != nil {
			return err
		}
		if len(computed.Stack) != len(declared.Stack) {
			return fmt.Errorf("stack map at offset %d: stack depth %d does not match declared %d", offset, len(computed.Stack), len(declared.Stack))
		}
		for i := range computed.Stack {
			if !vtype.IsAssignable(declared.Stack[i], computed.Stack[i], h) {
				return fmt.Errorf("stack map at offset %d: stack slot %d type %s not assignable to declared %s", offset, i, computed.Stack[i], declared.Stack[i])
			}
		}
		for i := 0; i < len(declared.Locals) && i < len(computed.Locals); i++ {
			if !vtype.IsAssignable(declared.Locals[i], computed.Locals[i], h) {
				return fmt.Errorf("stack map at offset %d: local %d type %s not assignable to declared %s", offset, i, computed.Locals[i], declared.Locals[i])
			}
		}
		return nil
	}
	return nil
}

func declaredFrame(smf classfile.StackMapFrame, maxStack int) (*vframe.Frame, error) {
	locals := make([]vtype.Type, len(smf.Locals))
	for i, ft := range smf.Locals {
		t, err := frameTypeToVtype(ft)
		if err != nil {
			return nil, err
		}
		locals[i] = t
	}
	f := vframe.WithLocals(locals, maxStack)
	for _, ft := range smf.Stack {
		t, err := frameTypeToVtype(ft)
		if err != nil {
			return nil, err
		}
		if err := f.Push(t); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// verification_type_info tags, JVMS ยง4.7.4.
const (
	itemTop = iota
	itemInteger
	itemFloat
	itemDouble
	itemLong
	itemNull
	itemUninitializedThis
	itemObject
	itemUninitialized
)

func frameTypeToVtype(ft classfile.FrameType) (vtype.Type, error) {
	switch ft.Tag {
	case itemTop:
		return vtype.TopType(), nil
	case itemInteger:
		return vtype.IntegerType(), nil
	case itemFloat:
		return vtype.FloatType(), nil
	case itemLong:
		return vtype.LongType(), nil
	case itemDouble:
		return vtype.DoubleType(), nil
	case itemNull:
		return vtype.NullType(), nil
	case itemUninitializedThis:
		return vtype.UninitializedThisType(), nil
	case itemObject:
		return vtype.ObjectType(ft.ClassName), nil
	case itemUninitialized:
		return vtype.UninitializedType(ft.NewInstrOffset), nil
	default:
		return vtype.Type{}, fmt.Errorf("unknown verification_type_info tag %d", ft.Tag)
	}
}
