// Package cfg computes instruction successors and drives the verifier's
// worklist (component C5): given one instruction, which instructions can
// execute next, plus the exception-table edges and the pending-work
// bitset/stack the dataflow verifier iterates over.
package cfg

import (
	"fmt"

	"vjvm/codeinfo"
	"vjvm/opcode"
	"vjvm/types"
)

// ExceptionTableEntry is one row of a method's exception table: the
// half-open instruction range [StartPC, EndPC) that HandlerPC guards.
// CatchType is the internal class name of the caught throwable, or "" for
// a finally-style catch-all.
type ExceptionTableEntry struct {
	StartPC   int
	EndPC     int
	HandlerPC int
	CatchType string
}

// Successors returns the instruction indices control may flow to directly
// from the instruction at idx (not including exception edges, computed
// separately by ExceptionSuccessors), per the table in spec ยง4.5.
// classVersion gates jsr/jsr_w/ret, which are rejected starting at class
// file major version 51 (Java 7).
func Successors(instructions []opcode.Instruction, ci *codeinfo.CodeInfo, idx int, classVersion types.ClassFileVersion) ([]int, error) {
	if idx < 0 || idx >= len(instructions) {
		return nil, fmt.Errorf("cfg: instruction index %d out of range", idx)
	}
	ins := &instructions[idx]

	if ins.Op == opcode.Jsr || ins.Op == opcode.JsrW || ins.Op == opcode.Ret {
		if classVersion.AtLeast(types.Java7) {
			return nil, fmt.Errorf("cfg: %s not permitted in class file version >= %d", opcode.Name(ins.Op), types.Java7)
		}
	}

	if opcode.IsReturn(ins.Op) {
		return nil, nil
	}

	if opcode.IsUnconditionalBranch(ins.Op) || ins.Op == opcode.Jsr || ins.Op == opcode.JsrW {
		// ins.Offset already carries the absolute target instruction
		// index (opcode.FromBytes resolves it once at decode time),
		// unlike the table/lookupswitch offsets below, which stay
		// relative to their own instruction.
		target := int(ins.Offset)
		if err := validateTarget(ci, target, "branch target"); err != nil {
			return nil, err
		}
		return []int{target}, nil
	}

	if opcode.IsConditionalBranch(ins.Op) {
		target := int(ins.Offset)
		if err := validateTarget(ci, target, "branch target"); err != nil {
			return nil, err
		}
		next, err := fallThrough(ci, idx)
		if err != nil {
			return nil, err
		}
		return []int{target, next}, nil
	}

	if ins.Op == opcode.Tableswitch {
		succs := make([]int, 0, len(ins.Table.Offsets)+1)
		defTarget := idx + int(ins.Table.Default)
		if err := validateTarget(ci, defTarget, "tableswitch default"); err != nil {
			return nil, err
		}
		succs = append(succs, defTarget)
		for _, off := range ins.Table.Offsets {
			t := idx + int(off)
			if err := validateTarget(ci, t, "tableswitch case"); err != nil {
				return nil, err
			}
			succs = append(succs, t)
		}
		return succs, nil
	}

	if ins.Op == opcode.Lookupswitch {
		succs := make([]int, 0, len(ins.Lookup.Pairs)+1)
		defTarget := idx + int(ins.Lookup.Default)
		if err := validateTarget(ci, defTarget, "lookupswitch default"); err != nil {
			return nil, err
		}
		succs = append(succs, defTarget)
		for _, p := range ins.Lookup.Pairs {
			t := idx + int(p.Offset)
			if err := validateTarget(ci, t, "lookupswitch pair"); err != nil {
				return nil, err
			}
			succs = append(succs, t)
		}
		return succs, nil
	}

	next, err := fallThrough(ci, idx)
	if err != nil {
		return nil, err
	}
	return []int{next}, nil
}

func fallThrough(ci *codeinfo.CodeInfo, idx int) (int, error) {
	next := idx + 1
	if next >= ci.NumInstructions() {
		return 0, fmt.Errorf("fall-through past end of code at instruction %d", idx)
	}
	return next, nil
}

func validateTarget(ci *codeinfo.CodeInfo, target int, ctx string) error {
	if target < 0 || target >= ci.NumInstructions() {
		return fmt.Errorf("%s: instruction index %d out of range", ctx, target)
	}
	return nil
}

// ExceptionSuccessors returns, for the instruction at idx, the indices of
// every exception handler whose guarded range [StartPC, EndPC) contains
// idx's byte offset. A CFG walk adds these as extra successors whose
// entry frame has an empty stack with a single throwable reference
// pushed, per spec ยง4.5.
func ExceptionSuccessors(ci *codeinfo.CodeInfo, table []ExceptionTableEntry, idx int) ([]int, error) {
	offset, ok := ci.OffsetAt(idx)
	if !ok {
		return nil, fmt.Errorf("cfg: instruction index %d out of range", idx)
	}
	var handlers []int
	for _, e := range table {
		if offset >= e.StartPC && offset < e.EndPC {
			hIdx, ok := ci.IndexAt(e.HandlerPC)
			if !ok {
				return nil, fmt.Errorf("exception handler_pc %d is not an instruction boundary", e.HandlerPC)
			}
			handlers = append(handlers, hIdx)
		}
	}
	return handlers, nil
}

// Worklist is a set of pending instruction indices with LIFO pop order,
// used to drive the dataflow verifier to a fixed point. add is idempotent
// (adding an already-pending index is a no-op); pop removes and returns
// the most recently added pending index, clearing its membership bit.
type Worklist struct {
	pending []bool
	stack   []int
}

// NewWorklist creates a worklist over n instruction indices, none pending.
func NewWorklist(n int) *Worklist {
	return &Worklist{pending: make([]bool, n)}
}

// Add marks idx pending, pushing it onto the LIFO stack unless it is
// already pending.
func (w *Worklist) Add(idx int) {
	if idx < 0 || idx >= len(w.pending) || w.pending[idx] {
		return
	}
	w.pending[idx] = true
	w.stack = append(w.stack, idx)
}

// Pop removes and returns a pending index, and false if the worklist is
// empty.
func (w *Worklist) Pop() (int, bool) {
	for len(w.stack) > 0 {
		n := len(w.stack) - 1
		idx := w.stack[n]
		w.stack = w.stack[:n]
		if w.pending[idx] {
			w.pending[idx] = false
			return idx, true
		}
	}
	return 0, false
}

// Empty reports whether no indices are pending.
func (w *Worklist) Empty() bool {
	return len(w.stack) == 0
}
