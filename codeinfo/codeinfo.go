// Package codeinfo precomputes the instruction-boundary metadata every
// other verifier/interpreter component relies on for O(1) offset
// validation (component C2 of the design).
package codeinfo

import (
	"fmt"

	"vjvm/opcode"
)

// CodeInfo is built once per method, before verification runs. It answers
// "is this byte offset the start of an instruction" and converts between
// byte offsets and instruction indices in O(1), so every other verifier
// routine rejects malformed jump targets by consulting one place rather
// than re-deriving instruction boundaries.
type CodeInfo struct {
	length       int
	offsetToIdx  map[int]int
	idxToOffset  []int
}

// Build walks instructions (already in instruction-indexed form, as
// produced by opcode.FromBytes) and records each one's starting byte
// offset, recomputing widths the same way opcode.ToBytes does.
func Build(instructions []opcode.Instruction) (*CodeInfo, error) {
	ci := &CodeInfo{
		offsetToIdx: make(map[int]int, len(instructions)),
		idxToOffset: make([]int, len(instructions)),
	}

	pos := 0
	for i := range instructions {
		ci.idxToOffset[i] = pos
		ci.offsetToIdx[pos] = i
		w, err := opcode.InstructionWidth(&instructions[i], pos)
		if err != nil {
			return nil, fmt.Errorf("codeinfo: instruction %d: %w", i, err)
		}
		pos += w
	}
	ci.length = pos
	return ci, nil
}

// Length returns the method's total bytecode length in bytes.
func (ci *CodeInfo) Length() int {
	return ci.length
}

// NumInstructions returns the number of instructions in the method.
func (ci *CodeInfo) NumInstructions() int {
	return len(ci.idxToOffset)
}

// IsValidOffset reports whether o is the starting byte offset of some
// instruction.
func (ci *CodeInfo) IsValidOffset(o int) bool {
	_, ok := ci.offsetToIdx[o]
	return ok
}

// OffsetAt returns the byte offset of the instruction at index, and false
// if index is out of range.
func (ci *CodeInfo) OffsetAt(index int) (int, bool) {
	if index < 0 || index >= len(ci.idxToOffset) {
		return 0, false
	}
	return ci.idxToOffset[index], true
}

// IndexAt returns the instruction index starting at byte offset o, and
// false if o is not an instruction boundary.
func (ci *CodeInfo) IndexAt(o int) (int, bool) {
	idx, ok := ci.offsetToIdx[o]
	return idx, ok
}

// ValidateOffset checks that o is both in bounds and an instruction
// boundary, returning a human-readable error naming ctx (e.g. a method
// name or "exception handler_pc") on failure.
func (ci *CodeInfo) ValidateOffset(o int, ctx string) error {
	if o < 0 || o >= ci.length {
		return fmt.Errorf("%s: offset %d out of bounds [0,%d)", ctx, o, ci.length)
	}
	if !ci.IsValidOffset(o) {
		return fmt.Errorf("%s: offset %d does not start an instruction", ctx, o)
	}
	return nil
}
