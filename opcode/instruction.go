package opcode

// Instruction is a single decoded JVM bytecode instruction (component C1 of
// the design). It is a tagged value: only the fields relevant to Op are
// populated. Offset-carrying instructions exist in two representations,
// distinguished by whose job it is to interpret Offset:
//
//   - byte-relative (wire form): Offset is a signed delta from the start of
//     this instruction's own opcode byte, exactly as stored in a .class file.
//   - instruction-indexed form: Offset is the zero-based index, within this
//     method's instruction sequence, of the target instruction.
//
// ToBytes/FromBytes (codec.go) convert between the two; nothing else in the
// engine needs to know which form it is holding as long as it consistently
// uses one CodeInfo built for that form.
type Instruction struct {
	Op Opcode

	// Offset is the branch/jump target for single-target branch
	// instructions (if*, goto, goto_w, jsr, jsr_w), and — for Tableswitch
	// and Lookupswitch — is unused; those carry Table/Lookup instead.
	Offset int32

	// CPIndex is the constant-pool index operand for ldc/ldc_w/ldc2_w,
	// get*/put*, invoke* (excluding invokedynamic's fixed trailing zero
	// bytes, which are not modeled since they carry no information), new,
	// anewarray, checkcast, instanceof, multianewarray.
	CPIndex uint16

	// LocalIndex is the local-variable slot for *load/*store/ret/iinc.
	LocalIndex int

	// IntImm carries: bipush/sipush's immediate, iinc's const, newarray's
	// array-type code, multianewarray's dimension count, and
	// invokeinterface's argument count.
	IntImm int32

	// Wide is true when a *load/*store/ret/iinc instruction was prefixed
	// by the `wide` opcode, widening its index (and iinc's const) to two
	// bytes.
	Wide bool

	Table  *TableSwitch
	Lookup *LookupSwitch
}

// TableSwitch is the tableswitch instruction's payload. Default, and every
// entry of Offsets, are in the same representation (byte- or
// instruction-relative) as the instruction itself.
type TableSwitch struct {
	Default int32
	Low     int32
	High    int32
	Offsets []int32
}

// LookupSwitch is the lookupswitch instruction's payload.
type LookupSwitch struct {
	Default int32
	Pairs   []LookupPair
}

// LookupPair is one (match, offset) entry of a lookupswitch.
type LookupPair struct {
	Match  int32
	Offset int32
}

// IsBranch reports whether op carries a single Offset target.
func IsBranch(op Opcode) bool {
	switch op {
	case Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle,
		IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne, Goto, Jsr, Ifnull, Ifnonnull, GotoW, JsrW:
		return true
	}
	return false
}

// IsSwitch reports whether op is tableswitch or lookupswitch.
func IsSwitch(op Opcode) bool {
	return op == Tableswitch || op == Lookupswitch
}

// IsReturn reports whether op is one of the return-family instructions or
// athrow -- both end a basic block with no fall-through successor.
func IsReturn(op Opcode) bool {
	switch op {
	case Ireturn, Lreturn, Freturn, Dreturn, Areturn, Return, Athrow:
		return true
	}
	return false
}

// IsUnconditionalBranch reports whether op always transfers control (no
// fall-through successor besides the branch target).
func IsUnconditionalBranch(op Opcode) bool {
	return op == Goto || op == GotoW
}

// IsConditionalBranch reports whether op branches conditionally, falling
// through to the next instruction when the condition doesn't hold.
func IsConditionalBranch(op Opcode) bool {
	return IsBranch(op) && !IsUnconditionalBranch(op) && op != Jsr && op != JsrW
}

// Category2Locals reports whether op reads/writes a two-slot (long/double)
// local variable.
func Category2Locals(op Opcode) bool {
	switch op {
	case Lload, Lload0, Lload1, Lload2, Lload3,
		Dload, Dload0, Dload1, Dload2, Dload3,
		Lstore, Lstore0, Lstore1, Lstore2, Lstore3,
		Dstore, Dstore0, Dstore1, Dstore2, Dstore3:
		return true
	}
	return false
}
