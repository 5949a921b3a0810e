package opcode

import (
	"encoding/binary"
	"fmt"
)

// InvalidInstructionOffsetError is returned when a branch or switch target
// does not land on an instruction boundary, per spec ยง4.1/ยง7.
type InvalidInstructionOffsetError struct {
	Target int32
}

func (e InvalidInstructionOffsetError) Error() string {
	return fmt.Sprintf("invalid instruction offset: target %d is not an instruction boundary", e.Target)
}

func fixedWidth(op Opcode) (int, bool) {
	switch op {
	case Nop, AconstNull,
		IconstM1, Iconst0, Iconst1, Iconst2, Iconst3, Iconst4, Iconst5,
		Lconst0, Lconst1, Fconst0, Fconst1, Fconst2, Dconst0, Dconst1,
		Iload0, Iload1, Iload2, Iload3, Lload0, Lload1, Lload2, Lload3,
		Fload0, Fload1, Fload2, Fload3, Dload0, Dload1, Dload2, Dload3,
		Aload0, Aload1, Aload2, Aload3,
		Iaload, Laload, Faload, Daload, Aaload, Baload, Caload, Saload,
		Istore0, Istore1, Istore2, Istore3, Lstore0, Lstore1, Lstore2, Lstore3,
		Fstore0, Fstore1, Fstore2, Fstore3, Dstore0, Dstore1, Dstore2, Dstore3,
		Astore0, Astore1, Astore2, Astore3,
		Iastore, Lastore, Fastore, Dastore, Aastore, Bastore, Castore, Sastore,
		Pop, Pop2, Dup, DupX1, DupX2, Dup2, Dup2X1, Dup2X2, Swap,
		Iadd, Ladd, Fadd, Dadd, Isub, Lsub, Fsub, Dsub,
		Imul, Lmul, Fmul, Dmul, Idiv, Ldiv, Fdiv, Ddiv,
		Irem, Lrem, Frem, Drem, Ineg, Lneg, Fneg, Dneg,
		Ishl, Lshl, Ishr, Lshr, Iushr, Lushr, Iand, Land, Ior, Lor, Ixor, Lxor,
		I2l, I2f, I2d, L2i, L2f, L2d, F2i, F2l, F2d, D2i, D2l, D2f, I2b, I2c, I2s,
		Lcmp, Fcmpl, Fcmpg, Dcmpl, Dcmpg,
		Ireturn, Lreturn, Freturn, Dreturn, Areturn, Return,
		Arraylength, Athrow, Monitorenter, Monitorexit:
		return 1, true
	case Bipush, Ldc, Newarray:
		return 2, true
	case Sipush, LdcW, Ldc2W, Iinc,
		Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle,
		IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne, Goto, Jsr,
		Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic,
		New, Anewarray, Checkcast, Instanceof, Ifnull, Ifnonnull:
		return 3, true
	case Multianewarray:
		return 4, true
	case GotoW, JsrW, Invokeinterface, Invokedynamic:
		return 5, true
	case Iload, Lload, Fload, Dload, Aload,
		Istore, Lstore, Fstore, Dstore, Astore, Ret:
		return 2, true // width when not wide-prefixed; see widthOf
	}
	return 0, false
}

// InstructionWidth returns the on-wire width in bytes of ins, given the
// byte offset at which it starts (needed only for tableswitch/lookupswitch
// padding). Exported for codeinfo, which recomputes the same per-method
// offset table independently of a ToBytes call.
func InstructionWidth(ins *Instruction, bytePos int) (int, error) {
	return widthOf(ins, bytePos)
}

func widthOf(ins *Instruction, bytePos int) (int, error) {
	switch ins.Op {
	case Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore:
		if ins.Wide {
			return 4, nil
		}
		return 2, nil
	case Ret:
		if ins.Wide {
			return 4, nil
		}
		return 2, nil
	case Iinc:
		if ins.Wide {
			return 6, nil
		}
		return 3, nil
	case Tableswitch:
		if ins.Table == nil {
			return 0, fmt.Errorf("tableswitch instruction missing table payload")
		}
		pad := (4 - (bytePos+1)%4) % 4
		return 1 + pad + 12 + 4*len(ins.Table.Offsets), nil
	case Lookupswitch:
		if ins.Lookup == nil {
			return 0, fmt.Errorf("lookupswitch instruction missing table payload")
		}
		pad := (4 - (bytePos+1)%4) % 4
		return 1 + pad + 8 + 8*len(ins.Lookup.Pairs), nil
	}
	if w, ok := fixedWidth(ins.Op); ok {
		return w, nil
	}
	return 0, fmt.Errorf("unknown opcode 0x%02x", byte(ins.Op))
}

// decodeOne reads exactly one instruction (including any wide prefix)
// starting at raw[pos], returning it and the number of bytes consumed. All
// Offset/Table/Lookup targets are stored as absolute byte positions (the
// opcode's own offset plus the wire delta); the caller rewrites them to
// instruction-indexed form in a second pass.
func decodeOne(raw []byte, pos int) (Instruction, int, error) {
	if pos >= len(raw) {
		return Instruction{}, 0, fmt.Errorf("truncated bytecode at offset %d", pos)
	}
	op := Opcode(raw[pos])
	wide := false
	opPos := pos
	if op == Wide {
		if pos+1 >= len(raw) {
			return Instruction{}, 0, fmt.Errorf("truncated wide instruction at offset %d", pos)
		}
		wide = true
		opPos = pos + 1
		op = Opcode(raw[opPos])
	}

	ins := Instruction{Op: op, Wide: wide}

	readU8 := func(at int) (byte, error) {
		if at >= len(raw) {
			return 0, fmt.Errorf("truncated bytecode at offset %d", at)
		}
		return raw[at], nil
	}
	readU16 := func(at int) (uint16, error) {
		if at+1 >= len(raw) {
			return 0, fmt.Errorf("truncated bytecode at offset %d", at)
		}
		return binary.BigEndian.Uint16(raw[at : at+2]), nil
	}
	readI32 := func(at int) (int32, error) {
		if at+3 >= len(raw) {
			return 0, fmt.Errorf("truncated bytecode at offset %d", at)
		}
		return int32(binary.BigEndian.Uint32(raw[at : at+4])), nil
	}

	switch op {
	case Bipush:
		b, err := readU8(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.IntImm = int32(int8(b))
		return ins, opPos + 2 - pos, nil

	case Newarray:
		b, err := readU8(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.IntImm = int32(b)
		return ins, opPos + 2 - pos, nil

	case Ldc:
		b, err := readU8(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.CPIndex = uint16(b)
		return ins, opPos + 2 - pos, nil

	case Sipush:
		v, err := readU16(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.IntImm = int32(int16(v))
		return ins, opPos + 3 - pos, nil

	case LdcW, Ldc2W, Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic,
		New, Anewarray, Checkcast, Instanceof:
		v, err := readU16(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.CPIndex = v
		return ins, opPos + 3 - pos, nil

	case Invokeinterface:
		v, err := readU16(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		count, err := readU8(opPos + 3)
		if err != nil {
			return ins, 0, err
		}
		ins.CPIndex = v
		ins.IntImm = int32(count)
		return ins, opPos + 5 - pos, nil

	case Invokedynamic:
		v, err := readU16(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.CPIndex = v
		return ins, opPos + 5 - pos, nil

	case Multianewarray:
		v, err := readU16(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		dims, err := readU8(opPos + 3)
		if err != nil {
			return ins, 0, err
		}
		ins.CPIndex = v
		ins.IntImm = int32(dims)
		return ins, opPos + 4 - pos, nil

	case Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore, Ret:
		if wide {
			v, err := readU16(opPos + 1)
			if err != nil {
				return ins, 0, err
			}
			ins.LocalIndex = int(v)
			return ins, opPos + 3 - pos, nil
		}
		b, err := readU8(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.LocalIndex = int(b)
		return ins, opPos + 2 - pos, nil

	case Iinc:
		if wide {
			idx, err := readU16(opPos + 1)
			if err != nil {
				return ins, 0, err
			}
			c, err := readU16(opPos + 3)
			if err != nil {
				return ins, 0, err
			}
			ins.LocalIndex = int(idx)
			ins.IntImm = int32(int16(c))
			return ins, opPos + 5 - pos, nil
		}
		idx, err := readU8(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		c, err := readU8(opPos + 2)
		if err != nil {
			return ins, 0, err
		}
		ins.LocalIndex = int(idx)
		ins.IntImm = int32(int8(c))
		return ins, opPos + 3 - pos, nil

	case Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle,
		IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne, Goto, Jsr, Ifnull, Ifnonnull:
		v, err := readU16(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.Offset = int32(opPos) + int32(int16(v))
		return ins, opPos + 3 - pos, nil

	case GotoW, JsrW:
		v, err := readI32(opPos + 1)
		if err != nil {
			return ins, 0, err
		}
		ins.Offset = int32(opPos) + v
		return ins, opPos + 5 - pos, nil

	case Tableswitch:
		cur := opPos + 1
		pad := (4 - cur%4) % 4
		cur += pad
		def, err := readI32(cur)
		if err != nil {
			return ins, 0, err
		}
		low, err := readI32(cur + 4)
		if err != nil {
			return ins, 0, err
		}
		high, err := readI32(cur + 8)
		if err != nil {
			return ins, 0, err
		}
		cur += 12
		n := int(high - low + 1)
		if n < 0 {
			return ins, 0, fmt.Errorf("invalid tableswitch range: low=%d high=%d", low, high)
		}
		offsets := make([]int32, n)
		for i := 0; i < n; i++ {
			v, err := readI32(cur)
			if err != nil {
				return ins, 0, err
			}
			offsets[i] = int32(opPos) + v
			cur += 4
		}
		ins.Table = &TableSwitch{
			Default: int32(opPos) + def,
			Low:     low,
			High:    high,
			Offsets: offsets,
		}
		return ins, cur - pos, nil

	case Lookupswitch:
		cur := opPos + 1
		pad := (4 - cur%4) % 4
		cur += pad
		def, err := readI32(cur)
		if err != nil {
			return ins, 0, err
		}
		npairs, err := readI32(cur + 4)
		if err != nil {
			return ins, 0, err
		}
		cur += 8
		if npairs < 0 {
			return ins, 0, fmt.Errorf("invalid lookupswitch pair count: %d", npairs)
		}
		pairs := make([]LookupPair, npairs)
		for i := int32(0); i < npairs; i++ {
			m, err := readI32(cur)
			if err != nil {
				return ins, 0, err
			}
			o, err := readI32(cur + 4)
			if err != nil {
				return ins, 0, err
			}
			pairs[i] = LookupPair{Match: m, Offset: int32(opPos) + o}
			cur += 8
		}
		ins.Lookup = &LookupSwitch{Default: int32(opPos) + def, Pairs: pairs}
		return ins, cur - pos, nil

	default:
		if _, ok := fixedWidth(op); !ok {
			return ins, 0, fmt.Errorf("unknown opcode 0x%02x at offset %d", byte(op), pos)
		}
		return ins, opPos + 1 - pos, nil
	}
}

// FromBytes decodes a method's raw code array into instruction-indexed
// form: every Instruction.Offset (and TableSwitch/LookupSwitch targets) is
// rewritten from a wire byte-relative delta into the representation
// described on Instruction -- simple branches carry the absolute target
// instruction index, switches carry an index delta relative to their own
// position, per spec ยง4.1.
func FromBytes(raw []byte) ([]Instruction, error) {
	var instructions []Instruction
	byteToIndex := map[int]int{}
	pos := 0
	for pos < len(raw) {
		ins, n, err := decodeOne(raw, pos)
		if err != nil {
			return nil, err
		}
		byteToIndex[pos] = len(instructions)
		instructions = append(instructions, ins)
		pos += n
	}

	for i := range instructions {
		ins := &instructions[i]
		switch {
		case IsBranch(ins.Op):
			target, ok := byteToIndex[int(ins.Offset)]
			if !ok {
				return nil, InvalidInstructionOffsetError{Target: ins.Offset}
			}
			ins.Offset = int32(target)
		case ins.Op == Tableswitch:
			def, ok := byteToIndex[int(ins.Table.Default)]
			if !ok {
				return nil, InvalidInstructionOffsetError{Target: ins.Table.Default}
			}
			ins.Table.Default = int32(def) - int32(i)
			for j, off := range ins.Table.Offsets {
				t, ok := byteToIndex[int(off)]
				if !ok {
					return nil, InvalidInstructionOffsetError{Target: off}
				}
				ins.Table.Offsets[j] = int32(t) - int32(i)
			}
		case ins.Op == Lookupswitch:
			def, ok := byteToIndex[int(ins.Lookup.Default)]
			if !ok {
				return nil, InvalidInstructionOffsetError{Target: ins.Lookup.Default}
			}
			ins.Lookup.Default = int32(def) - int32(i)
			for j, p := range ins.Lookup.Pairs {
				t, ok := byteToIndex[int(p.Offset)]
				if !ok {
					return nil, InvalidInstructionOffsetError{Target: p.Offset}
				}
				ins.Lookup.Pairs[j].Offset = int32(t) - int32(i)
			}
		}
	}
	return instructions, nil
}

// ToBytes encodes instruction-indexed form back into the JVM wire format.
// Pass 1 computes each instruction's byte position (needed for
// tableswitch/lookupswitch padding and for rewriting offsets); pass 2
// rewrites offsets to byte-relative deltas and serializes.
func ToBytes(instructions []Instruction) ([]byte, error) {
	indexToByte := make([]int, len(instructions))
	pos := 0
	for i := range instructions {
		indexToByte[i] = pos
		w, err := widthOf(&instructions[i], pos)
		if err != nil {
			return nil, err
		}
		pos += w
	}

	out := make([]byte, 0, pos)
	for i := range instructions {
		ins := instructions[i]
		bytePos := indexToByte[i]

		switch {
		case IsBranch(ins.Op):
			if int(ins.Offset) < 0 || int(ins.Offset) >= len(indexToByte) {
				return nil, InvalidInstructionOffsetError{Target: ins.Offset}
			}
			ins.Offset = int32(indexToByte[ins.Offset]) - int32(bytePos)
		case ins.Op == Tableswitch:
			t := *ins.Table
			t.Offsets = append([]int32(nil), ins.Table.Offsets...)
			defIdx := i + int(t.Default)
			if defIdx < 0 || defIdx >= len(indexToByte) {
				return nil, InvalidInstructionOffsetError{Target: t.Default}
			}
			t.Default = int32(indexToByte[defIdx]) - int32(bytePos)
			for j, off := range t.Offsets {
				tgt := i + int(off)
				if tgt < 0 || tgt >= len(indexToByte) {
					return nil, InvalidInstructionOffsetError{Target: off}
				}
				t.Offsets[j] = int32(indexToByte[tgt]) - int32(bytePos)
			}
			ins.Table = &t
		case ins.Op == Lookupswitch:
			l := *ins.Lookup
			l.Pairs = append([]LookupPair(nil), ins.Lookup.Pairs...)
			defIdx := i + int(l.Default)
			if defIdx < 0 || defIdx >= len(indexToByte) {
				return nil, InvalidInstructionOffsetError{Target: l.Default}
			}
			l.Default = int32(indexToByte[defIdx]) - int32(bytePos)
			for j, p := range l.Pairs {
				tgt := i + int(p.Offset)
				if tgt < 0 || tgt >= len(indexToByte) {
					return nil, InvalidInstructionOffsetError{Target: p.Offset}
				}
				l.Pairs[j].Offset = int32(indexToByte[tgt]) - int32(bytePos)
			}
			ins.Lookup = &l
		}

		encoded, err := encodeOne(&ins, bytePos)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return out, nil
}

func encodeOne(ins *Instruction, bytePos int) ([]byte, error) {
	var buf []byte
	putU16 := func(v uint16) {
		buf = append(buf, byte(v>>8), byte(v))
	}
	putI32 := func(v int32) {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		buf = append(buf, b[:]...)
	}

	if ins.Wide {
		buf = append(buf, byte(Wide))
	}
	buf = append(buf, byte(ins.Op))

	switch ins.Op {
	case Bipush:
		buf = append(buf, byte(int8(ins.IntImm)))
	case Newarray:
		buf = append(buf, byte(ins.IntImm))
	case Ldc:
		buf = append(buf, byte(ins.CPIndex))
	case Sipush:
		putU16(uint16(int16(ins.IntImm)))
	case LdcW, Ldc2W, Getstatic, Putstatic, Getfield, Putfield,
		Invokevirtual, Invokespecial, Invokestatic,
		New, Anewarray, Checkcast, Instanceof:
		putU16(ins.CPIndex)
	case Invokeinterface:
		putU16(ins.CPIndex)
		buf = append(buf, byte(ins.IntImm), 0)
	case Invokedynamic:
		putU16(ins.CPIndex)
		buf = append(buf, 0, 0)
	case Multianewarray:
		putU16(ins.CPIndex)
		buf = append(buf, byte(ins.IntImm))
	case Iload, Lload, Fload, Dload, Aload, Istore, Lstore, Fstore, Dstore, Astore, Ret:
		if ins.Wide {
			putU16(uint16(ins.LocalIndex))
		} else {
			buf = append(buf, byte(ins.LocalIndex))
		}
	case Iinc:
		if ins.Wide {
			putU16(uint16(ins.LocalIndex))
			putU16(uint16(int16(ins.IntImm)))
		} else {
			buf = append(buf, byte(ins.LocalIndex), byte(int8(ins.IntImm)))
		}
	case Ifeq, Ifne, Iflt, Ifge, Ifgt, Ifle,
		IfIcmpeq, IfIcmpne, IfIcmplt, IfIcmpge, IfIcmpgt, IfIcmple,
		IfAcmpeq, IfAcmpne, Goto, Jsr, Ifnull, Ifnonnull:
		putU16(uint16(int16(ins.Offset)))
	case GotoW, JsrW:
		putI32(ins.Offset)
	case Tableswitch:
		opEnd := bytePos + 1
		pad := (4 - opEnd%4) % 4
		for i := 0; i < pad; i++ {
			buf = append(buf, 0)
		}
		putI32(ins.Table.Default)
		putI32(ins.Table.Low)
		putI32(ins.Table.High)
		for _, o := range ins.Table.Offsets {
			putI32(o)
		}
	case Lookupswitch:
		opEnd := bytePos + 1
		pad := (4 - opEnd%4) % 4
		for i := 0; i < pad; i++ {
			buf = append(buf, 0)
		}
		putI32(ins.Lookup.Default)
		putI32(int32(len(ins.Lookup.Pairs)))
		for _, p := range ins.Lookup.Pairs {
			putI32(p.Match)
			putI32(p.Offset)
		}
	default:
		if _, ok := fixedWidth(ins.Op); !ok {
			return nil, fmt.Errorf("unknown opcode 0x%02x", byte(ins.Op))
		}
	}
	return buf, nil
}
