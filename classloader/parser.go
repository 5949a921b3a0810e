package classloader

import (
	"encoding/binary"
	"fmt"
	"math"

	"vjvm/cfg"
	"vjvm/classfile"
	"vjvm/opcode"
	"vjvm/types"
)

const classMagic = 0xCAFEBABE

// reader walks a .class file's bytes sequentially. Mirrors the teacher's
// classloader parse functions (read-and-advance over a byte slice) rather
// than a streaming io.Reader, since the whole file is already in memory
// by the time parsing starts.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) u1() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("unexpected end of class file at byte %d", r.pos)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u2() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, fmt.Errorf("unexpected end of class file at byte %d", r.pos)
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("unexpected end of class file at byte %d", r.pos)
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("unexpected end of class file at byte %d", r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) skip(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("unexpected end of class file at byte %d", r.pos)
	}
	r.pos += n
	return nil
}

// parseClassBytes decodes a .class file into a *classfile.Class with its
// methods' bytecode already converted to instruction-indexed form (via
// opcode.FromBytes) and StackMapTable entries resolved to absolute byte
// offsets. Attribute kinds this engine does not interpret (e.g. Signature,
// LineNumberTable, SourceFile, BootstrapMethods) are skipped by declared
// length rather
// than decoded, per spec ยง1's "class-file binary codec... is just a
// parser" framing -- the codec's job here is producing the §3 data model,
// not replaying every JVMS attribute.
func parseClassBytes(raw []byte) (*classfile.Class, error) {
	r := &reader{buf: raw}

	magic, err := r.u4()
	if err != nil {
		return nil, err
	}
	if magic != classMagic {
		return nil, fmt.Errorf("not a class file: bad magic %#x", magic)
	}

	minor, err := r.u2()
	if err != nil {
		return nil, err
	}
	major, err := r.u2()
	if err != nil {
		return nil, err
	}
	version := types.ClassFileVersion{Major: major, Minor: minor}

	pool, err := parseConstantPool(r)
	if err != nil {
		return nil, err
	}
	if err := pool.Verify(version); err != nil {
		return nil, err
	}

	accessFlags, err := r.u2()
	if err != nil {
		return nil, err
	}
	thisIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	thisName, err := pool.ClassNameAt(thisIdx)
	if err != nil {
		return nil, err
	}
	superIdx, err := r.u2()
	if err != nil {
		return nil, err
	}
	var superName string
	if superIdx != 0 {
		superName, err = pool.ClassNameAt(superIdx)
		if err != nil {
			return nil, err
		}
	}

	interfaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	interfaces := make([]string, interfaceCount)
	for i := range interfaces {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		interfaces[i], err = pool.ClassNameAt(idx)
		if err != nil {
			return nil, err
		}
	}

	fields, err := parseFields(r, pool)
	if err != nil {
		return nil, err
	}
	methods, err := parseMethods(r, pool, version)
	if err != nil {
		return nil, err
	}
	if err := skipAttributes(r); err != nil {
		return nil, err
	}

	return &classfile.Class{
		Name:         thisName,
		Super:        superName,
		Interfaces:   interfaces,
		Version:      version,
		AccessFlags:  accessFlags,
		Pool:         pool,
		Fields:       fields,
		Methods:      methods,
		StaticValues: map[string]interface{}{},
	}, nil
}

func parseConstantPool(r *reader) (*classfile.Pool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	entries := make([]classfile.Entry, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		e := classfile.Entry{Tag: classfile.Tag(tag)}
		switch classfile.Tag(tag) {
		case classfile.TagUtf8:
			n, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(n))
			if err != nil {
				return nil, err
			}
			e.Utf8 = string(b)
		case classfile.TagInteger:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			e.IntVal = int32(v)
		case classfile.TagFloat:
			v, err := r.u4()
			if err != nil {
				return nil, err
			}
			e.FloatVal = math.Float32frombits(v)
		case classfile.TagLong:
			hi, err := r.u4()
			if err != nil {
				return nil, err
			}
			lo, err := r.u4()
			if err != nil {
				return nil, err
			}
			e.LongVal = int64(uint64(hi)<<32 | uint64(lo))
			entries[i] = e
			i++ // Long/Double occupy two pool slots, JVMS ยง4.4.5
			continue
		case classfile.TagDouble:
			hi, err := r.u4()
			if err != nil {
				return nil, err
			}
			lo, err := r.u4()
			if err != nil {
				return nil, err
			}
			e.DoubleVal = math.Float64frombits(uint64(hi)<<32 | uint64(lo))
			entries[i] = e
			i++
			continue
		case classfile.TagClass, classfile.TagMethodType, classfile.TagModule, classfile.TagPackage:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			e.NameIndex = idx
		case classfile.TagString:
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			e.NameIndex = idx
		case classfile.TagFieldRef, classfile.TagMethodRef, classfile.TagInterfaceMethodRef:
			ci, err := r.u2()
			if err != nil {
				return nil, err
			}
			nti, err := r.u2()
			if err != nil {
				return nil, err
			}
			e.ClassIndex, e.NameAndTypeIndex = ci, nti
		case classfile.TagNameAndType:
			ni, err := r.u2()
			if err != nil {
				return nil, err
			}
			di, err := r.u2()
			if err != nil {
				return nil, err
			}
			e.NameIndex, e.DescIndex = ni, di
		case classfile.TagMethodHandle:
			kind, err := r.u1()
			if err != nil {
				return nil, err
			}
			idx, err := r.u2()
			if err != nil {
				return nil, err
			}
			e.RefKind, e.RefIndex = kind, idx
		case classfile.TagDynamic, classfile.TagInvokeDynamic:
			bsmIdx, err := r.u2()
			if err != nil {
				return nil, err
			}
			nti, err := r.u2()
			if err != nil {
				return nil, err
			}
			e.BootstrapMethodAttrIndex, e.NameAndTypeIndex = bsmIdx, nti
		default:
			return nil, fmt.Errorf("constant pool entry %d: unknown tag %d", i, tag)
		}
		entries[i] = e
	}
	return &classfile.Pool{Entries: entries}, nil
}

func parseFields(r *reader, pool *classfile.Pool) ([]*classfile.Field, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	fields := make([]*classfile.Field, count)
	for i := range fields {
		accessFlags, err := r.u2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8At(nameIdx)
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		desc, err := pool.Utf8At(descIdx)
		if err != nil {
			return nil, err
		}
		f := &classfile.Field{AccessFlags: accessFlags, Name: name, Descriptor: desc}

		attrCount, err := r.u2()
		if err != nil {
			return nil, err
		}
		for a := 0; a < int(attrCount); a++ {
			attrName, body, err := readAttribute(r, pool)
			if err != nil {
				return nil, err
			}
			if attrName == "ConstantValue" && len(body) == 2 {
				idx := binary.BigEndian.Uint16(body)
				f.ConstantValue, _ = constantValueAt(pool, idx)
			}
		}
		fields[i] = f
	}
	return fields, nil
}

func constantValueAt(pool *classfile.Pool, idx uint16) (interface{}, error) {
	e, err := pool.Get(idx)
	if err != nil {
		return nil, err
	}
	switch e.Tag {
	case classfile.TagInteger:
		return e.IntVal, nil
	case classfile.TagFloat:
		return e.FloatVal, nil
	case classfile.TagLong:
		return e.LongVal, nil
	case classfile.TagDouble:
		return e.DoubleVal, nil
	case classfile.TagString:
		return pool.Utf8At(e.NameIndex)
	default:
		return nil, fmt.Errorf("ConstantValue: unexpected tag %d", e.Tag)
	}
}

func parseMethods(r *reader, pool *classfile.Pool, version types.ClassFileVersion) ([]*classfile.Method, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}
	methods := make([]*classfile.Method, count)
	for i := range methods {
		accessFlags, err := r.u2()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.Utf8At(nameIdx)
		if err != nil {
			return nil, err
		}
		descIdx, err := r.u2()
		if err != nil {
			return nil, err
		}
		desc, err := pool.Utf8At(descIdx)
		if err != nil {
			return nil, err
		}
		m := &classfile.Method{AccessFlags: accessFlags, Name: name, Descriptor: desc}

		attrCount, err := r.u2()
		if err != nil {
			return nil, err
		}
		for a := 0; a < int(attrCount); a++ {
			attrName, body, err := readAttribute(r, pool)
			if err != nil {
				return nil, err
			}
			if attrName == "Code" {
				if err := parseCodeAttribute(m, body, pool); err != nil {
					return nil, err
				}
			}
		}
		methods[i] = m
	}
	return methods, nil
}

// readAttribute reads one attribute_info's name and raw body (not
// recursively parsed), leaving the reader positioned after it.
func readAttribute(r *reader, pool *classfile.Pool) (name string, body []byte, err error) {
	nameIdx, err := r.u2()
	if err != nil {
		return "", nil, err
	}
	name, err = pool.Utf8At(nameIdx)
	if err != nil {
		return "", nil, err
	}
	length, err := r.u4()
	if err != nil {
		return "", nil, err
	}
	body, err = r.bytes(int(length))
	if err != nil {
		return "", nil, err
	}
	return name, body, nil
}

func skipAttributes(r *reader) error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := r.skip(2); err != nil {
			return err
		}
		length, err := r.u4()
		if err != nil {
			return err
		}
		if err := r.skip(int(length)); err != nil {
			return err
		}
	}
	return nil
}

// parseCodeAttribute decodes a method's Code attribute body: max_stack,
// max_locals, the bytecode (converted to instruction-indexed form),
// exception_table, and -- if present -- a StackMapTable attribute
// resolved to absolute byte offsets (the delta-encoding in JVMS ยง4.7.4 is
// unwound here, once, at load time).
func parseCodeAttribute(m *classfile.Method, body []byte, pool *classfile.Pool) error {
	cr := &reader{buf: body}
	maxStack, err := cr.u2()
	if err != nil {
		return err
	}
	maxLocals, err := cr.u2()
	if err != nil {
		return err
	}
	codeLen, err := cr.u4()
	if err != nil {
		return err
	}
	codeBytes, err := cr.bytes(int(codeLen))
	if err != nil {
		return err
	}
	instructions, err := opcode.FromBytes(codeBytes)
	if err != nil {
		return err
	}

	excCount, err := cr.u2()
	if err != nil {
		return err
	}
	excTable := make([]cfg.ExceptionTableEntry, excCount)
	for i := range excTable {
		startPC, err := cr.u2()
		if err != nil {
			return err
		}
		endPC, err := cr.u2()
		if err != nil {
			return err
		}
		handlerPC, err := cr.u2()
		if err != nil {
			return err
		}
		catchIdx, err := cr.u2()
		if err != nil {
			return err
		}
		var catchType string
		if catchIdx != 0 {
			catchType, err = pool.ClassNameAt(catchIdx)
			if err != nil {
				return err
			}
		}
		excTable[i] = cfg.ExceptionTableEntry{
			StartPC: int(startPC), EndPC: int(endPC), HandlerPC: int(handlerPC), CatchType: catchType,
		}
	}

	m.MaxStack = int(maxStack)
	m.MaxLocals = int(maxLocals)
	m.Instructions = instructions
	m.ExceptionTable = excTable

	attrCount, err := cr.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(attrCount); i++ {
		attrName, attrBody, err := readAttribute(cr, pool)
		if err != nil {
			return err
		}
		if attrName == "StackMapTable" {
			frames, err := parseStackMapTable(attrBody, pool, instructions)
			if err != nil {
				return err
			}
			m.StackMapTable = frames
		}
	}
	return nil
}

// verification_type_info tags, JVMS ยง4.7.4, duplicated from verifier's
// unexported constants since this package has no dependency on verifier.
const (
	vtiTop = iota
	vtiInteger
	vtiFloat
	vtiDouble
	vtiLong
	vtiNull
	vtiUninitializedThis
	vtiObject
	vtiUninitialized
)

func readVerificationTypeInfo(r *reader, pool *classfile.Pool) (classfile.FrameType, error) {
	tag, err := r.u1()
	if err != nil {
		return classfile.FrameType{}, err
	}
	ft := classfile.FrameType{Tag: tag}
	switch tag {
	case vtiObject:
		idx, err := r.u2()
		if err != nil {
			return ft, err
		}
		ft.ClassName, err = pool.ClassNameAt(idx)
		if err != nil {
			return ft, err
		}
	case vtiUninitialized:
		offset, err := r.u2()
		if err != nil {
			return ft, err
		}
		ft.NewInstrOffset = int(offset)
	}
	return ft, nil
}

// parseStackMapTable decodes the delta-encoded frame sequence of JVMS
// ยง4.7.4 into absolute-offset frames. Every frame kind has its own case
// (same, same_locals_1_stack_item and its extended form, chop,
// same_frame_extended, append, full); the reserved tags 128-246 are
// rejected.
func parseStackMapTable(body []byte, pool *classfile.Pool, instructions []opcode.Instruction) ([]classfile.StackMapFrame, error) {
	r := &reader{buf: body}
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	var frames []classfile.StackMapFrame
	offset := -1 // first frame's offset_delta is not "+1"
	var prevLocals []classfile.FrameType

	for i := 0; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		var frame classfile.StackMapFrame
		switch {
		case tag <= 63: // same_frame
			offset = advanceOffset(offset, int(tag))
			frame.Locals = prevLocals
		case tag <= 127: // same_locals_1_stack_item_frame
			offset = advanceOffset(offset, int(tag)-64)
			item, err := readVerificationTypeInfo(r, pool)
			if err != nil {
				return nil, err
			}
			frame.Locals = prevLocals
			frame.Stack = []classfile.FrameType{item}
		case tag == 247: // same_locals_1_stack_item_frame_extended
			delta, err := r.u2()
			if err != nil {
				return nil, err
			}
			offset = advanceOffset(offset, int(delta))
			item, err := readVerificationTypeInfo(r, pool)
			if err != nil {
				return nil, err
			}
			frame.Locals = prevLocals
			frame.Stack = []classfile.FrameType{item}
		case tag >= 248 && tag <= 250: // chop_frame
			delta, err := r.u2()
			if err != nil {
				return nil, err
			}
			offset = advanceOffset(offset, int(delta))
			k := 251 - int(tag)
			if k > len(prevLocals) {
				k = len(prevLocals)
			}
			frame.Locals = prevLocals[:len(prevLocals)-k]
		case tag == 251: // same_frame_extended
			delta, err := r.u2()
			if err != nil {
				return nil, err
			}
			offset = advanceOffset(offset, int(delta))
			frame.Locals = prevLocals
		case tag >= 252 && tag <= 254: // append_frame
			delta, err := r.u2()
			if err != nil {
				return nil, err
			}
			offset = advanceOffset(offset, int(delta))
			n := int(tag) - 251
			newLocals := make([]classfile.FrameType, n)
			for j := 0; j < n; j++ {
				newLocals[j], err = readVerificationTypeInfo(r, pool)
				if err != nil {
					return nil, err
				}
			}
			frame.Locals = append(append([]classfile.FrameType{}, prevLocals...), newLocals...)
		case tag == 255: // full_frame
			delta, err := r.u2()
			if err != nil {
				return nil, err
			}
			offset = advanceOffset(offset, int(delta))
			localCount, err := r.u2()
			if err != nil {
				return nil, err
			}
			locals := make([]classfile.FrameType, localCount)
			for j := range locals {
				locals[j], err = readVerificationTypeInfo(r, pool)
				if err != nil {
					return nil, err
				}
			}
			stackCount, err := r.u2()
			if err != nil {
				return nil, err
			}
			stack := make([]classfile.FrameType, stackCount)
			for j := range stack {
				stack[j], err = readVerificationTypeInfo(r, pool)
				if err != nil {
					return nil, err
				}
			}
			frame.Locals = locals
			frame.Stack = stack
		default:
			return nil, fmt.Errorf("StackMapTable: reserved tag %d", tag)
		}
		frame.Offset = offset
		frames = append(frames, frame)
		prevLocals = frame.Locals
	}
	return frames, nil
}

// advanceOffset applies one frame's offset_delta, per JVMS ยง4.7.4: the
// first frame's offset is offset_delta itself; every later frame's is
// offset_delta + 1 past the previous frame's offset.
func advanceOffset(prev, delta int) int {
	if prev < 0 {
		return delta
	}
	return prev + delta + 1
}

