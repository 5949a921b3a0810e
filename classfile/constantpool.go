// Package classfile is the in-memory class model and constant pool
// (component C7): typed constant-pool entries, the two-phase pool
// verifier, and the Class/Field/Method tables a loaded class exposes.
package classfile

import (
	"fmt"

	"vjvm/types"
)

// Tag discriminates the kind of one constant-pool entry, per JVMS ยง4.4.
type Tag byte

const (
	TagUtf8 Tag = iota + 1
	TagInteger
	TagFloat
	TagLong
	TagDouble
	TagClass
	TagString
	TagFieldRef
	TagMethodRef
	TagInterfaceMethodRef
	TagNameAndType
	TagMethodHandle
	TagMethodType
	TagDynamic
	TagInvokeDynamic
	TagModule
	TagPackage
)

// minVersion is the earliest class-file major version each tag is legal
// in, per JVMS table 4.4-C. Tags not listed are legal since version 45
// (the oldest version this engine loads).
var minVersion = map[Tag]uint16{
	TagMethodHandle:  types.Java7,
	TagMethodType:    types.Java7,
	TagInvokeDynamic: types.Java7,
	TagDynamic:       types.Java11,
	TagModule:        types.Java9,
	TagPackage:       types.Java9,
}

// Entry is one constant-pool slot. Modeled as a single tagged struct
// (only the fields relevant to Tag are populated) rather than jacobin's
// parallel-array-plus-slot-index layout: the discriminated-union-via-tag
// idiom is the same, simplified to one array since the engine does not
// need jacobin's unsafe-pointer CpType fetch path.
type Entry struct {
	Tag Tag

	// TagUtf8
	Utf8 string

	// TagInteger / TagFloat / TagLong / TagDouble
	IntVal    int32
	FloatVal  float32
	LongVal   int64
	DoubleVal float64

	// TagClass, TagString (its text), TagMethodType (its descriptor),
	// TagModule/TagPackage: NameIndex -> Utf8.
	NameIndex uint16

	// TagFieldRef / TagMethodRef / TagInterfaceMethodRef
	ClassIndex       uint16
	NameAndTypeIndex uint16

	// TagNameAndType
	DescIndex uint16

	// TagMethodHandle
	RefKind  byte
	RefIndex uint16

	// TagDynamic / TagInvokeDynamic
	BootstrapMethodAttrIndex uint16
}

// Pool is a class's constant pool, 1-indexed as in the class file; index
// 0 is never valid (JVMS ยง4.4).
type Pool struct {
	Entries []Entry
}

// Get returns the entry at index, erroring if out of range.
func (p *Pool) Get(index uint16) (*Entry, error) {
	if index == 0 || int(index) >= len(p.Entries) {
		return nil, &InvalidConstantPoolIndexError{Index: index, Size: len(p.Entries)}
	}
	return &p.Entries[index], nil
}

// expect returns the entry at index if it has tag t, else
// InvalidConstantPoolIndexTypeError.
func (p *Pool) expect(index uint16, t Tag) (*Entry, error) {
	e, err := p.Get(index)
	if err != nil {
		return nil, err
	}
	if e.Tag != t {
		return nil, &InvalidConstantPoolIndexTypeError{Index: index, Want: t, Got: e.Tag}
	}
	return e, nil
}

// Utf8At resolves index to its UTF-8 string.
func (p *Pool) Utf8At(index uint16) (string, error) {
	e, err := p.expect(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return e.Utf8, nil
}

// ClassNameAt resolves a Class entry at index to its internal class name.
func (p *Pool) ClassNameAt(index uint16) (string, error) {
	e, err := p.expect(index, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8At(e.NameIndex)
}

// NameAndTypeAt resolves a NameAndType entry to its (name, descriptor)
// pair.
func (p *Pool) NameAndTypeAt(index uint16) (name, descriptor string, err error) {
	e, err := p.expect(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	name, err = p.Utf8At(e.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.Utf8At(e.DescIndex)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// MemberRef is a resolved FieldRef/MethodRef/InterfaceMethodRef: the
// owning class name plus the member's name and descriptor.
type MemberRef struct {
	ClassName  string
	Name       string
	Descriptor string
}

// MemberRefAt resolves a FieldRef, MethodRef, or InterfaceMethodRef entry.
func (p *Pool) MemberRefAt(index uint16) (MemberRef, error) {
	e, err := p.Get(index)
	if err != nil {
		return MemberRef{}, err
	}
	if e.Tag != TagFieldRef && e.Tag != TagMethodRef && e.Tag != TagInterfaceMethodRef {
		return MemberRef{}, &InvalidConstantPoolIndexTypeError{Index: index, Want: TagMethodRef, Got: e.Tag}
	}
	className, err := p.ClassNameAt(e.ClassIndex)
	if err != nil {
		return MemberRef{}, err
	}
	name, descriptor, err := p.NameAndTypeAt(e.NameAndTypeIndex)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{ClassName: className, Name: name, Descriptor: descriptor}, nil
}

// StringAt resolves a String entry to its backing UTF-8 value.
func (p *Pool) StringAt(index uint16) (string, error) {
	e, err := p.expect(index, TagString)
	if err != nil {
		return "", err
	}
	return p.Utf8At(e.NameIndex)
}

// Verify runs the two-phase pool check from spec ยง4.7: every referenced
// index must target the tag-correct entry, and every entry's tag must be
// legal at the class file's version.
func (p *Pool) Verify(version types.ClassFileVersion) error {
	for i := 1; i < len(p.Entries); i++ {
		e := &p.Entries[i]
		if e.Tag == 0 {
			continue // padding slot after a Long/Double, per JVMS ยง4.4.5
		}
		if min, ok := minVersion[e.Tag]; ok && version.Major < min {
			return &InvalidVersionConstantError{Index: uint16(i), Tag: e.Tag, Version: version}
		}
		if err := p.verifyEntryShape(uint16(i), e); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pool) verifyEntryShape(index uint16, e *Entry) error {
	switch e.Tag {
	case TagClass:
		_, err := p.expect(e.NameIndex, TagUtf8)
		return wrapContext(index, "Class", err)
	case TagString:
		_, err := p.expect(e.NameIndex, TagUtf8)
		return wrapContext(index, "String", err)
	case TagFieldRef, TagMethodRef, TagInterfaceMethodRef:
		if _, err := p.expect(e.ClassIndex, TagClass); err != nil {
			return wrapContext(index, "Ref.ClassIndex", err)
		}
		if _, err := p.expect(e.NameAndTypeIndex, TagNameAndType); err != nil {
			return wrapContext(index, "Ref.NameAndTypeIndex", err)
		}
		return nil
	case TagNameAndType:
		if _, err := p.expect(e.NameIndex, TagUtf8); err != nil {
			return wrapContext(index, "NameAndType.NameIndex", err)
		}
		if _, err := p.expect(e.DescIndex, TagUtf8); err != nil {
			return wrapContext(index, "NameAndType.DescIndex", err)
		}
		return nil
	case TagMethodType:
		_, err := p.expect(e.NameIndex, TagUtf8)
		return wrapContext(index, "MethodType", err)
	case TagMethodHandle:
		_, err := p.Get(e.RefIndex)
		return wrapContext(index, "MethodHandle.RefIndex", err)
	case TagDynamic, TagInvokeDynamic:
		if _, err := p.expect(e.NameAndTypeIndex, TagNameAndType); err != nil {
			return wrapContext(index, "Dynamic.NameAndTypeIndex", err)
		}
		// BootstrapMethodAttrIndex is not checked here, and the
		// classloader's parser skips the BootstrapMethods attribute, so
		// an out-of-range index is not detected at load time.
		return nil
	case TagModule, TagPackage:
		_, err := p.expect(e.NameIndex, TagUtf8)
		return wrapContext(index, "Module/Package", err)
	}
	return nil
}

func wrapContext(index uint16, ctx string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("constant pool entry %d (%s): %w", index, ctx, err)
}

// InvalidConstantPoolIndexError means an index was zero or out of range.
type InvalidConstantPoolIndexError struct {
	Index uint16
	Size  int
}

func (e *InvalidConstantPoolIndexError) Error() string {
	return fmt.Sprintf("invalid constant pool index %d (pool size %d)", e.Index, e.Size)
}

// InvalidConstantPoolIndexTypeError means an index resolved to an entry
// of the wrong tag.
type InvalidConstantPoolIndexTypeError struct {
	Index    uint16
	Want, Got Tag
}

func (e *InvalidConstantPoolIndexTypeError) Error() string {
	return fmt.Sprintf("constant pool index %d: expected tag %d, got %d", e.Index, e.Want, e.Got)
}

// InvalidVersionConstantError means a tag appeared in a class file older
// than the tag's minimum supporting version.
type InvalidVersionConstantError struct {
	Index   uint16
	Tag     Tag
	Version types.ClassFileVersion
}

func (e *InvalidVersionConstantError) Error() string {
	return fmt.Sprintf("constant pool entry %d: tag %d not legal before class file version %d (got %d)",
		e.Index, e.Tag, minVersion[e.Tag], e.Version.Major)
}
