package classfile

import (
	"sync/atomic"

	"vjvm/cfg"
	"vjvm/opcode"
	"vjvm/types"
)

// InitState is a class's position in the C8 initialization state machine.
type InitState int32

const (
	StateLoaded InitState = iota
	StateLinked
	StateInitializing
	StateInitialized
	StateFailed
)

// AccessFlags, the subset JVMS ยง4.1/ยง4.5/ยง4.6 define for classes, fields,
// and methods that this engine inspects.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020
	AccSynchronized uint16 = 0x0020
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccNative       uint16 = 0x0100
)

// Field is one field_info entry, resolved to its name/descriptor.
type Field struct {
	AccessFlags   uint16
	Name          string
	Descriptor    string
	ConstantValue interface{} // non-nil only for a static final with ConstantValue attribute
}

// IsStatic reports whether the field is static.
func (f *Field) IsStatic() bool { return f.AccessFlags&AccStatic != 0 }

// Method is one method_info entry. Instructions is decoded once at load
// time via opcode.FromBytes; CodeInfo and the CFG are built from it
// lazily by the verifier.
type Method struct {
	AccessFlags    uint16
	Name           string
	Descriptor     string
	MaxStack       int
	MaxLocals      int
	Instructions   []opcode.Instruction
	ExceptionTable []cfg.ExceptionTableEntry
	StackMapTable  []StackMapFrame
	ParamTypes     []string
	ReturnType     string

	Verified bool
}

// IsStatic, IsNative, IsAbstract report the corresponding access flags.
func (m *Method) IsStatic() bool   { return m.AccessFlags&AccStatic != 0 }
func (m *Method) IsNative() bool   { return m.AccessFlags&AccNative != 0 }
func (m *Method) IsAbstract() bool { return m.AccessFlags&AccAbstract != 0 }
func (m *Method) IsSynchronized() bool {
	return m.AccessFlags&AccSynchronized != 0
}

// StackMapFrame is one decoded entry of a method's StackMapTable
// attribute: an absolute byte offset with the locals/stack verification
// types the verifier must find assignable-from at that point (spec
// ยง4.6). Delta-encoding (JVMS ยง4.7.4) is resolved into this absolute form
// once, at load time, by the classloader's attribute parser.
type StackMapFrame struct {
	Offset int
	Locals []FrameType
	Stack  []FrameType
}

// FrameType is a StackMapTable verification_type_info entry, kept
// unresolved (class name as a string, not yet an Object vtype.Type) until
// the verifier maps it against the loader's class hierarchy.
type FrameType struct {
	Tag           byte // JVMS ยง4.7.4 verification_type_info tag
	ClassName     string
	NewInstrOffset int
}

// Class is one loaded, linked (eventually initialized) class, per spec
// ยง3/ยง4.7/ยง4.8.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Version    types.ClassFileVersion
	AccessFlags uint16
	Pool       *Pool
	Fields     []*Field
	Methods    []*Method

	StaticValues map[string]interface{}

	state    atomic.Int32
	initTid  atomic.Int64
}

// IsInterface reports whether the class access flags mark it an
// interface.
func (c *Class) IsInterface() bool { return c.AccessFlags&AccInterface != 0 }

// State returns the class's current position in the init state machine.
func (c *Class) State() InitState { return InitState(c.state.Load()) }

// SetState unconditionally sets the state (used for Loaded -> Linked,
// and for recording Failed/Initialized after a claimed Initializing).
func (c *Class) SetState(s InitState) { c.state.Store(int32(s)) }

// CompareAndSwapState attempts the Linked -> Initializing(tid) claim
// atomically, recording the claiming thread id on success.
func (c *Class) CompareAndSwapState(from, to InitState, tid int64) bool {
	if c.state.CompareAndSwap(int32(from), int32(to)) {
		c.initTid.Store(tid)
		return true
	}
	return false
}

// InitializingThread returns the thread id that claimed Initializing, if
// the class is currently in that state.
func (c *Class) InitializingThread() int64 { return c.initTid.Load() }

// FindMethod returns the method with the given name and descriptor, or
// nil.
func (c *Class) FindMethod(name, descriptor string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == descriptor {
			return m
		}
	}
	return nil
}

// FindField returns the field with the given name, or nil.
func (c *Class) FindField(name string) *Field {
	for _, f := range c.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
