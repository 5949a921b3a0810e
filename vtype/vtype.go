// Package vtype is the verifier's type lattice (component C3): the
// abstract values the dataflow verifier tracks for locals and the operand
// stack, their merge (join) rule, and assignability.
package vtype

import "fmt"

// Kind discriminates the cases of the verification type lattice. Modeled
// as a tagged struct rather than an interface hierarchy -- one value type
// with a kind tag, the way the teacher represents constant-pool entries in
// CPutils.go -- since the lattice has a small fixed set of cases and every
// verifier routine needs to switch on all of them anyway.
type Kind int

const (
	Top Kind = iota
	Integer
	Float
	Long
	Double
	Null
	Uninitialized
	UninitializedThis
	Object
)

var kindNames = map[Kind]string{
	Top:               "top",
	Integer:           "int",
	Float:             "float",
	Long:              "long",
	Double:            "double",
	Null:              "null",
	Uninitialized:     "uninitialized",
	UninitializedThis: "uninitializedThis",
	Object:            "object",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("vtype.Kind(%d)", int(k))
}

// Type is one verification type: a lattice element. ClassName is
// populated only for Object; NewOffset only for Uninitialized (the byte
// offset of the `new` instruction that produced it, per JVMS ยง4.10.1.4).
type Type struct {
	Kind      Kind
	ClassName string
	NewOffset int
}

// Convenience constructors.
func TopType() Type           { return Type{Kind: Top} }
func IntegerType() Type       { return Type{Kind: Integer} }
func FloatType() Type         { return Type{Kind: Float} }
func LongType() Type          { return Type{Kind: Long} }
func DoubleType() Type        { return Type{Kind: Double} }
func NullType() Type          { return Type{Kind: Null} }
func UninitializedThisType() Type { return Type{Kind: UninitializedThis} }

func UninitializedType(newOffset int) Type {
	return Type{Kind: Uninitialized, NewOffset: newOffset}
}

func ObjectType(className string) Type {
	return Type{Kind: Object, ClassName: className}
}

// IsCategory2 reports whether t occupies two stack/local slots.
func (t Type) IsCategory2() bool {
	return t.Kind == Long || t.Kind == Double
}

func (t Type) String() string {
	switch t.Kind {
	case Object:
		return "Object<" + t.ClassName + ">"
	case Uninitialized:
		return fmt.Sprintf("Uninitialized<%d>", t.NewOffset)
	default:
		return t.Kind.String()
	}
}

// Equal reports value equality, used by merge/StackMapTable comparisons.
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.ClassName == o.ClassName && t.NewOffset == o.NewOffset
}

// Hierarchy answers is-a questions about object types -- the class
// hierarchy used by Merge and IsAssignable. Implemented by classloader,
// passed in rather than imported, so vtype has no dependency on class
// loading.
type Hierarchy interface {
	// IsSubclassOf reports whether sub is sub (or equal to) super, by
	// internal (slash-form) class name. Interfaces are treated as
	// subtypes of Object only, per JVMS verification rules for
	// unresolved/interface supertypes.
	IsSubclassOf(sub, super string) bool

	// CommonSuperclass returns the least upper bound of a and b in the
	// class hierarchy, defaulting to "java/lang/Object" when nothing
	// more specific is known (e.g. one side is an interface or
	// unresolved).
	CommonSuperclass(a, b string) string
}

// Merge computes the join of a and b in the lattice, per spec ยง4.3:
// identical types merge to themselves; Null merges with a reference to
// that reference; two references merge to their common superclass; any
// category mismatch, or a primitive/reference mix, or either side Top,
// merges to Top.
func Merge(a, b Type, h Hierarchy) Type {
	if a.Equal(b) {
		return a
	}
	if a.Kind == Top || b.Kind == Top {
		return TopType()
	}
	if a.Kind == Null && isReference(b) {
		return b
	}
	if b.Kind == Null && isReference(a) {
		return a
	}
	if isReference(a) && isReference(b) {
		return ObjectType(h.CommonSuperclass(refClassName(a), refClassName(b)))
	}
	return TopType()
}

func isReference(t Type) bool {
	return t.Kind == Object || t.Kind == Null || t.Kind == Uninitialized || t.Kind == UninitializedThis
}

func refClassName(t Type) string {
	if t.Kind == Object {
		return t.ClassName
	}
	return "java/lang/Object"
}

// IsAssignable reports whether a value of type source may be used where
// target is expected, per spec ยง4.3: primitives require an exact match;
// Null is assignable to any reference; Uninitialized/UninitializedThis
// are assignable only to themselves (until initialize_object replaces
// them); otherwise references defer to the class hierarchy.
func IsAssignable(target, source Type, h Hierarchy) bool {
	if target.Equal(source) {
		return true
	}
	switch target.Kind {
	case Object:
		switch source.Kind {
		case Null:
			return true
		case Object:
			return h.IsSubclassOf(source.ClassName, target.ClassName)
		default:
			return false
		}
	case Top:
		return true
	default:
		return false
	}
}
