// Package types holds the small, dependency-free constants and helpers that
// the rest of the engine shares: descriptor-letter constants, well-known
// string-pool indices, and the sentinel values used when a lookup fails.
package types

// Field/method descriptor prefixes, per JVMS ยง4.3.2.
const (
	Byte      = "B"
	Char      = "C"
	Double    = "D"
	Float     = "F"
	Int       = "I"
	Long      = "J"
	Reference = "L"
	Short     = "S"
	Boolean   = "Z"
	Void      = "V"
	Array     = "["
	RefArray  = "[L"
)

// StringClassName is the internal name of java/lang/String.
const StringClassName = "java/lang/String"

// ObjectClassName is the internal name of java/lang/Object.
const ObjectClassName = "java/lang/Object"

// InvalidStringIndex is returned by string-pool lookups that fail.
const InvalidStringIndex = ^uint32(0)

// ObjectPoolStringIndex is the well-known string-pool slot for
// java/lang/Object, reserved at pool initialization so superclass
// comparisons can use a cheap integer equality check instead of a
// string compare.
const ObjectPoolStringIndex uint32 = 0

// ByteArray, IntArray, StringArray describe array element kinds used
// when boxing host-side slices into JVM array objects.
const (
	ByteArray   = "[B"
	IntArray    = "[I"
	StringArray = "[Ljava/lang/String;"
)

// IsCategory2 reports whether a descriptor prefix denotes a category-2
// (two-slot) JVM type: long or double.
func IsCategory2(descriptor string) bool {
	return descriptor == Long || descriptor == Double
}

// ClassFileVersion is a major/minor class-file version pair, per JVMS ยง4.1.
type ClassFileVersion struct {
	Major uint16
	Minor uint16
}

// Named major versions, per JVMS table 4.1-A.
const (
	Java1  uint16 = 45
	Java6  uint16 = 50
	Java7  uint16 = 51
	Java8  uint16 = 52
	Java9  uint16 = 53
	Java11 uint16 = 55
	Java17 uint16 = 61
	Java21 uint16 = 65
)

// AtLeast reports whether this version is >= the given major version.
func (v ClassFileVersion) AtLeast(major uint16) bool {
	return v.Major >= major
}
