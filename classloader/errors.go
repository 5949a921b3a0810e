package classloader

import (
	"fmt"

	"vjvm/excnames"
)

// UnsupportedClassFileVersionError means a class file's major version is
// newer than globals.Globals.VersionCeiling, per spec ยง4.8/ยง7.
type UnsupportedClassFileVersionError struct {
	ClassName string
	Major     uint16
	Ceiling   uint16
}

func (e *UnsupportedClassFileVersionError) Error() string {
	return fmt.Sprintf("%s: class file version %d exceeds the supported ceiling %d",
		e.ClassName, e.Major, e.Ceiling)
}

// JVMError reports excnames.UnsupportedClassVersionError so callers that
// surface host errors as Java exceptions (rather than aborting) know
// which throwable to synthesize.
func (e *UnsupportedClassFileVersionError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.UnsupportedClassVersionError, e.Error())
}

// NoClassDefFoundError means a class was found and loaded once but could
// not be reused: initialization previously failed (spec ยง4.8's
// "previous attempt failed" rule), or a class referenced at link time by
// another class is not the same class now on the classpath.
type NoClassDefFoundError struct {
	ClassName string
	Reason    string
}

func (e *NoClassDefFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.ClassName, e.Reason)
}

func (e *NoClassDefFoundError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.NoClassDefFoundError, e.Error())
}

// ClassNotFoundError means no loader in the delegation chain could find
// the named class on its classpath.
type ClassNotFoundError struct {
	ClassName string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class not found: %s", e.ClassName)
}

func (e *ClassNotFoundError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.ClassNotFoundException, e.Error())
}

// ClassFormatError means a .class file's bytes could not be parsed into
// a well-formed Class (bad magic, truncated structure, malformed
// constant pool entry).
type ClassFormatError struct {
	ClassName string
	Cause     error
}

func (e *ClassFormatError) Error() string {
	name := e.ClassName
	if name == "" {
		name = "<unknown>"
	}
	return fmt.Sprintf("%s: malformed class file: %v", name, e.Cause)
}

func (e *ClassFormatError) Unwrap() error { return e.Cause }

func (e *ClassFormatError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.ClassFormatError, e.Error())
}

// VerifyFailedError wraps a component C6 verifier.VerifyError so a
// failed method fails the whole class's linking step, per spec ยง7
// ("the verifier is total -- it either certifies a method or returns a
// single typed error").
type VerifyFailedError struct {
	ClassName string
	Cause     error
}

func (e *VerifyFailedError) Error() string {
	return fmt.Sprintf("%s: %v", e.ClassName, e.Cause)
}

func (e *VerifyFailedError) Unwrap() error { return e.Cause }

func (e *VerifyFailedError) JVMError() *excnames.JVMError {
	return excnames.New(excnames.VerifyError, e.Error())
}
