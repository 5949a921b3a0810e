// Package excnames is the catalog of internal JVM exception/error class
// names the engine throws at run time, mirroring jacobin/excNames. Keeping
// the names in one place means every throw site and every gfunction
// registration spells a class name identically.
package excnames

// Well-known throwable class names, internal (slash) form.
const (
	ArithmeticException             = "java/lang/ArithmeticException"
	ArrayIndexOutOfBoundsException  = "java/lang/ArrayIndexOutOfBoundsException"
	ClassCastException              = "java/lang/ClassCastException"
	ClassNotFoundException          = "java/lang/ClassNotFoundException"
	IllegalMonitorStateException    = "java/lang/IllegalMonitorStateException"
	IllegalStateException           = "java/lang/IllegalStateException"
	IndexOutOfBoundsException       = "java/lang/IndexOutOfBoundsException"
	InternalError                   = "java/lang/InternalError"
	InterruptedException            = "java/lang/InterruptedException"
	NegativeArraySizeException      = "java/lang/NegativeArraySizeException"
	NoClassDefFoundError            = "java/lang/NoClassDefFoundError"
	NullPointerException            = "java/lang/NullPointerException"
	OutOfMemoryError                = "java/lang/OutOfMemoryError"
	StackOverflowError              = "java/lang/StackOverflowError"
	UnsupportedClassVersionError    = "java/lang/UnsupportedClassVersionError"
	UnsupportedOperationException   = "java/lang/UnsupportedOperationException"
	VerifyError                     = "java/lang/VerifyError"
	ClassFormatError                = "java/lang/ClassFormatError"
	Throwable                       = "java/lang/Throwable"
)

// JVMError is a typed, load-time or verification error produced by the
// engine itself rather than by running Java bytecode. It carries the
// throwable class name the error corresponds to, so callers that need to
// surface it to Java code (rather than aborting the host process) know
// which exception to synthesize.
type JVMError struct {
	ClassName string
	Msg       string
}

func (e *JVMError) Error() string {
	return e.ClassName + ": " + e.Msg
}

// New constructs a JVMError for the given throwable class.
func New(className, msg string) *JVMError {
	return &JVMError{ClassName: className, Msg: msg}
}

// Provider is implemented by host error types that map to a specific
// Java throwable class (classloader.NoClassDefFoundError and friends).
// Callers that need to surface a host-detected condition to running
// bytecode, rather than aborting the process, type-assert against this
// interface to find out which exception to synthesize.
type Provider interface {
	JVMError() *JVMError
}
