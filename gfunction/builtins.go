package gfunction

import (
	"fmt"
	"hash/fnv"
	"os"
)

// sleeper is implemented by package thread's Thread, kept as an
// interface here so gfunction has no import-cycle dependency on thread.
type sleeper interface {
	CheckInterrupted() error
	Sleep(ms int64) error
}

// RegisterBuiltins installs the small set of java.lang/java.io
// intrinsics the engine provides out of the box: object identity hash,
// PrintStream print/println (always to standard output), Thread.sleep's interruption
// semantics, and java.lang.String's instance methods (see string.go).
// Application-specific intrinsics are registered the same way by
// callers, following jacobin's Load_Xxx per-class convention.
func RegisterBuiltins(r *Registry) error {
	registrations := []struct {
		class, method, desc string
		fn                  Intrinsic
	}{
		{"java/lang/Object", "<init>", "()V", objectInit},
		{"java/lang/Object", "hashCode", "()I", objectHashCode},
		{"java/lang/Object", "registerNatives", "()V", noop},
		{"java/lang/Thread", "registerNatives", "()V", noop},
		{"java/lang/Thread", "sleep", "(J)V", threadSleep},
		{"java/lang/Thread", "yield", "()V", noop},
		{"java/io/PrintStream", "println", "(Ljava/lang/String;)V", printlnString},
		{"java/io/PrintStream", "println", "(I)V", printlnInt},
		{"java/io/PrintStream", "print", "(Ljava/lang/String;)V", printString},
	}
	for _, reg := range registrations {
		if err := r.Register(reg.class, reg.method, reg.desc, Predicate{Kind: Any}, reg.fn); err != nil {
			return err
		}
	}
	return registerString(r)
}

func noop(_ interface{}, _ []interface{}) (interface{}, error) { return nil, nil }

func objectInit(_ interface{}, _ []interface{}) (interface{}, error) { return nil, nil }

func objectHashCode(_ interface{}, args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("Object.hashCode: missing receiver")
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%p", args[0])
	return int32(h.Sum32()), nil
}

func threadSleep(thread interface{}, args []interface{}) (interface{}, error) {
	ms, ok := args[len(args)-1].(int64)
	if !ok {
		return nil, fmt.Errorf("Thread.sleep: expected long argument")
	}
	s, ok := thread.(sleeper)
	if !ok {
		return nil, fmt.Errorf("Thread.sleep: calling thread does not implement sleep")
	}
	return nil, s.Sleep(ms)
}

func printlnString(_ interface{}, args []interface{}) (interface{}, error) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stdout)
		return nil, nil
	}
	fmt.Fprintln(os.Stdout, args[len(args)-1])
	return nil, nil
}

func printlnInt(_ interface{}, args []interface{}) (interface{}, error) {
	fmt.Fprintln(os.Stdout, args[len(args)-1])
	return nil, nil
}

func printString(_ interface{}, args []interface{}) (interface{}, error) {
	fmt.Fprint(os.Stdout, args[len(args)-1])
	return nil, nil
}
