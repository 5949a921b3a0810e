package verifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/cfg"
	"vjvm/classfile"
	"vjvm/opcode"
	"vjvm/types"
	"vjvm/verifier"
)

type fakeHierarchy struct {
	supers map[string]string
}

func (h fakeHierarchy) IsSubclassOf(sub, super string) bool {
	if sub == super {
		return true
	}
	for c := sub; c != ""; c = h.supers[c] {
		if c == super {
			return true
		}
	}
	return false
}

func (h fakeHierarchy) CommonSuperclass(a, b string) string {
	if h.IsSubclassOf(a, b) {
		return b
	}
	if h.IsSubclassOf(b, a) {
		return a
	}
	return "java/lang/Object"
}

func emptyPool() *classfile.Pool {
	return &classfile.Pool{Entries: make([]classfile.Entry, 1)}
}

func java8() types.ClassFileVersion { return types.ClassFileVersion{Major: types.Java8} }

func newClass(methods ...*classfile.Method) *classfile.Class {
	return &classfile.Class{
		Name:    "Test",
		Super:   "java/lang/Object",
		Version: java8(),
		Pool:    emptyPool(),
		Methods: methods,
	}
}

func TestVerifyArithmeticMethod(t *testing.T) {
	// static int add(int, int) { return p0 + p1; }
	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "add",
		Descriptor:  "(II)I",
		MaxStack:    2,
		MaxLocals:   2,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iload0},
			{Op: opcode.Iload1},
			{Op: opcode.Iadd},
			{Op: opcode.Ireturn},
		},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.NoError(t, err)
	require.True(t, method.Verified)
}

func TestVerifyDupAndSwap(t *testing.T) {
	// static int f() { int a = 1; int b = 2; return a; } expressed via dup/swap/pop games
	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "f",
		Descriptor:  "()I",
		MaxStack:    3,
		MaxLocals:   0,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iconst1},
			{Op: opcode.Iconst2},
			{Op: opcode.Dup},
			{Op: opcode.Swap},
			{Op: opcode.Pop},
			{Op: opcode.Pop},
			{Op: opcode.Ireturn},
		},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.NoError(t, err)
}

func TestVerifyRejectsStackUnderflow(t *testing.T) {
	method := &classfile.Method{
		AccessFlags:  classfile.AccStatic,
		Name:         "bad",
		Descriptor:   "()I",
		MaxStack:     1,
		MaxLocals:    0,
		Instructions: []opcode.Instruction{{Op: opcode.Ireturn}},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.Error(t, err)
	var verErr *verifier.VerifyError
	require.ErrorAs(t, err, &verErr)
}

func TestVerifyRejectsTypeMismatch(t *testing.T) {
	// pushes a long where int is required for ireturn
	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "bad",
		Descriptor:  "()I",
		MaxStack:    2,
		MaxLocals:   0,
		Instructions: []opcode.Instruction{
			{Op: opcode.Lconst0},
			{Op: opcode.Ireturn},
		},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.Error(t, err)
}

func TestVerifyInvokespecialInitReplacesUninitialized(t *testing.T) {
	// new Foo; dup; invokespecial Foo.<init>()V; pop
	pool := &classfile.Pool{Entries: make([]classfile.Entry, 8)}
	pool.Entries[1] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "Foo"}
	pool.Entries[2] = classfile.Entry{Tag: classfile.TagClass, NameIndex: 1}
	pool.Entries[3] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "<init>"}
	pool.Entries[4] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "()V"}
	pool.Entries[5] = classfile.Entry{Tag: classfile.TagNameAndType, NameIndex: 3, DescIndex: 4}
	pool.Entries[6] = classfile.Entry{Tag: classfile.TagMethodRef, ClassIndex: 2, NameAndTypeIndex: 5}

	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "make",
		Descriptor:  "()V",
		MaxStack:    2,
		MaxLocals:   0,
		Instructions: []opcode.Instruction{
			{Op: opcode.New, CPIndex: 2},
			{Op: opcode.Dup},
			{Op: opcode.Invokespecial, CPIndex: 6},
			{Op: opcode.Pop},
			{Op: opcode.Return},
		},
	}
	class := &classfile.Class{Name: "Test", Version: java8(), Pool: pool, Methods: []*classfile.Method{method}}
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.NoError(t, err)
}

func TestVerifyJoinMergesBranches(t *testing.T) {
	// if (p0) { a = 1 } else { a = 2 } return a;  both branches merge to int
	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "pick",
		Descriptor:  "(I)I",
		MaxStack:    1,
		MaxLocals:   2,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iload0},           // 0
			{Op: opcode.Ifeq, Offset: 4},  // 1 -> idx 4
			{Op: opcode.Iconst1},          // 2
			{Op: opcode.Goto, Offset: 5},  // 3 -> idx 5
			{Op: opcode.Iconst2},          // 4
			{Op: opcode.Ireturn},          // 5
		},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.NoError(t, err)
}

func TestVerifySkipsNativeAndAbstract(t *testing.T) {
	method := &classfile.Method{AccessFlags: classfile.AccNative, Name: "n", Descriptor: "()V"}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.NoError(t, err)
	require.False(t, method.Verified)
}

func TestVerifyRejectsJsrAtModernVersion(t *testing.T) {
	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "old",
		Descriptor:  "()V",
		MaxStack:    0,
		MaxLocals:   1,
		Instructions: []opcode.Instruction{
			{Op: opcode.Jsr, Offset: 1},
			{Op: opcode.Return},
		},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.Error(t, err)
}

func TestVerifyExceptionHandlerSeesThrowable(t *testing.T) {
	method := &classfile.Method{
		AccessFlags: classfile.AccStatic,
		Name:        "t",
		Descriptor:  "()V",
		MaxStack:    1,
		MaxLocals:   0,
		Instructions: []opcode.Instruction{
			{Op: opcode.AconstNull}, // 0
			{Op: opcode.Athrow},     // 1
			{Op: opcode.Pop},        // 2, handler: pops the caught throwable
			{Op: opcode.Return},     // 3
		},
		ExceptionTable: []cfg.ExceptionTableEntry{
			{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: "java/lang/Exception"},
		},
	}
	class := newClass(method)
	err := verifier.Verify(class, method, fakeHierarchy{})
	require.NoError(t, err)
}
