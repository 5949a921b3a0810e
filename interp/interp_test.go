package interp_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"vjvm/cfg"
	"vjvm/classfile"
	"vjvm/classloader"
	"vjvm/frame"
	"vjvm/gfunction"
	"vjvm/interp"
	"vjvm/object"
	"vjvm/opcode"
	"vjvm/thread"
)

// newTestThread builds a thread backed by an empty-classpath bootstrap
// loader and a fresh intrinsic registry -- enough to run hand-built
// methods that never touch the classpath themselves.
func newTestThread(t *testing.T) *thread.Thread {
	t.Helper()
	fs := afero.NewMemMapFs()
	loader := classloader.NewLoader("test", nil, fs, nil)
	return thread.New(1, "test-thread", loader, gfunction.NewRegistry())
}

// newTestClass builds a minimal, already-Linked class with no
// superclass (so EnsureInitialized needs no classpath lookups) and a
// single method whose instructions are supplied directly, bypassing
// the .class file parser entirely -- the interpreter only ever sees
// already-decoded opcode.Instruction values.
func newTestClass(name string, method *classfile.Method) *classfile.Class {
	c := &classfile.Class{
		Name:         name,
		Pool:         &classfile.Pool{Entries: make([]classfile.Entry, 1)},
		Methods:      []*classfile.Method{method},
		StaticValues: map[string]interface{}{},
	}
	c.SetState(classfile.StateLinked)
	return c
}

func runMethod(t *testing.T, th *thread.Thread, class *classfile.Class, method *classfile.Method) (interface{}, bool, *object.Object, error) {
	t.Helper()
	f := frame.New(class, method)
	th.PushFrame(f)
	v, hasV, thrown, err := interp.Run(th)
	th.PopFrame()
	return v, hasV, thrown, err
}

func TestRun_ArithmeticAndReturn(t *testing.T) {
	th := newTestThread(t)
	method := &classfile.Method{
		Name:       "add",
		Descriptor: "()I",
		MaxStack:   2,
		MaxLocals:  0,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iconst2},
			{Op: opcode.Iconst3},
			{Op: opcode.Iadd},
			{Op: opcode.Ireturn},
		},
	}
	class := newTestClass("Adder", method)

	v, hasV, thrown, err := runMethod(t, th, class, method)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.True(t, hasV)
	require.Equal(t, int32(5), v)
}

func TestRun_DivisionByZeroThrowsArithmeticException(t *testing.T) {
	th := newTestThread(t)
	method := &classfile.Method{
		Name:       "divZero",
		Descriptor: "()I",
		MaxStack:   2,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iconst1},
			{Op: opcode.Iconst0},
			{Op: opcode.Idiv},
			{Op: opcode.Ireturn},
		},
	}
	class := newTestClass("Divider", method)

	_, hasV, thrown, err := runMethod(t, th, class, method)
	require.NoError(t, err)
	require.False(t, hasV)
	require.NotNil(t, thrown)
	require.Equal(t, "java/lang/ArithmeticException", thrown.ClassName())
}

func TestRun_ConditionalBranchSkipsElse(t *testing.T) {
	th := newTestThread(t)
	// if (1 != 0) return 7; else return 9;
	//  0: iconst_1
	//  1: ifeq -> idx 4 (else branch)
	//  2: bipush 7
	//  3: ireturn
	//  4: bipush 9
	//  5: ireturn
	method := &classfile.Method{
		Name:       "branch",
		Descriptor: "()I",
		MaxStack:   1,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iconst1},
			{Op: opcode.Ifeq, Offset: 4},
			{Op: opcode.Bipush, IntImm: 7},
			{Op: opcode.Ireturn},
			{Op: opcode.Bipush, IntImm: 9},
			{Op: opcode.Ireturn},
		},
	}
	class := newTestClass("Brancher", method)

	v, hasV, thrown, err := runMethod(t, th, class, method)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.True(t, hasV)
	require.Equal(t, int32(7), v)
}

func TestRun_TableswitchDispatchesToMatchingCase(t *testing.T) {
	th := newTestThread(t)
	// switch(1) { case 0: return 100; case 1: return 101; default: return -1; }
	// offsets/default are index-deltas relative to the switch's own
	// instruction index (1): case 0 -> idx 2, case 1 -> idx 4, default -> idx 6.
	method := &classfile.Method{
		Name:       "sw",
		Descriptor: "()I",
		MaxStack:   1,
		Instructions: []opcode.Instruction{
			{Op: opcode.Iconst1},
			{Op: opcode.Tableswitch, Table: &opcode.TableSwitch{
				Default: 5,
				Low:     0,
				High:    1,
				Offsets: []int32{1, 3},
			}},
			{Op: opcode.Bipush, IntImm: 100},
			{Op: opcode.Ireturn},
			{Op: opcode.Bipush, IntImm: 101},
			{Op: opcode.Ireturn},
			{Op: opcode.Bipush, IntImm: -1},
			{Op: opcode.Ireturn},
		},
	}
	class := newTestClass("Switcher", method)

	v, hasV, thrown, err := runMethod(t, th, class, method)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.True(t, hasV)
	require.Equal(t, int32(101), v)
}

func TestRun_ExceptionTableCatchesThrow(t *testing.T) {
	th := newTestThread(t)
	// 0: new-ish throw of NullPointerException via aconst_null + athrow
	// 1: athrow
	// 2: bipush 42 (handler body)
	// 3: ireturn
	method := &classfile.Method{
		Name:       "tryCatch",
		Descriptor: "()I",
		MaxStack:   1,
		Instructions: []opcode.Instruction{
			{Op: opcode.AconstNull},
			{Op: opcode.Athrow},
			{Op: opcode.Bipush, IntImm: 42},
			{Op: opcode.Ireturn},
		},
		ExceptionTable: []cfg.ExceptionTableEntry{
			{StartPC: 0, EndPC: 2, HandlerPC: 2, CatchType: ""},
		},
	}
	class := newTestClass("Catcher", method)

	v, hasV, thrown, err := runMethod(t, th, class, method)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.True(t, hasV)
	require.Equal(t, int32(42), v)
}

func TestRun_FieldAccessDefaultsAndTriggersClinit(t *testing.T) {
	th := newTestThread(t)
	// a no-op <clinit>: getstatic should still observe "count"'s default
	// zero value and the class should end up Initialized.
	clinitMethod := &classfile.Method{
		Name:       "<clinit>",
		Descriptor: "()V",
		Instructions: []opcode.Instruction{
			{Op: opcode.Return},
		},
	}
	getter := &classfile.Method{
		Name:       "get",
		Descriptor: "()I",
		MaxStack:   1,
		Instructions: []opcode.Instruction{
			{Op: opcode.Getstatic, CPIndex: 1},
			{Op: opcode.Ireturn},
		},
	}
	class := &classfile.Class{
		Name: "Holder",
		Pool: &classfile.Pool{Entries: []classfile.Entry{
			{}, // index 0 unused
			{Tag: classfile.TagFieldRef, ClassIndex: 2, NameAndTypeIndex: 4},
			{Tag: classfile.TagClass, NameIndex: 3},
			{Tag: classfile.TagUtf8, Utf8: "Holder"},
			{Tag: classfile.TagNameAndType, NameIndex: 5, DescIndex: 6},
			{Tag: classfile.TagUtf8, Utf8: "count"},
			{Tag: classfile.TagUtf8, Utf8: "I"},
		}},
		Methods:      []*classfile.Method{clinitMethod, getter},
		StaticValues: map[string]interface{}{},
	}
	class.SetState(classfile.StateLinked)
	th.Loader.Define(class)

	v, hasV, thrown, err := runMethod(t, th, class, getter)
	require.NoError(t, err)
	require.Nil(t, thrown)
	require.True(t, hasV)
	require.Equal(t, int32(0), v) // no clinit write to "count": defaults to zero value
	require.Equal(t, classfile.StateInitialized, class.State())
}

func TestRun_MonitorEnterExitRoundTrips(t *testing.T) {
	th := newTestThread(t)
	method := &classfile.Method{
		Name:       "sync",
		Descriptor: "()V",
		MaxStack:   2,
		Instructions: []opcode.Instruction{
			{Op: opcode.Aload0},
			{Op: opcode.Dup},
			{Op: opcode.Monitorenter},
			{Op: opcode.Aload0},
			{Op: opcode.Monitorexit},
			{Op: opcode.Return},
		},
		MaxLocals: 1,
	}
	class := newTestClass("Locker", method)

	f := frame.New(class, method)
	obj := object.NewObject("Locker", nil)
	require.NoError(t, f.SetLocal(0, obj))
	th.PushFrame(f)
	_, hasV, thrown, err := interp.Run(th)
	th.PopFrame()

	require.NoError(t, err)
	require.Nil(t, thrown)
	require.False(t, hasV)
	require.False(t, obj.Monitor().IsHeldBy(th.ID))
}

func TestRun_NullMonitorenterThrowsNPE(t *testing.T) {
	th := newTestThread(t)
	method := &classfile.Method{
		Name:       "sync",
		Descriptor: "()V",
		MaxStack:   1,
		Instructions: []opcode.Instruction{
			{Op: opcode.AconstNull},
			{Op: opcode.Monitorenter},
			{Op: opcode.Return},
		},
	}
	class := newTestClass("Locker2", method)

	_, hasV, thrown, err := runMethod(t, th, class, method)
	require.NoError(t, err)
	require.False(t, hasV)
	require.NotNil(t, thrown)
	require.Equal(t, "java/lang/NullPointerException", thrown.ClassName())
}
