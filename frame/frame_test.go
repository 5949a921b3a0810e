package frame_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/classfile"
	"vjvm/frame"
)

func sampleMethod() *classfile.Method {
	return &classfile.Method{Name: "m", Descriptor: "()V", MaxStack: 4, MaxLocals: 3}
}

func TestPushPopRoundTrip(t *testing.T) {
	f := frame.New(&classfile.Class{Name: "Test"}, sampleMethod())
	require.NoError(t, f.Push(int32(42)))
	v, err := f.Pop()
	require.NoError(t, err)
	require.Equal(t, int32(42), v)
}

func TestCategory2RoundTrip(t *testing.T) {
	f := frame.New(&classfile.Class{Name: "Test"}, sampleMethod())
	require.NoError(t, f.PushCategory2(int64(1234567890123)))
	v, err := f.PopCategory2()
	require.NoError(t, err)
	require.Equal(t, int64(1234567890123), v)
}

func TestLocalsCategory2RoundTrip(t *testing.T) {
	f := frame.New(&classfile.Class{Name: "Test"}, sampleMethod())
	require.NoError(t, f.SetLocalCategory2(0, 3.14))
	require.Equal(t, frame.Hole, f.Locals[1])
	v, err := f.GetLocal(0)
	require.NoError(t, err)
	require.Equal(t, 3.14, v)
}

func TestPushOverflow(t *testing.T) {
	f := frame.New(&classfile.Class{Name: "Test"}, &classfile.Method{MaxStack: 1, MaxLocals: 0})
	require.NoError(t, f.Push(int32(1)))
	require.Error(t, f.Push(int32(2)))
}

func TestPopUnderflow(t *testing.T) {
	f := frame.New(&classfile.Class{Name: "Test"}, sampleMethod())
	_, err := f.Pop()
	require.Error(t, err)
}

func TestPopN(t *testing.T) {
	f := frame.New(&classfile.Class{Name: "Test"}, sampleMethod())
	require.NoError(t, f.Push(int32(1)))
	require.NoError(t, f.Push(int32(2)))
	require.NoError(t, f.Push(int32(3)))
	args, err := f.PopN(2)
	require.NoError(t, err)
	require.Equal(t, []interface{}{int32(2), int32(3)}, args)
	remaining, err := f.Pop()
	require.NoError(t, err)
	require.Equal(t, int32(1), remaining)
}
