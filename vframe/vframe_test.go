package vframe_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/vframe"
	"vjvm/vtype"
)

type fakeHierarchy struct{}

func (fakeHierarchy) IsSubclassOf(sub, super string) bool { return sub == super }
func (fakeHierarchy) CommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	return "java/lang/Object"
}

func TestPushPopRoundTrip(t *testing.T) {
	f := vframe.New(2, 4)
	require.NoError(t, f.Push(vtype.IntegerType()))
	require.Equal(t, 1, f.StackDepth())
	v, err := f.Pop()
	require.NoError(t, err)
	require.Equal(t, vtype.Integer, v.Kind)
	require.Equal(t, 0, f.StackDepth())
}

func TestPushOverflow(t *testing.T) {
	f := vframe.New(0, 1)
	require.NoError(t, f.Push(vtype.IntegerType()))
	require.Error(t, f.Push(vtype.IntegerType()))
}

func TestPopUnderflow(t *testing.T) {
	f := vframe.New(0, 1)
	_, err := f.Pop()
	require.Error(t, err)
}

func TestCategory2StackRoundTrip(t *testing.T) {
	f := vframe.New(0, 4)
	require.NoError(t, f.PushCategory2(vtype.LongType()))
	require.Equal(t, 2, f.StackDepth())
	v, err := f.PopCategory2()
	require.NoError(t, err)
	require.Equal(t, vtype.Long, v.Kind)
}

func TestPopCategory2Mismatch(t *testing.T) {
	f := vframe.New(0, 4)
	require.NoError(t, f.Push(vtype.IntegerType()))
	_, err := f.PopCategory2()
	require.Error(t, err)
}

func TestLocalsBoundsAndCategory2(t *testing.T) {
	f := vframe.New(4, 2)
	require.NoError(t, f.SetLocal(0, vtype.IntegerType()))
	v, err := f.GetLocal(0)
	require.NoError(t, err)
	require.Equal(t, vtype.Integer, v.Kind)

	require.NoError(t, f.SetLocalCategory2(1, vtype.DoubleType()))
	second, err := f.GetLocal(2)
	require.NoError(t, err)
	require.Equal(t, vtype.Top, second.Kind)

	_, err = f.GetLocal(10)
	require.Error(t, err)
}

func TestMergeStackDepthMismatch(t *testing.T) {
	a := vframe.New(0, 4)
	require.NoError(t, a.Push(vtype.IntegerType()))
	b := vframe.New(0, 4)
	_, err := a.Merge(b, fakeHierarchy{})
	require.Error(t, err)
}

func TestMergeChangedDetection(t *testing.T) {
	h := fakeHierarchy{}
	a := vframe.WithLocals([]vtype.Type{vtype.ObjectType("A")}, 0)
	b := vframe.WithLocals([]vtype.Type{vtype.ObjectType("B")}, 0)

	changed, err := a.Merge(b, h)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "java/lang/Object", a.Locals[0].ClassName)

	changed, err = a.Merge(b, h)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestInitializeObjectReplacesAllOccurrences(t *testing.T) {
	uninit := vtype.UninitializedType(3)
	initialized := vtype.ObjectType("Foo")
	f := vframe.WithLocals([]vtype.Type{uninit, vtype.IntegerType()}, 4)
	require.NoError(t, f.Push(uninit))

	f.InitializeObject(uninit, initialized)
	require.True(t, f.Locals[0].Equal(initialized))
	top, err := f.Peek()
	require.NoError(t, err)
	require.True(t, top.Equal(initialized))
}
