package vtype_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/vtype"
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
		if h.supers[c] == c {
			break
		}
	}
	return false
}

func (h fakeHierarchy) CommonSuperclass(a, b string) string {
	for c := a; c != ""; c = h.supers[c] {
		if h.IsSubclassOf(b, c) {
			return c
		}
	}
	return "java/lang/Object"
}

func hierarchy() fakeHierarchy {
	return fakeHierarchy{supers: map[string]string{
		"java/lang/Integer": "java/lang/Number",
		"java/lang/Long":    "java/lang/Number",
		"java/lang/Number":  "java/lang/Object",
		"java/lang/String":  "java/lang/Object",
	}}
}

func TestMergeIdentical(t *testing.T) {
	h := hierarchy()
	require.True(t, vtype.Merge(vtype.IntegerType(), vtype.IntegerType(), h).Equal(vtype.IntegerType()))
}

func TestMergeNullWithReference(t *testing.T) {
	h := hierarchy()
	str := vtype.ObjectType("java/lang/String")
	require.True(t, vtype.Merge(vtype.NullType(), str, h).Equal(str))
	require.True(t, vtype.Merge(str, vtype.NullType(), h).Equal(str))
}

func TestMergeCommonSuperclass(t *testing.T) {
	h := hierarchy()
	a := vtype.ObjectType("java/lang/Integer")
	b := vtype.ObjectType("java/lang/Long")
	got := vtype.Merge(a, b, h)
	require.Equal(t, vtype.Object, got.Kind)
	require.Equal(t, "java/lang/Number", got.ClassName)
}

func TestMergeUnrelatedDefaultsToObject(t *testing.T) {
	h := hierarchy()
	a := vtype.ObjectType("java/lang/Integer")
	b := vtype.ObjectType("java/lang/String")
	got := vtype.Merge(a, b, h)
	require.Equal(t, "java/lang/Object", got.ClassName)
}

func TestMergeCategoryMismatchIsTop(t *testing.T) {
	h := hierarchy()
	got := vtype.Merge(vtype.IntegerType(), vtype.ObjectType("java/lang/String"), h)
	require.Equal(t, vtype.Top, got.Kind)
}

func TestMergeAnyWithTopIsTop(t *testing.T) {
	h := hierarchy()
	require.Equal(t, vtype.Top, vtype.Merge(vtype.TopType(), vtype.LongType(), h).Kind)
}

func TestIsAssignablePrimitivesExact(t *testing.T) {
	h := hierarchy()
	require.True(t, vtype.IsAssignable(vtype.IntegerType(), vtype.IntegerType(), h))
	require.False(t, vtype.IsAssignable(vtype.IntegerType(), vtype.FloatType(), h))
}

func TestIsAssignableNullToReference(t *testing.T) {
	h := hierarchy()
	require.True(t, vtype.IsAssignable(vtype.ObjectType("java/lang/String"), vtype.NullType(), h))
}

func TestIsAssignableReferenceHierarchy(t *testing.T) {
	h := hierarchy()
	require.True(t, vtype.IsAssignable(
		vtype.ObjectType("java/lang/Number"),
		vtype.ObjectType("java/lang/Integer"),
		h,
	))
	require.False(t, vtype.IsAssignable(
		vtype.ObjectType("java/lang/Integer"),
		vtype.ObjectType("java/lang/Number"),
		h,
	))
}

func TestIsAssignableUninitializedOnlyToItself(t *testing.T) {
	h := hierarchy()
	u1 := vtype.UninitializedType(5)
	u2 := vtype.UninitializedType(5)
	u3 := vtype.UninitializedType(9)
	require.True(t, vtype.IsAssignable(u1, u2, h))
	require.False(t, vtype.IsAssignable(u1, u3, h))
	require.False(t, vtype.IsAssignable(vtype.ObjectType("java/lang/Object"), u1, h))
}
