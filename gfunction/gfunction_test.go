package gfunction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/gfunction"
)

func TestRegisterAndLookup(t *testing.T) {
	r := gfunction.NewRegistry()
	err := r.Register("java/lang/Foo", "bar", "()V", gfunction.Predicate{Kind: gfunction.Any},
		func(interface{}, []interface{}) (interface{}, error) { return int32(7), nil })
	require.NoError(t, err)

	fn, ok := r.Lookup("java/lang/Foo", "bar", "()V", 52)
	require.True(t, ok)
	v, err := fn(nil, nil)
	require.NoError(t, err)
	require.Equal(t, int32(7), v)
}

func TestLookupMissReturnsFalse(t *testing.T) {
	r := gfunction.NewRegistry()
	_, ok := r.Lookup("java/lang/Foo", "bar", "()V", 52)
	require.False(t, ok)
}

func TestRegisterRejectsAmbiguousOverlap(t *testing.T) {
	r := gfunction.NewRegistry()
	noop := func(interface{}, []interface{}) (interface{}, error) { return nil, nil }
	require.NoError(t, r.Register("C", "m", "()V", gfunction.Predicate{Kind: gfunction.GreaterThanOrEqual, V: 52}, noop))
	err := r.Register("C", "m", "()V", gfunction.Predicate{Kind: gfunction.LessThan, V: 55}, noop)
	require.Error(t, err)
}

func TestRegisterAllowsDisjointVersionRanges(t *testing.T) {
	r := gfunction.NewRegistry()
	old := func(interface{}, []interface{}) (interface{}, error) { return "old", nil }
	modern := func(interface{}, []interface{}) (interface{}, error) { return "modern", nil }
	require.NoError(t, r.Register("C", "m", "()V", gfunction.Predicate{Kind: gfunction.LessThan, V: 55}, old))
	require.NoError(t, r.Register("C", "m", "()V", gfunction.Predicate{Kind: gfunction.GreaterThanOrEqual, V: 55}, modern))

	fn, ok := r.Lookup("C", "m", "()V", 52)
	require.True(t, ok)
	v, _ := fn(nil, nil)
	require.Equal(t, "old", v)

	fn, ok = r.Lookup("C", "m", "()V", 61)
	require.True(t, ok)
	v, _ = fn(nil, nil)
	require.Equal(t, "modern", v)
}

func TestRegisterBuiltinsNoConflicts(t *testing.T) {
	r := gfunction.NewRegistry()
	require.NoError(t, gfunction.RegisterBuiltins(r))
	require.True(t, r.IsRegistered("java/lang/Object", "<init>", "()V"))
	require.True(t, r.IsRegistered("java/lang/Thread", "sleep", "(J)V"))
}
