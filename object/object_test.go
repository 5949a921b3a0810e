package object_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/object"
)

func TestNewObjectZeroValues(t *testing.T) {
	o := object.NewObject("Foo", map[string]string{
		"count": "I",
		"name":  "Ljava/lang/String;",
	})
	require.Equal(t, "Foo", o.ClassName())
	require.Equal(t, int32(0), o.Fields["count"].Value)
	require.Nil(t, o.Fields["name"].Value)
}

func TestNewArrayZeroValuesAndLength(t *testing.T) {
	a := object.NewArray("I", 5)
	require.Equal(t, 5, a.Length())
	for _, v := range a.Elements {
		require.Equal(t, int32(0), v)
	}
	require.False(t, a.IsCategory2Array())

	la := object.NewArray("J", 2)
	require.True(t, la.IsCategory2Array())
}

func TestMonitorReentrant(t *testing.T) {
	o := object.NewObject("Foo", nil)
	m := o.Monitor()
	m.Enter(1)
	m.Enter(1) // re-entrant, same thread
	require.True(t, m.IsHeldBy(1))

	require.NoError(t, m.Exit(1))
	require.True(t, m.IsHeldBy(1)) // depth 1 remains
	require.NoError(t, m.Exit(1))
	require.False(t, m.IsHeldBy(1))
}

func TestMonitorExitByNonOwnerErrors(t *testing.T) {
	o := object.NewObject("Foo", nil)
	m := o.Monitor()
	m.Enter(1)
	err := m.Exit(2)
	require.ErrorIs(t, err, object.ErrNotOwner)
}

func TestMonitorBlocksOtherThread(t *testing.T) {
	o := object.NewObject("Foo", nil)
	m := o.Monitor()
	m.Enter(1)

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Enter(2)
		close(acquired)
		_ = m.Exit(2)
	}()

	select {
	case <-acquired:
		t.Fatal("second thread acquired monitor while first thread held it")
	default:
	}

	require.NoError(t, m.Exit(1))
	wg.Wait()
}
