package thread_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"vjvm/classfile"
	"vjvm/classloader"
	"vjvm/frame"
	"vjvm/gfunction"
	"vjvm/globals"
	"vjvm/thread"
)

func freshGlobals() { globals.InitGlobals("test") }

func newThread() *thread.Thread {
	fs := afero.NewMemMapFs()
	loader := classloader.NewLoader("boot", nil, fs, []string{"/classes"})
	return thread.New(1, "main", loader, gfunction.NewRegistry())
}

func TestFrameStackPushPop(t *testing.T) {
	freshGlobals()
	th := newThread()
	require.Equal(t, 0, th.Depth())
	require.Nil(t, th.CurrentFrame())

	f1 := frame.New(&classfile.Class{Name: "A"}, &classfile.Method{Name: "m", MaxStack: 1, MaxLocals: 1})
	th.PushFrame(f1)
	require.Equal(t, 1, th.Depth())
	require.Same(t, f1, th.CurrentFrame())

	popped := th.PopFrame()
	require.Same(t, f1, popped)
	require.Equal(t, 0, th.Depth())
	require.Nil(t, th.PopFrame())
}

func TestInterruptBeforeSleepReturnsImmediately(t *testing.T) {
	freshGlobals()
	th := newThread()
	th.Interrupt()
	start := time.Now()
	err := th.Sleep(5000)
	require.Error(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.False(t, th.IsInterrupted(false), "sleep must clear the flag when it throws")
}

func TestSleepCompletesNormally(t *testing.T) {
	freshGlobals()
	th := newThread()
	start := time.Now()
	require.NoError(t, th.Sleep(20))
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestInterruptDuringSleep(t *testing.T) {
	freshGlobals()
	th := newThread()
	errCh := make(chan error, 1)
	go func() { errCh <- th.Sleep(2000) }()
	time.Sleep(30 * time.Millisecond)
	th.Interrupt()

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("interrupt did not wake the sleeping thread")
	}
}

func TestSetPriorityOutOfRange(t *testing.T) {
	freshGlobals()
	th := newThread()
	require.Error(t, th.SetPriority(0))
	require.Error(t, th.SetPriority(11))
	require.Equal(t, thread.NormPriority, th.Priority())
}

func TestCollectInstanceFieldsMergesSuperclassChain(t *testing.T) {
	freshGlobals()
	fs := afero.NewMemMapFs()
	loader := classloader.NewLoader("boot", nil, fs, []string{"/classes"})

	base := &classfile.Class{
		Name:   "Base",
		Fields: []*classfile.Field{{Name: "x", Descriptor: "I"}},
	}
	base.SetState(classfile.StateInitialized)
	loader.Define(base)

	derived := &classfile.Class{
		Name:  "Derived",
		Super: "Base",
		Fields: []*classfile.Field{
			{Name: "y", Descriptor: "J"},
			{Name: "s", Descriptor: "I", AccessFlags: classfile.AccStatic},
		},
	}
	derived.SetState(classfile.StateInitialized)
	loader.Define(derived)

	th := thread.New(1, "main", loader, gfunction.NewRegistry())
	fields, err := th.CollectInstanceFields(derived)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"x": "I", "y": "J"}, fields)
}
