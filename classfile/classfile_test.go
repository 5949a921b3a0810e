package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/classfile"
	"vjvm/types"
)

func samplePool() *classfile.Pool {
	p := &classfile.Pool{Entries: make([]classfile.Entry, 6)}
	p.Entries[1] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "java/lang/Object"}
	p.Entries[2] = classfile.Entry{Tag: classfile.TagClass, NameIndex: 1}
	p.Entries[3] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "toString"}
	p.Entries[4] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "()Ljava/lang/String;"}
	p.Entries[5] = classfile.Entry{Tag: classfile.TagNameAndType, NameIndex: 3, DescIndex: 4}
	return p
}

func TestClassNameAtResolves(t *testing.T) {
	p := samplePool()
	name, err := p.ClassNameAt(2)
	require.NoError(t, err)
	require.Equal(t, "java/lang/Object", name)
}

func TestNameAndTypeAtResolves(t *testing.T) {
	p := samplePool()
	name, desc, err := p.NameAndTypeAt(5)
	require.NoError(t, err)
	require.Equal(t, "toString", name)
	require.Equal(t, "()Ljava/lang/String;", desc)
}

func TestGetOutOfRangeIsError(t *testing.T) {
	p := samplePool()
	_, err := p.Get(0)
	require.Error(t, err)
	_, err = p.Get(99)
	require.Error(t, err)
}

func TestExpectWrongTagIsError(t *testing.T) {
	p := samplePool()
	_, err := p.Utf8At(2) // index 2 is a Class, not Utf8
	require.Error(t, err)
	var typeErr *classfile.InvalidConstantPoolIndexTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestVerifyDetectsBadClassNameIndex(t *testing.T) {
	p := &classfile.Pool{Entries: make([]classfile.Entry, 3)}
	p.Entries[1] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "X"}
	p.Entries[2] = classfile.Entry{Tag: classfile.TagClass, NameIndex: 99}

	err := p.Verify(types.ClassFileVersion{Major: types.Java8})
	require.Error(t, err)
}

func TestVerifyRejectsTooOldVersionForDynamic(t *testing.T) {
	p := &classfile.Pool{Entries: make([]classfile.Entry, 4)}
	p.Entries[1] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "bsm"}
	p.Entries[2] = classfile.Entry{Tag: classfile.TagUtf8, Utf8: "()V"}
	p.Entries[3] = classfile.Entry{Tag: classfile.TagNameAndType, NameIndex: 1, DescIndex: 2}

	p.Entries = append(p.Entries, classfile.Entry{Tag: classfile.TagInvokeDynamic, NameAndTypeIndex: 3})

	err := p.Verify(types.ClassFileVersion{Major: types.Java6})
	require.Error(t, err)
	var verErr *classfile.InvalidVersionConstantError
	require.ErrorAs(t, err, &verErr)
}

func TestClassInitStateTransitions(t *testing.T) {
	c := &classfile.Class{Name: "Foo"}
	c.SetState(classfile.StateLinked)
	require.True(t, c.CompareAndSwapState(classfile.StateLinked, classfile.StateInitializing, 42))
	require.Equal(t, int64(42), c.InitializingThread())
	require.False(t, c.CompareAndSwapState(classfile.StateLinked, classfile.StateInitializing, 7))
	c.SetState(classfile.StateInitialized)
	require.Equal(t, classfile.StateInitialized, c.State())
}

func TestFindMethodAndField(t *testing.T) {
	c := &classfile.Class{
		Methods: []*classfile.Method{{Name: "main", Descriptor: "([Ljava/lang/String;)V"}},
		Fields:  []*classfile.Field{{Name: "count", Descriptor: "I"}},
	}
	require.NotNil(t, c.FindMethod("main", "([Ljava/lang/String;)V"))
	require.Nil(t, c.FindMethod("main", "()V"))
	require.NotNil(t, c.FindField("count"))
	require.Nil(t, c.FindField("missing"))
}
