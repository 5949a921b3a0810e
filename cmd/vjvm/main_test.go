package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/globals"
)

func TestExtractSystemProperties(t *testing.T) {
	props, rest := extractSystemProperties([]string{"-Duser.dir=/tmp", "-cp", ".", "-Dfoo", "Main"})
	require.Equal(t, []string{"-Duser.dir=/tmp", "-Dfoo"}, props)
	require.Equal(t, []string{"-cp", ".", "Main"}, rest)
}

func TestExtractVerifyFlag(t *testing.T) {
	verify, rest := extractVerifyFlag([]string{"-Xverify:none", "-cp", ".", "Main"})
	require.Equal(t, "none", verify)
	require.Equal(t, []string{"-cp", ".", "Main"}, rest)

	verify, rest = extractVerifyFlag([]string{"-cp", ".", "Main"})
	require.Equal(t, "", verify)
	require.Equal(t, []string{"-cp", ".", "Main"}, rest)
}

func TestApplyVerifyFlag(t *testing.T) {
	g := globals.InitGlobals("test")
	applyVerifyFlag(g, "none")
	require.True(t, g.VerifyNone)

	applyVerifyFlag(g, "all")
	require.False(t, g.VerifyNone)
}

func TestSplitClassPath(t *testing.T) {
	require.Nil(t, splitClassPath(""))
	sep := string(os.PathListSeparator)
	require.Equal(t, []string{"a", "b"}, splitClassPath("a"+sep+"b"))
}

func TestStringArray(t *testing.T) {
	arr := stringArray([]string{"a", "b", "c"})
	require.Equal(t, 3, arr.Length())
	require.Equal(t, "Ljava/lang/String;", arr.ElementDescriptor)
	require.Equal(t, "a", arr.Elements[0])
	require.Equal(t, "c", arr.Elements[2])
}

func TestStringArray_Empty(t *testing.T) {
	arr := stringArray(nil)
	require.Equal(t, 0, arr.Length())
}

func TestRun_NoMainClassFails(t *testing.T) {
	code := run([]string{"vjvm"})
	require.Equal(t, 1, code)
}

func TestRun_ClassNotFoundFails(t *testing.T) {
	code := run([]string{"vjvm", "-cp", t.TempDir(), "NoSuchClass"})
	require.Equal(t, 1, code)
}
