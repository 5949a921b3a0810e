package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"vjvm/config"
	"vjvm/globals"
)

func clearEnvOptions(t *testing.T) {
	t.Helper()
	os.Unsetenv("JAVA_TOOL_OPTIONS")
	os.Unsetenv("_JAVA_OPTIONS")
	os.Unsetenv("JDK_JAVA_OPTIONS")
}

func TestEnvArgs_EmptyWhenAbsent(t *testing.T) {
	clearEnvOptions(t)
	t.Cleanup(func() { clearEnvOptions(t) })

	require.Equal(t, "", config.New().EnvArgs())
}

func TestEnvArgs_JoinsSetVariablesInPrecedenceOrder(t *testing.T) {
	clearEnvOptions(t)
	t.Cleanup(func() { clearEnvOptions(t) })

	os.Setenv("_JAVA_OPTIONS", "Hello,")
	os.Setenv("JDK_JAVA_OPTIONS", "Jacobin!")

	require.Equal(t, "Hello, Jacobin!", config.New().EnvArgs())
}

func TestParseSystemProperty(t *testing.T) {
	key, value, ok := config.ParseSystemProperty("-Duser.dir=/tmp")
	require.True(t, ok)
	require.Equal(t, "user.dir", key)
	require.Equal(t, "/tmp", value)

	key, value, ok = config.ParseSystemProperty("-Dfoo")
	require.True(t, ok)
	require.Equal(t, "foo", key)
	require.Equal(t, "", value)

	_, _, ok = config.ParseSystemProperty("-cp")
	require.False(t, ok)

	_, _, ok = config.ParseSystemProperty("-D")
	require.False(t, ok)
}

func TestApplySystemProperty_RecordsIntoGlobals(t *testing.T) {
	globals.InitGlobals("test")
	c := config.New()
	c.ApplySystemProperty("user.dir", "/tmp")

	require.Equal(t, "/tmp", globals.GetGlobalRef().SystemProperties["user.dir"])
}

func TestResolveVersionCeiling(t *testing.T) {
	cases := []struct {
		flag string
		want uint16
	}{
		{"", 0},
		{"8", 52},
		{"1.8", 52},
		{"11", 55},
		{"17", 61},
		{"21", 65},
		{"99", 65},
	}
	for _, tc := range cases {
		got, err := config.ResolveVersionCeiling(tc.flag)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := config.ResolveVersionCeiling("not-a-version")
	require.Error(t, err)
}
