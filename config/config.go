// Package config binds the engine's startup configuration -- system
// properties from -D flags, the JAVA_TOOL_OPTIONS/_JAVA_OPTIONS/
// JDK_JAVA_OPTIONS environment variables, JAVA_HOME inference, and
// --java-version class-file-version selection -- through viper, mirroring
// jacobin's cli.go option handling but routed through a real config
// library instead of hand-rolled flag parsing.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"vjvm/globals"
	"vjvm/log"
	"vjvm/types"
)

// envOptionVars lists the JVM-recognized environment variables carrying
// extra command-line options, in JDK precedence order: JAVA_TOOL_OPTIONS
// is consulted first, then _JAVA_OPTIONS, then JDK_JAVA_OPTIONS.
var envOptionVars = []string{"JAVA_TOOL_OPTIONS", "_JAVA_OPTIONS", "JDK_JAVA_OPTIONS"}

// Config wraps a viper instance bound to the process environment plus the
// subset of VM configuration it resolves into globals.Globals.
type Config struct {
	v *viper.Viper
}

// New returns a Config with JAVA_HOME and the JVM option environment
// variables bound for lookup.
func New() *Config {
	v := viper.New()
	v.SetEnvPrefix("")
	for _, name := range envOptionVars {
		_ = v.BindEnv(name)
	}
	_ = v.BindEnv("JAVA_HOME")
	return &Config{v: v}
}

// EnvArgs concatenates every set JVM option environment variable, space
// separated, in JDK precedence order -- the same behavior jacobin's
// getEnvArgs exercises in cli_test.go.
func (c *Config) EnvArgs() string {
	var parts []string
	for _, name := range envOptionVars {
		if val := c.v.GetString(name); val != "" {
			parts = append(parts, val)
		}
	}
	return strings.Join(parts, " ")
}

// JavaHome returns the bound JAVA_HOME value, or "" if unset.
func (c *Config) JavaHome() string {
	return c.v.GetString("JAVA_HOME")
}

// ParseSystemProperty parses a single "-Dkey=value" (or bare "-Dkey",
// which sets an empty value per java's own -D handling) CLI argument into
// its key/value, returning ok=false if arg isn't a -D flag at all.
func ParseSystemProperty(arg string) (key, value string, ok bool) {
	if !strings.HasPrefix(arg, "-D") {
		return "", "", false
	}
	rest := arg[2:]
	if rest == "" {
		return "", "", false
	}
	if idx := strings.IndexByte(rest, '='); idx >= 0 {
		return rest[:idx], rest[idx+1:], true
	}
	return rest, "", true
}

// ApplySystemProperty records a parsed -D property into both this
// Config's viper instance (so later lookups go through one place) and
// globals.Globals.SystemProperties, which is what System.getProperty
// intrinsics read at runtime.
func (c *Config) ApplySystemProperty(key, value string) {
	c.v.Set(key, value)
	globals.GetGlobalRef().SystemProperties[key] = value
}

// ResolveVersionCeiling maps a --java-version flag value ("8", "11",
// "17", "1.8", ...) to the corresponding class-file major version,
// per JVMS ยง4.1's version-per-release table; releases above 21 map to
// Java21 (65). An empty flag keeps the
// engine's compiled-in default (globals.newDefault's Java17 ceiling).
func ResolveVersionCeiling(flag string) (uint16, error) {
	if flag == "" {
		return 0, nil
	}
	normalized := strings.TrimPrefix(flag, "1.")
	n, err := strconv.Atoi(normalized)
	if err != nil {
		return 0, fmt.Errorf("config: invalid --java-version value %q", flag)
	}
	switch {
	case n <= 1:
		return types.Java1, nil
	case n >= 21:
		return types.Java21, nil
	default:
		// Releases 2 through 20 have consecutive major versions, 46..64.
		return types.Java1 + uint16(n-1), nil
	}
}

// Apply folds this Config's resolved values (JAVA_HOME, any already-
// parsed -D properties) into the process-wide globals.Globals, logging
// at CONFIG level the way jacobin's cli.go logs option resolution.
func (c *Config) Apply() {
	g := globals.GetGlobalRef()
	if home := c.JavaHome(); home != "" {
		g.JavaHome = home
		_ = log.Log(fmt.Sprintf("JAVA_HOME resolved to %s", home), log.CONFIG)
	}
}
