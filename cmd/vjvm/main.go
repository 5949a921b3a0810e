// Command vjvm is the engine's entry point: it parses the JVM-style
// command line (spec §6), assembles a bootstrap class loader over the
// resolved class path, and runs the selected class's main method on a
// freshly created thread, mirroring jacobin's cli.go/Main top-level
// shape (parse args, build Globals, hand off to the interpreter) even
// though this retrieval pack's teacher copy carries only that file's
// test, not its source.
package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"vjvm/classloader"
	"vjvm/config"
	"vjvm/gfunction"
	"vjvm/globals"
	"vjvm/interp"
	"vjvm/log"
	"vjvm/object"
	"vjvm/thread"
	"vjvm/trace"
)

func main() {
	os.Exit(run(os.Args))
}

// run parses args and executes the selected program, returning the
// process exit code (0 on normal completion of main, nonzero on an
// uncaught exception or startup failure, per spec §6's exit-code rule).
// Taking args explicitly (rather than reading os.Args internally)
// follows jacobin_teacher_src/cli_test.go's HandleCli(args) convention,
// which let the teacher's own tests drive the CLI without a real
// process per invocation.
func run(args []string) int {
	log.Init()
	g := globals.InitGlobals(filepath.Base(args[0]))

	sysProps, rest := extractSystemProperties(args[1:])
	verifyFlag, rest := extractVerifyFlag(rest)
	applyVerifyFlag(g, verifyFlag)

	cfg := config.New()
	for _, kv := range sysProps {
		key, value, ok := config.ParseSystemProperty(kv)
		if ok {
			cfg.ApplySystemProperty(key, value)
		}
	}
	cfg.Apply()
	if env := cfg.EnvArgs(); env != "" {
		rest = append(strings.Fields(env), rest...)
	}

	app := buildApp(g)
	if err := app.Run(append([]string{args[0]}, rest...)); err != nil {
		fmt.Fprintln(os.Stderr, "vjvm: "+err.Error())
		return 1
	}
	return g.ExitCode
}

// extractSystemProperties pulls every -D<key>=<value> token out of args;
// urfave/cli has no native support for java's concatenated flag syntax,
// so these are hand-extracted before the rest go to the cli.App, the
// same pre-pass jacobin's own cli.go does for -D before its flag table
// takes over.
func extractSystemProperties(args []string) (props, rest []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "-D") {
			props = append(props, a)
			continue
		}
		rest = append(rest, a)
	}
	return props, rest
}

// extractVerifyFlag pulls -Xverify:none|remote|all out of args, the same
// colon-attached syntax -D uses and which urfave/cli cannot parse as an
// ordinary flag=value pair.
func extractVerifyFlag(args []string) (verify string, rest []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "-Xverify:") {
			verify = strings.TrimPrefix(a, "-Xverify:")
			continue
		}
		rest = append(rest, a)
	}
	return verify, rest
}

func applyVerifyFlag(g *globals.Globals, verify string) {
	switch verify {
	case "none":
		g.VerifyNone = true
	case "", "remote", "all":
		g.VerifyNone = false
	default:
		fmt.Fprintf(os.Stderr, "vjvm: unrecognized -Xverify value %q, ignoring\n", verify)
	}
}

func buildApp(g *globals.Globals) *cli.App {
	return &cli.App{
		Name:                   "vjvm",
		Usage:                  "a from-scratch Java virtual machine",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "class-path", Aliases: []string{"cp", "classpath"}},
			&cli.StringFlag{Name: "module-path", Aliases: []string{"p"}},
			&cli.StringFlag{Name: "module", Aliases: []string{"m"}},
			&cli.StringFlag{Name: "jar"},
			&cli.BoolFlag{Name: "enable-preview"},
			&cli.StringFlag{Name: "java-version"},
			&cli.StringFlag{Name: "add-modules"},
			&cli.StringFlag{Name: "limit-modules"},
			&cli.StringFlag{Name: "upgrade-module-path"},
			&cli.StringSliceFlag{Name: "add-reads"},
			&cli.StringSliceFlag{Name: "add-exports"},
			&cli.StringSliceFlag{Name: "add-opens"},
			&cli.StringSliceFlag{Name: "patch-module"},
		},
		Action: func(c *cli.Context) error {
			return launch(g, c)
		},
	}
}

// launch resolves the classpath, the entry class, and its argument
// vector, then runs main(String[]) to completion.
func launch(g *globals.Globals, c *cli.Context) error {
	if v := c.String("java-version"); v != "" {
		ceiling, err := config.ResolveVersionCeiling(v)
		if err != nil {
			return err
		}
		if ceiling != 0 {
			g.VersionCeiling = ceiling
		}
	}

	roots := splitClassPath(c.String("class-path"))

	mainClass := ""
	var progArgs []string

	switch {
	case c.String("jar") != "":
		jarPath := c.String("jar")
		roots = append([]string{jarPath}, roots...)
		name, err := mainClassFromManifest(jarPath)
		if err != nil {
			return err
		}
		mainClass = name
		g.StartingJar = jarPath
		progArgs = c.Args().Slice()

	case c.String("module") != "":
		mod := c.String("module")
		if idx := strings.IndexByte(mod, '/'); idx >= 0 {
			mainClass = mod[idx+1:]
		} else {
			return fmt.Errorf("vjvm: -m %s does not name a main class (module-only resolution is unsupported)", mod)
		}
		progArgs = c.Args().Slice()

	default:
		if c.Args().Len() == 0 {
			return fmt.Errorf("vjvm: no main class, --jar, or --module given")
		}
		mainClass = strings.ReplaceAll(c.Args().First(), ".", "/")
		progArgs = c.Args().Tail()
	}

	g.StartingClass = mainClass
	g.AppArgs = progArgs

	loader := classloader.NewLoader("bootstrap", nil, afero.NewOsFs(), roots)
	gfuncs := gfunction.NewRegistry()
	if err := gfunction.RegisterBuiltins(gfuncs); err != nil {
		return fmt.Errorf("vjvm: registering intrinsics: %w", err)
	}

	class, err := loader.LoadClass(mainClass)
	if err != nil {
		return fmt.Errorf("vjvm: could not load %s: %w", mainClass, err)
	}
	method := class.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil || !method.IsStatic() {
		return fmt.Errorf("vjvm: %s has no static main([Ljava/lang/String;)V", mainClass)
	}

	mainThread := thread.New(g.NextThreadID(), "main", loader, gfuncs)
	args := []interface{}{stringArray(progArgs)}

	if g.TraceClass {
		trace.Trace(fmt.Sprintf("[main] starting %s.main", mainClass))
	}

	_, _, thrown, err := interp.RunMain(mainThread, class, method, args)
	if err != nil {
		return fmt.Errorf("vjvm: %w", err)
	}
	if thrown != nil {
		fmt.Fprintf(os.Stderr, "Exception in thread \"main\" %s\n", thrown.ClassName())
		g.ExitCode = 1
	}
	return nil
}

func stringArray(args []string) *object.Array {
	arr := object.NewArray("Ljava/lang/String;", len(args))
	for i, a := range args {
		arr.Elements[i] = a
	}
	return arr
}

func splitClassPath(cp string) []string {
	if cp == "" {
		return nil
	}
	return strings.Split(cp, string(os.PathListSeparator))
}

// mainClassFromManifest reads META-INF/MANIFEST.MF's Main-Class header
// out of a jar directly (spec §6's "(b) ... MANIFEST.MF whose Main-Class
// attribute selects the entry point"); this is a cmd-level concern
// distinct from classloader/jar.go's job of resolving individual class
// entries, which deliberately never interprets the manifest itself.
func mainClassFromManifest(jarPath string) (string, error) {
	f, err := os.Open(jarPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("%s: %w", jarPath, err)
	}
	for _, zf := range zr.File {
		if zf.Name != "META-INF/MANIFEST.MF" {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimRight(line, "\r")
			const key = "Main-Class:"
			if strings.HasPrefix(line, key) {
				return strings.TrimSpace(strings.TrimPrefix(line, key)), nil
			}
		}
		return "", fmt.Errorf("%s: no Main-Class in META-INF/MANIFEST.MF", jarPath)
	}
	return "", fmt.Errorf("%s: no META-INF/MANIFEST.MF entry", jarPath)
}
