package classloader_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"vjvm/classfile"
	"vjvm/classloader"
	"vjvm/globals"
	"vjvm/types"
)

// buildClassBytes hand-assembles a minimal, method-and-field-free .class
// file: just enough constant pool, this/super/interfaces to exercise the
// parser and the loader's linking order.
func buildClassBytes(t *testing.T, major uint16, thisName, superName string, interfaces []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	u2 := func(v uint16) { binary.Write(&buf, binary.BigEndian, v) }
	u4 := func(v uint32) { binary.Write(&buf, binary.BigEndian, v) }

	u4(0xCAFEBABE)
	u2(0)      // minor
	u2(major)  // major

	type poolEntry struct {
		tag  byte
		utf8 string
		idx  uint16 // for Class entries: NameIndex
	}
	var entries []poolEntry
	utf8Index := map[string]uint16{}
	addUtf8 := func(s string) uint16 {
		if idx, ok := utf8Index[s]; ok {
			return idx
		}
		entries = append(entries, poolEntry{tag: byte(classfile.TagUtf8), utf8: s})
		idx := uint16(len(entries))
		utf8Index[s] = idx
		return idx
	}
	addClass := func(name string) uint16 {
		nameIdx := addUtf8(name)
		entries = append(entries, poolEntry{tag: byte(classfile.TagClass), idx: nameIdx})
		return uint16(len(entries))
	}

	thisIdx := addClass(thisName)
	var superIdx uint16
	if superName != "" {
		superIdx = addClass(superName)
	}
	ifaceIdxs := make([]uint16, len(interfaces))
	for i, iface := range interfaces {
		ifaceIdxs[i] = addClass(iface)
	}

	u2(uint16(len(entries) + 1)) // constant_pool_count
	for _, e := range entries {
		buf.WriteByte(e.tag)
		switch classfile.Tag(e.tag) {
		case classfile.TagUtf8:
			u2(uint16(len(e.utf8)))
			buf.WriteString(e.utf8)
		case classfile.TagClass:
			u2(e.idx)
		}
	}

	u2(classfile.AccPublic) // access_flags
	u2(thisIdx)
	u2(superIdx)
	u2(uint16(len(ifaceIdxs)))
	for _, idx := range ifaceIdxs {
		u2(idx)
	}
	u2(0) // fields_count
	u2(0) // methods_count
	u2(0) // attributes_count

	return buf.Bytes()
}

func freshGlobals() {
	globals.InitGlobals("test")
}

func bootstrapWithObject() *classloader.Loader {
	fs := afero.NewMemMapFs()
	boot := classloader.NewLoader("bootstrap", nil, fs, nil)
	object := &classfile.Class{
		Name:         types.ObjectClassName,
		Pool:         &classfile.Pool{Entries: make([]classfile.Entry, 1)},
		StaticValues: map[string]interface{}{},
	}
	object.SetState(classfile.StateInitialized)
	boot.Define(object)
	return boot
}

func TestLoadClass_ParentDelegationAndIdempotence(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()

	appFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(appFs, "Foo.class", buildClassBytes(t, types.Java8, "Foo", types.ObjectClassName, nil), 0o644))
	app := classloader.NewLoader("app", boot, appFs, []string{""})

	c1, err := app.LoadClass("Foo")
	require.NoError(t, err)
	require.Equal(t, "Foo", c1.Name)
	require.Equal(t, classfile.StateLinked, c1.State())

	c2, err := app.LoadClass("Foo")
	require.NoError(t, err)
	require.Same(t, c1, c2)

	// Object itself delegates straight to the parent's already-defined copy.
	obj, err := app.LoadClass(types.ObjectClassName)
	require.NoError(t, err)
	require.Equal(t, classfile.StateInitialized, obj.State())
}

func TestLoadClass_ArraySynthesis(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()
	app := classloader.NewLoader("app", boot, afero.NewMemMapFs(), nil)

	arr, err := app.LoadClass("[I")
	require.NoError(t, err)
	require.Equal(t, "[I", arr.Name)
	require.Equal(t, classfile.StateInitialized, arr.State())

	arr2, err := app.LoadClass("[I")
	require.NoError(t, err)
	require.Same(t, arr, arr2)
}

func TestLoadClass_ArraySynthesisResolvesElementClass(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()

	appFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(appFs, "Foo.class", buildClassBytes(t, types.Java8, "Foo", types.ObjectClassName, nil), 0o644))
	app := classloader.NewLoader("app", boot, appFs, []string{""})

	arr, err := app.LoadClass("[LFoo;")
	require.NoError(t, err)
	require.Equal(t, "[LFoo;", arr.Name)

	elem, err := app.LoadClass("Foo")
	require.NoError(t, err)
	require.Equal(t, classfile.StateLinked, elem.State())
}

func TestLoadClass_RejectsClassAboveVersionCeiling(t *testing.T) {
	freshGlobals()
	globals.GetGlobalRef().VersionCeiling = types.Java8

	boot := bootstrapWithObject()
	appFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(appFs, "Foo.class", buildClassBytes(t, types.Java17, "Foo", types.ObjectClassName, nil), 0o644))
	app := classloader.NewLoader("app", boot, appFs, []string{""})

	_, err := app.LoadClass("Foo")
	require.Error(t, err)
	var verErr *classloader.UnsupportedClassFileVersionError
	require.ErrorAs(t, err, &verErr)
}

func TestLoadClass_NotFound(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()
	app := classloader.NewLoader("app", boot, afero.NewMemMapFs(), []string{""})

	_, err := app.LoadClass("DoesNotExist")
	require.Error(t, err)
	var notFound *classloader.ClassNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func linkedStubClass(name, super string) *classfile.Class {
	c := &classfile.Class{
		Name:         name,
		Super:        super,
		Pool:         &classfile.Pool{Entries: make([]classfile.Entry, 1)},
		StaticValues: map[string]interface{}{},
	}
	c.SetState(classfile.StateLinked)
	return c
}

func TestEnsureInitialized_ExactlyOnceUnderConcurrency(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()
	app := classloader.NewLoader("app", boot, afero.NewMemMapFs(), nil)
	class := linkedStubClass("Foo", types.ObjectClassName)
	app.Define(class)

	var runs int32
	clinit := func(c *classfile.Class) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			errs[i] = app.EnsureInitialized(class, int64(i%5), clinit)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, runs)
	require.Equal(t, classfile.StateInitialized, class.State())
}

func TestEnsureInitialized_ReentrantSameThread(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()
	app := classloader.NewLoader("app", boot, afero.NewMemMapFs(), nil)
	app.Define(linkedStubClass("java/lang/Object", ""))
	class := linkedStubClass("Foo", types.ObjectClassName)
	app.Define(class)

	const threadID = int64(7)
	var clinit classloader.ClinitFunc
	clinit = func(c *classfile.Class) error {
		// <clinit> recursing into its own class's initialization, e.g. via
		// a static factory call, must not deadlock.
		return app.EnsureInitialized(c, threadID, clinit)
	}

	err := app.EnsureInitialized(class, threadID, clinit)
	require.NoError(t, err)
	require.Equal(t, classfile.StateInitialized, class.State())
}

func TestEnsureInitialized_FailureIsSticky(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()
	app := classloader.NewLoader("app", boot, afero.NewMemMapFs(), nil)
	class := linkedStubClass("Foo", types.ObjectClassName)
	app.Define(class)

	var runs int32
	clinitErr := errors.New("boom")
	clinit := func(c *classfile.Class) error {
		atomic.AddInt32(&runs, 1)
		return clinitErr
	}

	err := app.EnsureInitialized(class, 1, clinit)
	require.Error(t, err)
	require.Equal(t, classfile.StateFailed, class.State())

	err = app.EnsureInitialized(class, 2, clinit)
	require.Error(t, err)
	var notDef *classloader.NoClassDefFoundError
	require.ErrorAs(t, err, &notDef)
	require.EqualValues(t, 1, runs) // second caller never re-runs clinit
}

func TestHierarchy_IsSubclassOfAndCommonSuperclass(t *testing.T) {
	freshGlobals()
	boot := bootstrapWithObject()
	appFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(appFs, "Animal.class", buildClassBytes(t, types.Java8, "Animal", types.ObjectClassName, nil), 0o644))
	require.NoError(t, afero.WriteFile(appFs, "Dog.class", buildClassBytes(t, types.Java8, "Dog", "Animal", nil), 0o644))
	require.NoError(t, afero.WriteFile(appFs, "Cat.class", buildClassBytes(t, types.Java8, "Cat", "Animal", nil), 0o644))
	app := classloader.NewLoader("app", boot, appFs, []string{""})

	h := classloader.Hierarchy{Loader: app}
	require.True(t, h.IsSubclassOf("Dog", "Animal"))
	require.True(t, h.IsSubclassOf("Dog", types.ObjectClassName))
	require.False(t, h.IsSubclassOf("Cat", "Dog"))
	require.Equal(t, "Animal", h.CommonSuperclass("Dog", "Cat"))
}
