// Package classloader implements the class loader hierarchy (component
// C8): named loaders with parent-delegation, a compact .class file
// parser (C7's wire format), the Loaded/Linked/Initializing/Initialized
// state machine, and a concrete vtype.Hierarchy for the verifier.
package classloader

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"vjvm/classfile"
	"vjvm/globals"
	"vjvm/trace"
)

// Loader is one named class loader in the delegation chain, mirroring
// jacobin's bootstrap/extension/application loader triple but
// generalized to any parent chain, per spec ยง4.8.
type Loader struct {
	Name   string
	Parent *Loader
	Fs     afero.Fs // classpath root; nil for a loader that defines no classes itself (e.g. a pure delegator)
	Roots  []string // directories and .jar files searched, in order, under Fs

	mu      sync.Mutex
	defined map[string]*classfile.Class

	group singleflight.Group
}

// NewLoader creates a named loader with the given parent and classpath
// entries. A nil parent marks the bootstrap loader, the top of the
// delegation chain.
func NewLoader(name string, parent *Loader, fs afero.Fs, roots []string) *Loader {
	return &Loader{
		Name:    name,
		Parent:  parent,
		Fs:      fs,
		Roots:   roots,
		defined: map[string]*classfile.Class{},
	}
}

// LoadClass resolves name (internal, slash form) to a linked Class,
// following spec ยง4.8's load_class algorithm: check this loader's own
// table, delegate to the parent, and only then search this loader's own
// classpath. Concurrent calls for the same name are deduplicated via
// singleflight so a class is parsed and linked at most once regardless
// of how many goroutines request it simultaneously.
func (l *Loader) LoadClass(name string) (*classfile.Class, error) {
	if strings.HasPrefix(name, "[") {
		return l.loadArrayClass(name)
	}

	if c := l.lookupDefined(name); c != nil {
		return c, nil
	}

	if l.Parent != nil {
		if c, err := l.Parent.LoadClass(name); err == nil {
			return c, nil
		}
		// fall through: this loader still gets a chance to define it
		// itself, per the standard delegation model -- the parent's
		// failure to find it is not fatal to the child's own search.
	}

	v, err, _ := l.group.Do(name, func() (interface{}, error) {
		if c := l.lookupDefined(name); c != nil {
			return c, nil
		}
		return l.defineFromClasspath(name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*classfile.Class), nil
}

func (l *Loader) lookupDefined(name string) *classfile.Class {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.defined[name]
}

// Define registers class under this loader directly, bypassing the
// classpath search. Used to seed a bootstrap loader with the handful of
// classes the engine itself must define rather than read from disk
// (java/lang/Object chief among them, since it has no supertype to
// delegate for).
func (l *Loader) Define(class *classfile.Class) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defined[class.Name] = class
}

func (l *Loader) defineFromClasspath(name string) (*classfile.Class, error) {
	if l.Fs == nil {
		return nil, &ClassNotFoundError{ClassName: name}
	}

	raw, err := l.readClassBytes(name)
	if err != nil {
		return nil, &ClassNotFoundError{ClassName: name}
	}

	class, err := parseClassBytes(raw)
	if err != nil {
		return nil, &ClassFormatError{ClassName: name, Cause: err}
	}
	if class.Name != name {
		return nil, &ClassFormatError{ClassName: name, Cause: fmt.Errorf("this_class %q does not match requested name", class.Name)}
	}

	g := globals.GetGlobalRef()
	if class.Version.Major > g.VersionCeiling {
		return nil, &UnsupportedClassFileVersionError{ClassName: name, Major: class.Version.Major, Ceiling: g.VersionCeiling}
	}
	if g.TraceClass {
		trace.Trace(fmt.Sprintf("[%s] loaded %s (version %d)", l.Name, name, class.Version.Major))
	}

	if err := l.link(class); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if existing, ok := l.defined[name]; ok {
		l.mu.Unlock()
		return existing, nil
	}
	l.defined[name] = class
	l.mu.Unlock()
	return class, nil
}

// readClassBytes searches Roots in order for name's .class bytes,
// either as a loose file under a directory root or as an entry inside a
// .jar root.
func (l *Loader) readClassBytes(name string) ([]byte, error) {
	entryPath := name + ".class"
	for _, root := range l.Roots {
		if strings.HasSuffix(strings.ToLower(root), ".jar") {
			b, err := readJarEntry(l.Fs, root, entryPath)
			if err == nil {
				return b, nil
			}
			continue
		}
		b, err := afero.ReadFile(l.Fs, path.Join(root, entryPath))
		if err == nil {
			return b, nil
		}
	}
	return nil, &ClassNotFoundError{ClassName: name}
}

// loadArrayClass synthesizes a Class for an array type descriptor (spec
// ยง4.8: "array classes are not read from the classpath; they are
// synthesized"). Its component type, if itself a class/array, is
// resolved (and thereby loaded) eagerly, but an array class is never
// itself parsed from bytes.
func (l *Loader) loadArrayClass(descriptor string) (*classfile.Class, error) {
	if c := l.lookupDefined(descriptor); c != nil {
		return c, nil
	}
	v, err, _ := l.group.Do(descriptor, func() (interface{}, error) {
		if c := l.lookupDefined(descriptor); c != nil {
			return c, nil
		}
		elem := strings.TrimPrefix(descriptor, "[")
		if strings.HasPrefix(elem, "L") && strings.HasSuffix(elem, ";") {
			className := elem[1 : len(elem)-1]
			if _, err := l.LoadClass(className); err != nil {
				return nil, err
			}
		} else if strings.HasPrefix(elem, "[") {
			if _, err := l.loadArrayClass(elem); err != nil {
				return nil, err
			}
		}
		class := &classfile.Class{
			Name:         descriptor,
			Super:        "java/lang/Object",
			AccessFlags:  classfile.AccPublic | classfile.AccFinal,
			Pool:         &classfile.Pool{Entries: make([]classfile.Entry, 1)},
			StaticValues: map[string]interface{}{},
		}
		class.SetState(classfile.StateInitialized) // array classes need no <clinit>

		l.mu.Lock()
		defer l.mu.Unlock()
		if existing, ok := l.defined[descriptor]; ok {
			return existing, nil
		}
		l.defined[descriptor] = class
		return class, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*classfile.Class), nil
}
