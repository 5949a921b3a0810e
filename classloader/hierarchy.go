package classloader

import "vjvm/types"

// Hierarchy adapts a Loader to vtype.Hierarchy, so the verifier can ask
// is-a questions without importing classloader directly (vtype/vframe/
// verifier stay free of any class-loading dependency; this is the one
// place that closes the loop).
type Hierarchy struct {
	Loader *Loader
}

// IsSubclassOf reports whether sub is sub (or equal to) super, walking
// sub's superclass chain. A class that fails to load is treated as not
// a subclass, rather than propagating the load error -- the verifier
// has no way to report it other than rejecting the bytecode, which is
// the correct outcome for a dangling supertype reference anyway.
func (h Hierarchy) IsSubclassOf(sub, super string) bool {
	if sub == super {
		return true
	}
	if super == types.ObjectClassName {
		return true // every reference type, including interfaces, is-a Object
	}

	seen := map[string]bool{}
	for name := sub; name != "" && !seen[name]; {
		seen[name] = true
		class, err := h.Loader.LoadClass(name)
		if err != nil {
			return false
		}
		if name == super {
			return true
		}
		for _, iface := range class.Interfaces {
			if iface == super || h.IsSubclassOf(iface, super) {
				return true
			}
		}
		name = class.Super
	}
	return false
}

// CommonSuperclass returns the least upper bound of a and b, walking
// a's superclass chain and returning the first ancestor that is also an
// ancestor of b, defaulting to java/lang/Object.
func (h Hierarchy) CommonSuperclass(a, b string) string {
	if a == b {
		return a
	}
	ancestorsOfB := map[string]bool{b: true}
	for name := b; name != ""; {
		class, err := h.Loader.LoadClass(name)
		if err != nil {
			break
		}
		if class.Super == "" {
			break
		}
		ancestorsOfB[class.Super] = true
		name = class.Super
	}

	for name := a; name != ""; {
		if ancestorsOfB[name] {
			return name
		}
		class, err := h.Loader.LoadClass(name)
		if err != nil {
			break
		}
		name = class.Super
	}
	return types.ObjectClassName
}
