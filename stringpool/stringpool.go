// Package stringpool is the VM-wide string interning table. Class names,
// field/method names, and descriptors are stored once and referenced
// everywhere else by index, mirroring jacobin/stringPool -- this keeps
// constant-pool entries and Class structs small (a uint32 instead of a
// string) and lets two different classes' CP entries that name the same
// class compare equal in O(1).
package stringpool

import (
	"sync"

	"vjvm/types"
)

var (
	mu      sync.RWMutex
	strings []string
	index   map[string]uint32
)

func init() {
	Reset()
}

// Reset empties the pool and re-reserves slot 0 for java/lang/Object, per
// types.ObjectPoolStringIndex.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	strings = []string{types.ObjectClassName}
	index = map[string]uint32{types.ObjectClassName: types.ObjectPoolStringIndex}
}

// Intern returns the pool index for s, inserting it if this is the first
// time s has been seen.
func Intern(s string) uint32 {
	mu.RLock()
	if i, ok := index[s]; ok {
		mu.RUnlock()
		return i
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if i, ok := index[s]; ok {
		return i
	}
	i := uint32(len(strings))
	strings = append(strings, s)
	index[s] = i
	return i
}

// GetStringPointer returns a pointer to the interned string at idx, or nil
// if idx is out of range. Returning a pointer (rather than a copy) lets
// callers compare by address when they only need to check identity.
func GetStringPointer(idx uint32) *string {
	mu.RLock()
	defer mu.RUnlock()
	if int(idx) >= len(strings) {
		return nil
	}
	return &strings[idx]
}

// GetString is the value-returning counterpart of GetStringPointer.
func GetString(idx uint32) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if int(idx) >= len(strings) {
		return "", false
	}
	return strings[idx], true
}

// Size returns the number of interned strings, mostly useful in tests.
func Size() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(strings)
}
