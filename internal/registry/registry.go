// Package registry is the process-wide table of every Function that has
// been created, grounded on internal/evaluator/ext_registry.go's
// sync.RWMutex-guarded package-level map pattern. It backs
// pkg/plum.ClearAllCache, which must reach every Function regardless of
// which Dispatcher created it.
package registry

import "sync"

// Cacheable is the minimal surface registry needs from a Function: the
// ability to drop its call-time cache. Defined here (rather than imported
// from internal/function) to keep registry free of a dependency on the
// package that depends on it.
type Cacheable interface {
	ClearCache()
}

var (
	mu  sync.RWMutex
	all = map[string]Cacheable{}
)

// Register records fn under name, so that a future ClearAll reaches it.
// Registering the same name twice replaces the previous entry: a Function
// is a singleton per fully-qualified name within a process, matching
// plum/function.py's Function identity.
func Register(name string, fn Cacheable) {
	mu.Lock()
	defer mu.Unlock()
	all[name] = fn
}

// Get returns the Function registered under name, if any.
func Get(name string) (Cacheable, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := all[name]
	return fn, ok
}

// All returns a snapshot of every registered name. The returned slice is
// safe to range over even if registrations happen concurrently.
func All() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	return names
}

// ClearAll drops the call-time cache of every registered Function, the
// mechanism behind pkg/plum.ClearAllCache (used after a bulk of
// registrations that might invalidate previously cached dispatch
// decisions).
func ClearAll() {
	mu.RLock()
	defer mu.RUnlock()
	for _, fn := range all {
		fn.ClearCache()
	}
}

// Forget removes name from the registry entirely. Used by tests and by
// hosts that tear down a dynamically-loaded module's functions.
func Forget(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(all, name)
}
