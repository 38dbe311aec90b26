// Package hierarchy externalizes the "class MRO" that the original
// implementation walks during its owner.__mro__ fallback (plum/function.py,
// resolve_method). Go has no runtime class hierarchy to walk, so a host
// embedding this engine supplies one explicitly: an Ancestors callback
// ordering a type's ancestors from nearest to furthest, exactly as a
// language's method-resolution order would.
package hierarchy

import "reflect"

// Ancestors returns t's ancestors in resolution order, nearest first,
// excluding t itself. A host with no notion of inheritance (or a host that
// declared everything through predicate.RegisterSupertype already) can
// return nil; the walk then simply finds nothing and the caller falls
// through to its own NotFound handling.
type Ancestors func(t reflect.Type) []reflect.Type

// None is the zero-value Ancestors: every type has no ancestors. Used as
// the default when a host does not configure a hierarchy resolver.
func None(reflect.Type) []reflect.Type { return nil }

// Walker resolves an owner fallback: given a concrete type that failed to
// resolve directly against some owner's registered methods, it offers
// successive ancestor types for the caller to retry against, stopping at
// the first ancestor the caller's tryFn accepts.
type Walker struct {
	ancestors Ancestors
}

// NewWalker builds a Walker around a host-supplied Ancestors function. If
// fn is nil, the Walker behaves as if no hierarchy were configured.
func NewWalker(fn Ancestors) Walker {
	if fn == nil {
		fn = None
	}
	return Walker{ancestors: fn}
}

// Resolve walks t's ancestors (nearest first), invoking tryFn with each
// until tryFn reports success, and returns the ancestor it succeeded on.
// This mirrors plum/function.py's resolve_method skipping object/type at
// the tail of a Python MRO: a Walker configured with an Ancestors that
// excludes universal root types (interface{}, etc.) gets the same effect
// for free, since this package never special-cases any particular type.
func (w Walker) Resolve(t reflect.Type, tryFn func(reflect.Type) bool) (reflect.Type, bool) {
	for _, ancestor := range w.ancestors(t) {
		if tryFn(ancestor) {
			return ancestor, true
		}
	}
	return nil, false
}
