// Package plum is the public embedding API, grounded on pkg/embed/vm.go's
// façade pattern: a thin, well-documented surface that wires together the
// internal packages (predicate, signature, dispatcher, convert, registry)
// without exposing their internals to a host.
package plum

import (
	"reflect"

	"github.com/plumdispatch/plum/internal/convert"
	"github.com/plumdispatch/plum/internal/dispatcher"
	"github.com/plumdispatch/plum/internal/function"
	"github.com/plumdispatch/plum/internal/hierarchy"
	"github.com/plumdispatch/plum/internal/introspect"
	"github.com/plumdispatch/plum/internal/predicate"
	"github.com/plumdispatch/plum/internal/registry"
	"github.com/plumdispatch/plum/internal/resolver"
	"github.com/plumdispatch/plum/internal/signature"
)

// Dispatcher is a namespace of multiply-dispatched functions. The zero
// value is not usable; construct one with NewDispatcher. Register/Dispatch
// populate a flat name-keyed table; RegisterOwned/CallOwned populate a
// separate per-owner method dictionary (keyed by owner reflect.Type) so that
// two owners sharing a method name each keep their own overload set, with
// misses falling back across owners via the configured hierarchy.
type Dispatcher = dispatcher.Dispatcher

// Bundle groups several Dispatchers into one lookup surface: Call and
// Function resolve a name across every member (later-added members shadow
// earlier ones), while Register/Dispatch/Abstract/RegisterMulti broadcast a
// single registration into every member at once, letting independently
// authored namespaces share one method. Flatten returns a fresh Bundle with
// the same member list; a Bundle only ever holds Dispatchers, so it is
// always flat.
type Bundle = dispatcher.Bundle

// Function is a single dispatched name's aggregate of registered methods.
type Function = function.Function

// TypePredicate is the refinement relation dispatch is built on: Matches
// tests a runtime value, LE compares two predicates' specificity.
type TypePredicate = predicate.TypePredicate

// Ancestors supplies a host's own notion of type hierarchy for the
// class-MRO-style fallback a call takes when no method matches a runtime
// argument's exact type directly.
type Ancestors = hierarchy.Ancestors

// Option customizes signature derivation at registration time; see
// WithParam.
type Option = introspect.Option

// NotFoundError and AmbiguousError are returned by Dispatcher.Call and
// Function.Call when, respectively, no method matches the given arguments,
// or more than one equally-specific method does.
type NotFoundError = resolver.NotFoundError
type AmbiguousError = resolver.AmbiguousError

// NewDispatcher creates an empty Dispatcher under the given namespace; see
// dispatcher.New.
func NewDispatcher(namespace string) *Dispatcher {
	return dispatcher.New(namespace)
}

// NewBundle groups existing Dispatchers into a single lookup surface.
func NewBundle(members ...*Dispatcher) *Bundle {
	return dispatcher.NewBundle(members...)
}

// NewSignature builds a fixed-arity Signature directly, for hosts that want
// to register under an explicit signature rather than one introspected
// from a Go function's parameter types (see DispatchMulti).
func NewSignature(precedence int, params ...TypePredicate) Signature {
	return signature.New(precedence, params...)
}

// DispatchMulti registers impl under every signature in sigs at once,
// matching the Python library's `dispatch.multi(*signatures)`: one
// implementation answering several explicit argument shapes instead of the
// single shape introspect.Signature would derive from impl itself.
func DispatchMulti(d *Dispatcher, name string, impl interface{}, sigs ...Signature) (*Function, error) {
	return d.RegisterMulti(name, impl, sigs...)
}

// Any matches every value.
var Any = predicate.Any

// Nominal returns a predicate matching values whose runtime type is exactly
// the type of example.
func Nominal(example interface{}) TypePredicate {
	return predicate.NewNominal(example)
}

// Union returns a predicate matching any value matched by one of ps.
func Union(ps ...TypePredicate) TypePredicate {
	return predicate.NewUnion(ps...)
}

// Literal returns a predicate matching only values equal to v.
func Literal(v interface{}) TypePredicate {
	return predicate.NewLiteral(v)
}

// Parametric returns a predicate matching values of class whose declared
// type parameters refine params, optionally gated by a runtime probe
// inspecting the value's contents (which makes the predicate unfaithful;
// see TypePredicate.Faithful).
func Parametric(class reflect.Type, params []TypePredicate, probe predicate.RuntimeProbe) TypePredicate {
	return predicate.NewParametric(class, params, probe)
}

// WithParam overrides the predicate used for one parameter position at
// registration time.
func WithParam(index int, p TypePredicate) Option {
	return introspect.WithParam(index, p)
}

// RegisterSupertype declares sub a subtype of super for the purposes of
// every Nominal predicate's specificity ordering, the Go-native substitute
// for a host language's class hierarchy.
func RegisterSupertype(sub, super reflect.Type) {
	predicate.RegisterSupertype(sub, super)
}

// ClearAllCache drops the call-time cache of every Function in the
// process-wide registry, regardless of which Dispatcher owns it. The
// registry holds one Function per qualified name: a Function created under
// a name already in use replaces the earlier one there, and the earlier
// one's cache is then no longer reached.
func ClearAllCache() {
	registry.ClearAll()
}

// Convert converts value to target via the registered conversion methods,
// falling back to an identity/assignability shortcut.
func Convert(value interface{}, target reflect.Type) (interface{}, error) {
	return convert.Convert(value, target)
}

// AddConversionMethod registers fn (of shape func(S) T) as a conversion
// from S to T.
func AddConversionMethod(target reflect.Type, fn interface{}) error {
	return convert.AddConversionMethod(target, fn)
}

// Promote finds a common type for values via the registered promotion
// rules and converts every value to it.
func Promote(values ...interface{}) ([]interface{}, error) {
	return convert.Promote(values...)
}

// AddPromotionRule declares that promoting values of types a and b together
// should convert both to common.
func AddPromotionRule(a, b, common reflect.Type) {
	convert.AddPromotionRule(a, b, common)
}

// Signature re-exports signature.Signature for hosts that want to build or
// inspect signatures directly rather than through Dispatcher.Register's
// reflect-based introspection.
type Signature = signature.Signature
