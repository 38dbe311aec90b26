// Package predicate implements the TypePredicate lattice described in
// SPEC_FULL.md §3/§4.1: the unified "is this runtime value of this declared
// type?" and "is type A a refinement of type B?" relation over nominal
// classes, unions, variadic tails, literals, and user-extensible parametric
// predicates.
package predicate

import "reflect"

// TypePredicate is the fundamental value in the dispatch engine. It answers
// whether a runtime value satisfies it (Matches) and whether it is a
// refinement of another predicate (LE, for "less than or equal").
type TypePredicate interface {
	// Matches reports whether v satisfies this predicate.
	Matches(v interface{}) bool
	// LE reports whether this predicate is a refinement of q: every value
	// matching this predicate also matches q.
	LE(q TypePredicate) bool
	// Faithful reports whether matches(v) depends only on v's runtime
	// class, never on its contents.
	Faithful() bool
	// String renders the predicate for diagnostics.
	String() string
}

// Equal reports whether p and q denote the same set of values.
func Equal(p, q TypePredicate) bool {
	return p.LE(q) && q.LE(p)
}

// Less reports whether p is a strict refinement of q.
func Less(p, q TypePredicate) bool {
	return p.LE(q) && !q.LE(p)
}

// Comparable reports whether p and q are ordered in either direction.
func Comparable(p, q TypePredicate) bool {
	return p.LE(q) || q.LE(p)
}

// any_ implements the universal predicate: matches everything, is a
// supertype of everything, and is trivially faithful (its truth never
// depends on value contents, since it is always true).
type any_ struct{}

// Any matches every value and is a supertype of every other predicate.
var Any TypePredicate = any_{}

func (any_) Matches(interface{}) bool        { return true }
func (any_) LE(q TypePredicate) bool         { _, ok := q.(any_); return ok }
func (any_) Faithful() bool                  { return true }
func (any_) String() string                  { return "Any" }

// Nominal matches values whose runtime type is exactly Class, or, when Class
// is an interface type, implements it. Assignability between concrete types
// and the declared supertype chain take part only in the LE order, not in
// Matches.
type Nominal struct {
	Class reflect.Type
	// Supertypes lists reflect.Types this Class is declared to be a
	// subtype of, in addition to structural assignability. This is the
	// Go-native stand-in for Python's class hierarchy: Go has no nominal
	// inheritance between unrelated named types, so a host registers the
	// relationships it wants the lattice to honor.
	Supertypes []reflect.Type
}

// NewNominal builds a Nominal predicate for the concrete Go type of the
// given example value. Passing a nil interface produces a Nominal matching
// only other nil interfaces.
func NewNominal(example interface{}) Nominal {
	if example == nil {
		return Nominal{Class: nil}
	}
	return Nominal{Class: reflect.TypeOf(example)}
}

func (n Nominal) Matches(v interface{}) bool {
	if v == nil {
		return n.Class == nil
	}
	if n.Class == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if n.Class.Kind() == reflect.Interface {
		return t.Implements(n.Class)
	}
	return t == n.Class
}

func (n Nominal) Faithful() bool { return true }

func (n Nominal) String() string {
	if n.Class == nil {
		return "Nominal(nil)"
	}
	return n.Class.String()
}

// LE implements Nominal(A) ≤ Nominal(B) iff A is a subclass of B: either A
// and B denote the same reflect.Type, A is assignable to B structurally, or
// B appears among A's supertypes, declared in Supertypes or through
// RegisterSupertype (transitively).
func (n Nominal) LE(q TypePredicate) bool {
	switch other := q.(type) {
	case any_:
		return true
	case Nominal:
		return n.subtypeOf(other.Class, map[reflect.Type]bool{})
	case Union:
		for _, p := range other.Predicates {
			if n.LE(p) {
				return true
			}
		}
		return false
	case Parametric:
		// A bare Nominal is never ≤ a Parametric, even one over the same
		// class.
		return false
	default:
		return false
	}
}

func (n Nominal) subtypeOf(target reflect.Type, seen map[reflect.Type]bool) bool {
	if n.Class == nil || target == nil {
		return n.Class == target
	}
	if n.Class == target {
		return true
	}
	if seen[n.Class] {
		return false
	}
	seen[n.Class] = true
	if n.Class.AssignableTo(target) {
		return true
	}
	supers := append(append([]reflect.Type{}, n.Supertypes...), supertypesOf(n.Class)...)
	for _, super := range supers {
		if super == target {
			return true
		}
		if (Nominal{Class: super}).subtypeOf(target, seen) {
			return true
		}
	}
	return false
}

// globalSupertypes lets predicates built without a Supertypes list attached
// (e.g. directly from a reflect.Type) still participate in a hierarchy
// registered elsewhere; subtypeOf consults it for every Class. It is
// intentionally a package-level registry rather than a parameter threaded
// through every predicate, mirroring how internal/hierarchy externalizes
// "class MRO" for the function layer: here it is the cheap lattice-only
// half of the same idea.
var globalSupertypes = map[reflect.Type][]reflect.Type{}

// RegisterSupertype declares that sub is a (possibly indirect) subtype of
// super for the purposes of the Nominal partial order. This is the
// Go-native replacement for inspecting a class's MRO/bases.
func RegisterSupertype(sub, super reflect.Type) {
	globalSupertypes[sub] = append(globalSupertypes[sub], super)
}

func supertypesOf(t reflect.Type) []reflect.Type {
	return globalSupertypes[t]
}

// Literal matches exactly one concrete, comparable value (value-as-type).
type Literal struct {
	Value interface{}
}

func NewLiteral(v interface{}) Literal { return Literal{Value: v} }

func (l Literal) Matches(v interface{}) bool {
	return valueEqual(v, l.Value)
}

// Faithful is false for Literal: whether a value matches depends on its
// contents (equality with Value), not merely its runtime class.
func (l Literal) Faithful() bool { return false }

func (l Literal) String() string { return "Literal(...)" }

// LE implements Literal(v) ≤ q iff q.Matches(v).
func (l Literal) LE(q TypePredicate) bool {
	return q.Matches(l.Value)
}

func valueEqual(a, b interface{}) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

// Union matches a value iff any of its member predicates matches.
type Union struct {
	Predicates []TypePredicate
}

func NewUnion(ps ...TypePredicate) Union {
	return Union{Predicates: ps}
}

func (u Union) Matches(v interface{}) bool {
	for _, p := range u.Predicates {
		if p.Matches(v) {
			return true
		}
	}
	return false
}

func (u Union) Faithful() bool {
	for _, p := range u.Predicates {
		if !p.Faithful() {
			return false
		}
	}
	return true
}

func (u Union) String() string {
	s := "Union("
	for i, p := range u.Predicates {
		if i > 0 {
			s += " | "
		}
		s += p.String()
	}
	return s + ")"
}

// LE implements both directions of the Union rule:
// Union(ps) ≤ q iff every p ≤ q; p ≤ Union(qs) iff some q ∈ qs with p ≤ q.
// The "p ≤ Union(qs)" half for a non-Union p is handled by p's own LE:
// Nominal.LE checks the members inline, Literal.LE asks the Union to match
// its value, and Parametric.LE calls unionContains below.
func (u Union) LE(q TypePredicate) bool {
	if otherUnion, ok := q.(Union); ok {
		for _, p := range u.Predicates {
			if !p.LE(otherUnion) {
				return false
			}
		}
		return true
	}
	for _, p := range u.Predicates {
		if !p.LE(q) {
			return false
		}
	}
	return true
}

// unionContains implements "p ≤ Union(qs) iff some q with p ≤ q" for a
// concrete (non-Union) p against a Union target. Variants call this from
// their own LE when the target is a Union.
func unionContains(p TypePredicate, u Union) bool {
	for _, q := range u.Predicates {
		if p.LE(q) {
			return true
		}
	}
	return false
}

// RuntimeProbe inspects a matched value's contents to decide whether it
// satisfies a Parametric predicate's element constraints (e.g. "every
// element of this slice is an int"). A Parametric whose probe is non-nil is
// unfaithful: matches() then depends on contents, not just runtime class.
type RuntimeProbe func(v interface{}) bool

// Parametric matches values whose runtime type is exactly Class and, when
// Probe is set, that Probe accepts. Matches does not inspect Params; they
// take part only in the covariant LE order.
type Parametric struct {
	Class  reflect.Type
	Params []TypePredicate
	Probe  RuntimeProbe
}

func NewParametric(class reflect.Type, params []TypePredicate, probe RuntimeProbe) Parametric {
	return Parametric{Class: class, Params: params, Probe: probe}
}

func (p Parametric) Matches(v interface{}) bool {
	if v == nil {
		return false
	}
	if reflect.TypeOf(v) != p.Class {
		return false
	}
	if p.Probe != nil {
		return p.Probe(v)
	}
	return true
}

// Faithful is false whenever a runtime probe is present: matching then
// depends on element values, not merely the value's runtime class.
func (p Parametric) Faithful() bool {
	return p.Probe == nil
}

func (p Parametric) String() string {
	s := p.Class.String() + "["
	for i, param := range p.Params {
		if i > 0 {
			s += ", "
		}
		s += param.String()
	}
	return s + "]"
}

// LE implements covariant elementwise comparison for same-class Parametric
// predicates, Parametric(C,...) ≤ Nominal(C), and delegation into Union.
func (p Parametric) LE(q TypePredicate) bool {
	switch other := q.(type) {
	case any_:
		return true
	case Union:
		return unionContains(p, other)
	case Nominal:
		return p.Class == other.Class || Nominal{Class: p.Class}.subtypeOf(other.Class, map[reflect.Type]bool{})
	case Parametric:
		if p.Class != other.Class {
			return false
		}
		if len(p.Params) != len(other.Params) {
			return false
		}
		for i := range p.Params {
			if !p.Params[i].LE(other.Params[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Promise is a forward-declared predicate: a name that will be resolved to
// a concrete TypePredicate later. It is the Go-native analog of the
// original Python implementation's PromisedType/ResolvableType (see
// SPEC_FULL.md [SUPPLEMENT] #2) and the mechanism behind §4.1's "owner
// self-reference" edge case: a signature may name its own not-yet-defined
// owner, so resolution is deferred until Deliver is called; until then the
// Promise behaves as Any.
type Promise struct {
	Name     string
	resolved *TypePredicate
}

// NewPromise creates an undelivered forward reference named name.
func NewPromise(name string) *Promise {
	return &Promise{Name: name}
}

// Deliver resolves the promise to a concrete predicate. Delivering twice
// overwrites the previous resolution. Signatures holding p see the new
// target at once; Deliver does not clear any Function's call-time cache.
func (p *Promise) Deliver(resolved TypePredicate) {
	p.resolved = &resolved
}

// Resolved reports whether Deliver has been called.
func (p *Promise) Resolved() bool { return p.resolved != nil }

func (p *Promise) target() TypePredicate {
	if p.resolved == nil {
		return Any
	}
	return *p.resolved
}

func (p *Promise) Matches(v interface{}) bool { return p.target().Matches(v) }
func (p *Promise) Faithful() bool             { return p.target().Faithful() }
func (p *Promise) String() string {
	if p.resolved == nil {
		return "Promise[" + p.Name + "]"
	}
	return p.target().String()
}
func (p *Promise) LE(q TypePredicate) bool { return p.target().LE(q) }
