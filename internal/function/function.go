// Package function implements Function, grounded on plum/function.py: the
// per-name aggregator of every registered Method, with deferred
// ("pending") registration batching, a call-time cache gated on signature
// faithfulness, class-hierarchy fallback on a cache/resolve miss, bound
// projection, return-type conversion, and call-site exception enhancement.
package function

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/plumdispatch/plum/internal/hierarchy"
	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/registry"
	"github.com/plumdispatch/plum/internal/resolver"
	"github.com/plumdispatch/plum/internal/signature"
)

// Converter performs return-type conversion: coercing value to target. A
// nil target means "no declared return type," in which case value passes
// through unchanged.
type Converter func(value interface{}, target reflect.Type) (interface{}, error)

// DefaultConverter is consulted by new Functions that are not given an
// explicit Converter. internal/convert sets this in its own init(), since
// convert is itself implemented as a self-hosted Function and would
// otherwise form an import cycle with this package.
var DefaultConverter Converter = identityConverter

func identityConverter(value interface{}, target reflect.Type) (interface{}, error) {
	return value, nil
}

// pendingRegistration is a method awaiting its first drain, deferred so
// that forward references (a method naming a not-yet-registered owner as
// one of its parameter types) have a chance to resolve before the method is
// added to the resolver, matching plum/function.py's _pending/
// _resolve_pending_registrations split.
type pendingRegistration struct {
	m method.Method
}

// OwnerFallback looks up the Function registered under this Function's own
// name for a specific owner (typically an ancestor type offered by a
// hierarchy.Walker during fallback), distinct from this Function itself.
// internal/dispatcher wires this for Functions created via RegisterOwned, so
// that a subtype's Function whose own overloads miss can consult its
// ancestor's independently registered Function of the same name, rather than
// approximating the lookup by substituting the ancestor type into this
// Function's own resolver.
type OwnerFallback func(owner reflect.Type) (*Function, bool)

// Function aggregates every Method registered under one name.
type Function struct {
	Name string

	mu            sync.Mutex
	resolver      *resolver.Resolver
	pending       []pendingRegistration
	cache         map[string]method.Method
	hierarchy     hierarchy.Walker
	converter     Converter
	ownerFallback OwnerFallback
}

// New creates an empty Function named name and registers it into the
// process-wide registry so pkg/plum.ClearAllCache reaches it.
func New(name string) *Function {
	fn := &Function{
		Name:      name,
		resolver:  resolver.New(name),
		cache:     map[string]method.Method{},
		hierarchy: hierarchy.NewWalker(hierarchy.None),
		converter: DefaultConverter,
	}
	registry.Register(name, fn)
	return fn
}

// SetHierarchy installs a host-supplied ancestor walker used for the
// class-MRO-style fallback when a call's argument types match nothing
// directly.
func (f *Function) SetHierarchy(w hierarchy.Walker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hierarchy = w
}

// SetConverter overrides this Function's return-type converter.
func (f *Function) SetConverter(c Converter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.converter = c
}

// SetOwnerFallback installs the lookup internal/dispatcher uses to route the
// class-MRO fallback to a different owner's own Function (see OwnerFallback
// and tryHierarchyFallback). A Function with no owner fallback configured
// (the common case for free functions with no owner at all) falls back only
// within its own resolver, as before.
func (f *Function) SetOwnerFallback(lookup OwnerFallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ownerFallback = lookup
}

// Register defers m until the next drain (Call, Signatures, or Describe;
// Invoke does not drain), matching the original implementation's batching of
// registrations so that a module defining several mutually-referencing
// methods does not have to declare them in dependency order.
func (f *Function) Register(m method.Method) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, pendingRegistration{m: m})
}

// drainLocked moves every pending registration into the resolver and clears the
// cache, since a newly added method can change which previously cached
// resolution is correct. Must be called with f.mu held.
func (f *Function) drainLocked() {
	if len(f.pending) == 0 {
		return
	}
	for _, p := range f.pending {
		f.resolver.Register(p.m)
	}
	f.pending = nil
	f.cache = map[string]method.Method{}
}

// ClearCache discards every cached dispatch decision without touching
// registered methods. Implements registry.Cacheable.
func (f *Function) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = map[string]method.Method{}
}

// NumMethods reports how many methods are registered (pending or resolved).
func (f *Function) NumMethods() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.resolver.Methods) + len(f.pending)
}

// HasSignature reports whether a method with an equal signature (see
// signature.Equal) is already registered or pending, used by
// internal/dispatcher to detect redefinitions before they happen.
func (f *Function) HasSignature(sig signature.Signature) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.resolver.Methods {
		if signature.Equal(m.Signature, sig) {
			return true
		}
	}
	for _, p := range f.pending {
		if signature.Equal(p.m.Signature, sig) {
			return true
		}
	}
	return false
}

// paramType reports the static Go type implType expects at positional
// index i, accounting for a trailing variadic parameter whose element type
// applies to every index at or beyond it.
func paramType(implType reflect.Type, i int) reflect.Type {
	n := implType.NumIn()
	if implType.IsVariadic() && i >= n-1 {
		return implType.In(n - 1).Elem()
	}
	return implType.In(i)
}

func cacheKey(args []interface{}) string {
	var b strings.Builder
	for i, a := range args {
		if i > 0 {
			b.WriteByte(0)
		}
		if a == nil {
			b.WriteString("<nil>")
			continue
		}
		b.WriteString(reflect.TypeOf(a).String())
	}
	return b.String()
}

// resolve performs the full dispatch decision for args: drain pending
// registrations, consult the cache (subject to faithfulness gating), fall
// back to the resolver, and on a direct miss walk the configured hierarchy
// retrying with each ancestor type substituted for every argument in turn.
func (f *Function) resolve(args []interface{}) (method.Method, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.drainLocked()
	key := cacheKey(args)
	faithful := f.resolver.IsFaithful()
	if cached, ok := f.cache[key]; ok {
		if faithful || cached.Signature.Matches(args) {
			return cached, nil
		}
	}

	m, err := f.resolver.Resolve(args)
	if err == nil {
		if faithful {
			f.cache[key] = m
		}
		return m, nil
	}

	var notFound *resolver.NotFoundError
	if asNotFound(err, &notFound) {
		if hm, ok := f.tryHierarchyFallback(args); ok {
			if faithful {
				f.cache[key] = hm
			}
			return hm, nil
		}
	}

	return method.Method{}, f.enhance(err)
}

func asNotFound(err error, target **resolver.NotFoundError) bool {
	if nf, ok := err.(*resolver.NotFoundError); ok {
		*target = nf
		return true
	}
	return false
}

// resolveDirect drains pending registrations and attempts a direct resolve
// against this Function's own resolver only, with no cache and no further
// hierarchy fallback of its own. It exists so a sibling Function can consult
// this one as a class-MRO ancestor's own method dictionary (see
// OwnerFallback) without recursing into that Function's full resolve(),
// which would otherwise walk its ancestors too and defeat the "nearest
// owner first" order tryHierarchyFallback already enforces.
func (f *Function) resolveDirect(args []interface{}) (method.Method, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drainLocked()
	m, err := f.resolver.Resolve(args)
	if err != nil {
		return method.Method{}, false
	}
	return m, true
}

// tryHierarchyFallback retries resolution after substituting, one argument
// position at a time, each ancestor of that argument's runtime type offered
// by the configured hierarchy.Walker — mirroring plum/function.py's
// resolve_method walking owner.__mro__[1:] when the exact runtime type
// finds nothing. When this Function has an OwnerFallback configured (see
// internal/dispatcher's RegisterOwned), each ancestor is first looked up as
// a distinct owner's own Function of the same name — matching §4.6's Data
// Model of per-owner method dictionaries — before falling back to
// substituting the ancestor type into this Function's own resolver.
func (f *Function) tryHierarchyFallback(args []interface{}) (method.Method, bool) {
	for i, a := range args {
		if a == nil {
			continue
		}
		t := reflect.TypeOf(a)
		var found method.Method
		_, ok := f.hierarchy.Resolve(t, func(candidate reflect.Type) bool {
			trial := append([]interface{}{}, args...)
			trial[i] = reflect.New(candidate).Elem().Interface()

			if f.ownerFallback != nil {
				if owner, ok := f.ownerFallback(candidate); ok && owner != f {
					if m, ok := owner.resolveDirect(trial); ok {
						found = m
						return true
					}
				}
			}

			m, err := f.resolver.Resolve(trial)
			if err != nil {
				return false
			}
			found = m
			return true
		})
		if ok {
			return found, true
		}
	}
	return method.Method{}, false
}

// enhance prefixes a dispatch error with this Function's name, matching
// plum/function.py's _enhance_exception re-raising with the function and
// owner context attached.
func (f *Function) enhance(err error) error {
	return fmt.Errorf("for function %s: %w", f.Name, err)
}

// Call resolves the most specific method for args, invokes it, and
// converts its first return value to the method's declared return type.
// Additional return values (e.g. a trailing error) pass through unchanged.
func (f *Function) Call(args ...interface{}) ([]interface{}, error) {
	m, err := f.resolve(args)
	if err != nil {
		return nil, err
	}
	return f.invoke(m, args)
}

// Invoke calls the given, already-resolved method directly, bypassing
// resolution and the cache; return-value conversion still applies. It
// takes a Method, not parameter types: Function offers no lookup that
// resolves a method from a list of types.
func (f *Function) Invoke(m method.Method, args ...interface{}) ([]interface{}, error) {
	return f.invoke(m, args)
}

func (f *Function) invoke(m method.Method, args []interface{}) ([]interface{}, error) {
	implType := m.Impl.Type()
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a != nil {
			v := reflect.ValueOf(a)
			// A method reached through the hierarchy fallback declares an
			// ancestor type; pass the argument as that type when Go can
			// convert it.
			if pt := paramType(implType, i); !v.Type().AssignableTo(pt) && v.Type().ConvertibleTo(pt) {
				v = v.Convert(pt)
			}
			in[i] = v
			continue
		}
		in[i] = reflect.New(paramType(implType, i)).Elem()
	}
	out := m.Call(in)
	if len(out) == 0 {
		return nil, nil
	}

	results := make([]interface{}, len(out))
	for i, o := range out {
		results[i] = o.Interface()
	}

	if lastErr, ok := results[len(results)-1].(error); ok && lastErr != nil {
		return results, fmt.Errorf("%s: %w", f.Name, lastErr)
	}

	f.mu.Lock()
	conv := f.converter
	f.mu.Unlock()
	converted, err := conv(results[0], m.ReturnType)
	if err != nil {
		return nil, fmt.Errorf("%s: return conversion failed: %w", f.Name, err)
	}
	results[0] = converted
	return results, nil
}

// Bound returns a projection of f with receiver prepended to every call,
// matching plum/function.py's __get__/_BoundFunction: a bound method looks
// up overloads as if receiver's type were always the first argument, but
// callers only supply the remaining arguments.
type Bound struct {
	fn       *Function
	receiver interface{}
}

// Bind projects f onto receiver.
func (f *Function) Bind(receiver interface{}) Bound {
	return Bound{fn: f, receiver: receiver}
}

// Call invokes the bound function with receiver implicitly prepended.
func (b Bound) Call(args ...interface{}) ([]interface{}, error) {
	full := append([]interface{}{b.receiver}, args...)
	return b.fn.Call(full...)
}

// Signatures returns the signature of every resolved method, for
// introspection and testing. Pending registrations are drained first.
func (f *Function) Signatures() []signature.Signature {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drainLocked()
	sigs := make([]signature.Signature, len(f.resolver.Methods))
	for i, m := range f.resolver.Methods {
		sigs[i] = m.Signature
	}
	return sigs
}

// Describe renders a human-oriented summary of every registered signature,
// the Go-native stand-in for the original implementation's aggregation of
// per-method docstrings into one combined help text (SPEC_FULL.md
// [SUPPLEMENT] #1): since Go methods carry no runtime-accessible docstring,
// this lists the signatures themselves rather than prose extracted from
// source.
func (f *Function) Describe() string {
	sigs := f.Signatures()
	var b strings.Builder
	fmt.Fprintf(&b, "%s has %d method(s):\n", f.Name, len(sigs))
	for _, s := range sigs {
		fmt.Fprintf(&b, "  %s%s\n", f.Name, s.String())
	}
	return b.String()
}
