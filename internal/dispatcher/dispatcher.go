// Package dispatcher implements Dispatcher and DispatcherBundle, grounded
// on plum/dispatcher.py's AbstractDispatcher/Dispatcher: a namespace that
// aggregates Functions by name and exposes the registration entry points a
// host calls to add methods.
package dispatcher

import (
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/plumdispatch/plum/internal/function"
	"github.com/plumdispatch/plum/internal/hierarchy"
	"github.com/plumdispatch/plum/internal/introspect"
	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/signature"
)

// RedefinitionPolicy controls what happens when Register is called with a
// method whose signature already has a registered implementation under the
// same name, mirroring plum/dispatcher.py's warn_redefinition field.
type RedefinitionPolicy int

const (
	// AllowRedefinition silently replaces the prior implementation.
	AllowRedefinition RedefinitionPolicy = iota
	// WarnOnRedefinition replaces the prior implementation and logs the
	// redefinition through the standard log package.
	WarnOnRedefinition
)

// Dispatcher is a namespace of Functions, one per registered name.
// Registering a method under a name not seen before creates a new Function
// and registers it into the process-wide registry (internal/registry) via
// function.New; registering again under the same name adds another method
// to the existing Function.
type Dispatcher struct {
	Namespace string
	Policy    RedefinitionPolicy

	mu        sync.Mutex
	functions map[string]*function.Function
	// classes holds the per-owner method dictionaries of §4.6's Data Model,
	// keyed by owner type then unqualified name, distinct from functions
	// (free functions by unqualified name). Populated only by RegisterOwned:
	// a Dispatcher used solely through Register/Dispatch never allocates an
	// entry here.
	classes   map[reflect.Type]map[string]*function.Function
	hierarchy hierarchy.Walker
}

// New creates an empty Dispatcher. namespace prefixes every Function name
// it creates, so two Dispatchers in the same process never collide in the
// shared registry.
func New(namespace string) *Dispatcher {
	return &Dispatcher{
		Namespace: namespace,
		functions: map[string]*function.Function{},
		classes:   map[reflect.Type]map[string]*function.Function{},
		hierarchy: hierarchy.NewWalker(hierarchy.None),
	}
}

// SetHierarchy installs the ancestor walker for the MRO-style fallback on
// every Function this Dispatcher has already created and every one it
// creates from now on.
func (d *Dispatcher) SetHierarchy(w hierarchy.Walker) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hierarchy = w
	for _, fn := range d.functions {
		fn.SetHierarchy(w)
	}
	for _, methods := range d.classes {
		for _, fn := range methods {
			fn.SetHierarchy(w)
		}
	}
}

func (d *Dispatcher) qualify(name string) string {
	if d.Namespace == "" {
		return name
	}
	return d.Namespace + "." + name
}

// functionFor returns (creating if necessary) the Function registered under
// name in this Dispatcher.
func (d *Dispatcher) functionFor(name string) *function.Function {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn, ok := d.functions[name]
	if !ok {
		fn = function.New(d.qualify(name))
		fn.SetHierarchy(d.hierarchy)
		d.functions[name] = fn
	}
	return fn
}

// classFunctionFor returns (creating if necessary) the Function registered
// under (owner, name) in this Dispatcher's per-owner method dictionary, and
// wires its hierarchy fallback to consult sibling owners of the same name
// via FunctionForOwner, matching §4.6's "look up or lazily create the
// Function under (owner, name)".
func (d *Dispatcher) classFunctionFor(owner reflect.Type, name string) *function.Function {
	d.mu.Lock()
	defer d.mu.Unlock()
	methods, ok := d.classes[owner]
	if !ok {
		methods = map[string]*function.Function{}
		d.classes[owner] = methods
	}
	fn, ok := methods[name]
	if !ok {
		// The owner is part of the qualified name, so each owner's Function
		// keeps its own entry in the process-wide registry.
		fn = function.New(d.qualify(owner.String() + "." + name))
		fn.SetHierarchy(d.hierarchy)
		fn.SetOwnerFallback(func(ancestor reflect.Type) (*function.Function, bool) {
			return d.FunctionForOwner(ancestor, name)
		})
		methods[name] = fn
	}
	return fn
}

// FunctionForOwner returns the Function registered under (owner, name) in
// this Dispatcher's per-owner method dictionary, if any.
func (d *Dispatcher) FunctionForOwner(owner reflect.Type, name string) (*function.Function, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	methods, ok := d.classes[owner]
	if !ok {
		return nil, false
	}
	fn, ok := methods[name]
	return fn, ok
}

// RegisterOwned registers impl as a method under name, scoped to owner — a
// type acting as the method's "self" parameter, the Go-native stand-in for
// the original implementation's "determine owner from the implementation's
// qualified name" (§4.6). Unlike Register/Dispatch, which populate the flat
// functions-by-name map, RegisterOwned populates the per-owner method
// dictionary: two owners (e.g. a base type and a subtype) registering the
// same name each get their own Function with its own overload set, so a
// call that misses on a subtype's own Function falls back to its ancestors'
// own Functions (via hierarchy.Walker and Function.SetOwnerFallback)
// instead of approximating the lookup inside one shared resolver.
func (d *Dispatcher) RegisterOwned(owner reflect.Type, name string, precedence int, impl interface{}, opts ...introspect.Option) (*function.Function, error) {
	sig, err := introspect.Signature(impl, precedence, opts...)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %s: %w", name, err)
	}
	fn := d.classFunctionFor(owner, name)
	if d.Policy == WarnOnRedefinition && fn.HasSignature(sig) {
		log.Printf("dispatcher: %s: redefining existing method with signature %s", fn.Name, sig)
	}
	m := method.New(sig, introspect.ReturnType(impl), fn.Name, reflect.ValueOf(impl))
	fn.Register(m)
	return fn, nil
}

// CallOwned resolves and invokes the most specific method registered for
// (owner, name) against args, the entry point for a host that maintains
// per-owner overload sets via RegisterOwned rather than one flat Function
// per name.
func (d *Dispatcher) CallOwned(owner reflect.Type, name string, args ...interface{}) ([]interface{}, error) {
	fn, ok := d.FunctionForOwner(owner, name)
	if !ok {
		return nil, fmt.Errorf("dispatcher: %s: no method registered for owner %s in namespace %q", name, owner, d.Namespace)
	}
	return fn.Call(args...)
}

// Register adds impl as a method under name, deriving its signature from
// impl's Go type via introspect.Signature. precedence breaks ties that
// specificity alone cannot resolve (§4.4.2). Returns the Function the
// method was added to, for chaining (e.g. immediately calling it).
func (d *Dispatcher) Register(name string, precedence int, impl interface{}, opts ...introspect.Option) (*function.Function, error) {
	sig, err := introspect.Signature(impl, precedence, opts...)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %s: %w", name, err)
	}
	fn := d.functionFor(name)
	if d.Policy == WarnOnRedefinition && fn.HasSignature(sig) {
		log.Printf("dispatcher: %s: redefining existing method with signature %s", fn.Name, sig)
	}
	m := method.New(sig, introspect.ReturnType(impl), fn.Name, reflect.ValueOf(impl))
	fn.Register(m)
	return fn, nil
}

// RegisterWithDefaults registers impl under k+1 signatures, one per arity
// from fn's full parameter count down to (full count - k), where k is the
// number of trailing parameters named in defaults — the consumer of
// cmd/plumgen's generated plumDefaults/plumDefaultParams maps, completing
// §4.5.1's default-argument expansion (a call omitting trailing arguments
// resolves against the shorter signature, which fills them in with the
// recorded default values before invoking impl).
func (d *Dispatcher) RegisterWithDefaults(name string, precedence int, impl interface{}, paramNames []string, defaults map[string]interface{}, opts ...introspect.Option) (*function.Function, error) {
	expansions, err := introspect.ExpandDefaults(impl, precedence, paramNames, defaults, opts...)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %s: %w", name, err)
	}
	fn := d.functionFor(name)
	for _, e := range expansions {
		if d.Policy == WarnOnRedefinition && fn.HasSignature(e.Signature) {
			log.Printf("dispatcher: %s: redefining existing method with signature %s", fn.Name, e.Signature)
		}
		fn.Register(method.New(e.Signature, introspect.ReturnType(impl), fn.Name, e.Impl))
	}
	return fn, nil
}

// RegisterMulti registers impl as the method for every signature in sigs at
// once, matching plum/dispatcher.py's `multi` decorator: a single
// implementation answering several explicit signatures instead of one
// introspected from impl's own Go parameter types (useful when one function
// body legitimately handles more than one argument shape, e.g. `(int,)` and
// `(string,)` both returning the same thing). Precedence is taken from each
// signature's own Precedence field rather than a shared argument.
func (d *Dispatcher) RegisterMulti(name string, impl interface{}, sigs ...signature.Signature) (*function.Function, error) {
	if len(sigs) == 0 {
		return nil, fmt.Errorf("dispatcher: %s: multi requires at least one signature", name)
	}
	fn := d.functionFor(name)
	returnType := introspect.ReturnType(impl)
	implValue := reflect.ValueOf(impl)
	for _, sig := range sigs {
		if d.Policy == WarnOnRedefinition && fn.HasSignature(sig) {
			log.Printf("dispatcher: %s: redefining existing method with signature %s", fn.Name, sig)
		}
		fn.Register(method.New(sig, returnType, fn.Name, implValue))
	}
	return fn, nil
}

// Dispatch is sugar for Register with precedence 0, matching the common
// case of plum/dispatcher.py's `@dispatch` decorator with no explicit
// precedence argument.
func (d *Dispatcher) Dispatch(name string, impl interface{}, opts ...introspect.Option) (*function.Function, error) {
	return d.Register(name, 0, impl, opts...)
}

// Abstract declares name as a dispatched entry point with zero methods: a
// host that wants to reserve a name (so that Call on it correctly reports
// NotFound rather than "unknown function") before any concrete method is
// registered, matching plum/dispatcher.py's `abstract` decorator.
func (d *Dispatcher) Abstract(name string) *function.Function {
	return d.functionFor(name)
}

// Function returns the Function registered under name, if any.
func (d *Dispatcher) Function(name string) (*function.Function, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn, ok := d.functions[name]
	return fn, ok
}

// Names returns every name registered in this Dispatcher.
func (d *Dispatcher) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.functions))
	for name := range d.functions {
		names = append(names, name)
	}
	return names
}

// Call resolves and invokes name's most specific method for args.
func (d *Dispatcher) Call(name string, args ...interface{}) ([]interface{}, error) {
	fn, ok := d.Function(name)
	if !ok {
		return nil, fmt.Errorf("dispatcher: %s: no such function in namespace %q", name, d.Namespace)
	}
	return fn.Call(args...)
}

// ClearCache drops the call-time cache of every Function in this
// Dispatcher.
func (d *Dispatcher) ClearCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, fn := range d.functions {
		fn.ClearCache()
	}
	for _, methods := range d.classes {
		for _, fn := range methods {
			fn.ClearCache()
		}
	}
}

// Bundle groups several Dispatchers (typically one per module) into a flat
// view, matching plum/dispatcher.py's support for combining multiple
// namespaces' registrations when a host composes independently-authored
// modules. Function and Call resolve across every member Dispatcher by
// name (Register, Dispatch, Abstract and RegisterMulti instead broadcast a
// registration to every member); a name present in more than one member resolves to whichever
// member was added last (later additions shadow earlier ones), the same
// "last registration wins" rule Register uses within a single Dispatcher.
type Bundle struct {
	mu      sync.Mutex
	members []*Dispatcher
}

// NewBundle creates a Bundle over the given Dispatchers, in the order
// given.
func NewBundle(members ...*Dispatcher) *Bundle {
	return &Bundle{members: members}
}

// Add appends another Dispatcher to the bundle.
func (b *Bundle) Add(d *Dispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members = append(b.members, d)
}

func (b *Bundle) snapshot() []*Dispatcher {
	b.mu.Lock()
	defer b.mu.Unlock()
	members := make([]*Dispatcher, len(b.members))
	copy(members, b.members)
	return members
}

// Flatten returns a Bundle with the same members as b but no dependence on
// how b itself was assembled, matching plum/dispatcher.py's
// DispatcherBundle.flatten(). A Go Bundle only ever aggregates *Dispatcher
// values (Add and NewBundle admit nothing else), so it is already flat by
// construction; Flatten exists as the same normalizing operation the
// original exposes, and flattening twice trivially equals flattening once:
// both produce a fresh copy of the identical, already-flat member list.
func (b *Bundle) Flatten() *Bundle {
	return &Bundle{members: b.snapshot()}
}

// Register broadcasts a registration to every member Dispatcher, matching
// plum/dispatcher.py's DispatcherBundle.__call__: one implementation is
// registered under name in every namespace the bundle spans, letting a host
// share a single method across independently authored modules instead of
// registering it into each Dispatcher by hand. Returns the Function the
// last member registered into, mirroring the original's own documented
// behavior ("the returned function is the one registered last").
func (b *Bundle) Register(name string, precedence int, impl interface{}, opts ...introspect.Option) (*function.Function, error) {
	members := b.snapshot()
	if len(members) == 0 {
		return nil, fmt.Errorf("dispatcher bundle: %s: bundle has no members", name)
	}
	var last *function.Function
	for _, d := range members {
		fn, err := d.Register(name, precedence, impl, opts...)
		if err != nil {
			return nil, err
		}
		last = fn
	}
	return last, nil
}

// Dispatch is sugar for Register with precedence 0.
func (b *Bundle) Dispatch(name string, impl interface{}, opts ...introspect.Option) (*function.Function, error) {
	return b.Register(name, 0, impl, opts...)
}

// Abstract broadcasts an abstract-name reservation to every member
// Dispatcher, matching plum/dispatcher.py's DispatcherBundle.abstract.
func (b *Bundle) Abstract(name string) (*function.Function, error) {
	members := b.snapshot()
	if len(members) == 0 {
		return nil, fmt.Errorf("dispatcher bundle: %s: bundle has no members", name)
	}
	var last *function.Function
	for _, d := range members {
		last = d.Abstract(name)
	}
	return last, nil
}

// RegisterMulti broadcasts a multi-signature registration to every member
// Dispatcher, matching plum/dispatcher.py's DispatcherBundle.multi.
func (b *Bundle) RegisterMulti(name string, impl interface{}, sigs ...signature.Signature) (*function.Function, error) {
	members := b.snapshot()
	if len(members) == 0 {
		return nil, fmt.Errorf("dispatcher bundle: %s: bundle has no members", name)
	}
	var last *function.Function
	for _, d := range members {
		fn, err := d.RegisterMulti(name, impl, sigs...)
		if err != nil {
			return nil, err
		}
		last = fn
	}
	return last, nil
}

// Function finds name in the most recently added member that has it.
func (b *Bundle) Function(name string) (*function.Function, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.members) - 1; i >= 0; i-- {
		if fn, ok := b.members[i].Function(name); ok {
			return fn, true
		}
	}
	return nil, false
}

// Call resolves name across the bundle's members and invokes it.
func (b *Bundle) Call(name string, args ...interface{}) ([]interface{}, error) {
	fn, ok := b.Function(name)
	if !ok {
		return nil, fmt.Errorf("dispatcher bundle: %s: no such function in any member namespace", name)
	}
	return fn.Call(args...)
}

// ClearCache drops the call-time cache of every Function in every member
// Dispatcher.
func (b *Bundle) ClearCache() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.members {
		d.ClearCache()
	}
}
