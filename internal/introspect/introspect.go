// Package introspect derives dispatch signatures from Go func values via
// reflect, replacing the role Python's function annotations and
// inspect.signature() play in the original implementation. Grounded on
// pkg/embed/marshaller.go's reflect.Kind-switch style for Go<->dynamic-value
// bridging.
package introspect

import (
	"fmt"
	"reflect"

	"github.com/plumdispatch/plum/internal/predicate"
	"github.com/plumdispatch/plum/internal/signature"
)

// NotAFunctionError is returned when Signature is asked to introspect a
// non-func value.
type NotAFunctionError struct {
	Kind reflect.Kind
}

func (e *NotAFunctionError) Error() string {
	return fmt.Sprintf("introspect: value of kind %s is not a function", e.Kind)
}

// Signature derives a dispatch Signature from a Go function value. Each parameter's static type becomes a predicate.Nominal
// over that type (callers wanting a coarser or user-extended predicate for a
// given position pass overrides via WithParam). A trailing ...T parameter
// becomes the signature's variadic tail. The declared return type is
// reported separately by ReturnType, which returns only the first result,
// matching the original's single "return annotation" model.
func Signature(fn interface{}, precedence int, opts ...Option) (signature.Signature, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return signature.Signature{}, &NotAFunctionError{Kind: t.Kind()}
	}

	cfg := config{overrides: map[int]predicate.TypePredicate{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	numIn := t.NumIn()
	variadic := t.IsVariadic()

	fixedCount := numIn
	if variadic {
		fixedCount = numIn - 1
	}

	params := make([]predicate.TypePredicate, 0, fixedCount)
	for i := 0; i < fixedCount; i++ {
		if p, ok := cfg.overrides[i]; ok {
			params = append(params, p)
			continue
		}
		params = append(params, predicateForType(t.In(i)))
	}

	if !variadic {
		return signature.New(precedence, params...), nil
	}

	tailType := t.In(numIn - 1).Elem()
	tailPredicate := predicateForType(tailType)
	if p, ok := cfg.overrides[numIn-1]; ok {
		tailPredicate = p
	}
	sig, err := signature.NewVariadic(precedence, tailPredicate, params...)
	if err != nil {
		return signature.Signature{}, err
	}
	return sig, nil
}

// ReturnType reports the function's first declared return type, or nil if
// it returns nothing. A function declaring error as its sole or trailing
// return (the idiomatic Go convention) has that error value excluded from
// the reported type: dispatch's return-type conversion operates on the
// domain value, while the error is handled by internal/function's call
// machinery the same way a Go caller would check it.
func ReturnType(fn interface{}) reflect.Type {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return nil
	}
	n := t.NumOut()
	if n == 0 {
		return nil
	}
	if n >= 1 && t.Out(n-1) == errorType {
		if n == 1 {
			return nil
		}
		return t.Out(0)
	}
	return t.Out(0)
}

// ReturnsError reports whether fn's last return value is the error
// interface, the idiomatic signal internal/function uses to short-circuit a
// call instead of attempting return-type conversion.
func ReturnsError(fn interface{}) bool {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func || t.NumOut() == 0 {
		return false
	}
	return t.Out(t.NumOut()-1) == errorType
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func predicateForType(t reflect.Type) predicate.TypePredicate {
	if t == interfaceAny {
		return predicate.Any
	}
	return predicate.Nominal{Class: t}
}

var interfaceAny = reflect.TypeOf((*interface{})(nil)).Elem()

type config struct {
	overrides map[int]predicate.TypePredicate
}

// Option customizes a single call to Signature.
type Option func(*config)

// WithParam overrides the predicate used for the parameter at the given
// position (0-based), bypassing the static-type default. Used when a
// parameter's static Go type is too coarse for the dispatch the caller
// wants, e.g. declaring a parameter as interface{} in Go but restricting it
// to a Union or Literal predicate at registration time.
func WithParam(index int, p predicate.TypePredicate) Option {
	return func(c *config) {
		c.overrides[index] = p
	}
}

// Expansion is one arity's signature and adapted implementation produced by
// ExpandDefaults: calling Impl with exactly len(Signature.Params) arguments
// invokes the original function, filling every omitted trailing parameter
// with its recorded default value.
type Expansion struct {
	Signature signature.Signature
	Impl      reflect.Value
}

// DefaultsNotTrailingError reports that a directive named a defaulted
// parameter that is not part of the contiguous trailing suffix of fn's
// parameters, which Go's positional-only call syntax cannot express as an
// omitted argument (only trailing arguments can be left out of a call).
type DefaultsNotTrailingError struct {
	Param string
}

func (e *DefaultsNotTrailingError) Error() string {
	return fmt.Sprintf("introspect: defaulted parameter %q is not part of the trailing defaulted suffix", e.Param)
}

// ExpandDefaults derives k+1 (Signature, Impl) pairs from fn, one per arity
// from fn's full parameter count down to (full count - k), where k is the
// number of fn's trailing parameters named in defaults — the Go-native
// realization of §4.5.1's default-argument expansion, since Go has no
// default-parameter syntax for a single registration to cover every omitted
// suffix itself. paramNames must list fn's parameter names, in declaration
// order (captured at build time by cmd/plumgen, since reflect.Type carries
// no parameter names at runtime); defaults maps a subset of those names,
// which must form a contiguous trailing suffix, to the Go value each
// omitted call should use in its place. fn must not be variadic.
func ExpandDefaults(fn interface{}, precedence int, paramNames []string, defaults map[string]interface{}, opts ...Option) ([]Expansion, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, &NotAFunctionError{Kind: t.Kind()}
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("introspect: ExpandDefaults does not support variadic functions")
	}
	n := t.NumIn()
	if len(paramNames) != n {
		return nil, fmt.Errorf("introspect: %d parameter name(s) given for a function declaring %d parameter(s)", len(paramNames), n)
	}

	full, err := Signature(fn, precedence, opts...)
	if err != nil {
		return nil, err
	}

	k := 0
	for i := n - 1; i >= 0 && len(defaults) > 0; i-- {
		if _, ok := defaults[paramNames[i]]; !ok {
			break
		}
		k++
	}
	trailing := make(map[string]bool, k)
	for _, name := range paramNames[n-k:] {
		trailing[name] = true
	}
	for name := range defaults {
		if !trailing[name] {
			return nil, &DefaultsNotTrailingError{Param: name}
		}
	}

	base := n - k
	tailValues := make([]reflect.Value, k)
	for i := 0; i < k; i++ {
		name := paramNames[base+i]
		paramType := t.In(base + i)
		dv := reflect.ValueOf(defaults[name])
		if dv.Type() != paramType {
			if !dv.Type().ConvertibleTo(paramType) {
				return nil, fmt.Errorf("introspect: default for parameter %q of type %s is not assignable to %s", name, dv.Type(), paramType)
			}
			dv = dv.Convert(paramType)
		}
		tailValues[i] = dv
	}

	expansions := make([]Expansion, 0, k+1)
	for arity := base; arity <= n; arity++ {
		sig := signature.New(precedence, full.Params[:arity]...)
		expansions = append(expansions, Expansion{
			Signature: sig,
			Impl:      defaultingImpl(v, t, arity, tailValues[:arity-base]),
		})
	}
	return expansions, nil
}

// defaultingImpl builds a func value of arity parameters that calls original
// with the caller's args followed by tail, so that a signature shorter than
// original's full parameter list still invokes the same implementation.
func defaultingImpl(original reflect.Value, t reflect.Type, arity int, tail []reflect.Value) reflect.Value {
	in := make([]reflect.Type, arity)
	for i := 0; i < arity; i++ {
		in[i] = t.In(i)
	}
	out := make([]reflect.Type, t.NumOut())
	for i := range out {
		out[i] = t.Out(i)
	}
	adapterType := reflect.FuncOf(in, out, false)
	return reflect.MakeFunc(adapterType, func(args []reflect.Value) []reflect.Value {
		full := make([]reflect.Value, 0, len(args)+len(tail))
		full = append(full, args...)
		full = append(full, tail...)
		return original.Call(full)
	})
}
