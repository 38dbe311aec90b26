package function

import (
	"errors"
	"reflect"
	"testing"

	"github.com/plumdispatch/plum/internal/hierarchy"
	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/predicate"
	"github.com/plumdispatch/plum/internal/resolver"
	"github.com/plumdispatch/plum/internal/signature"
)

func register(t *testing.T, fn *Function, owner string, precedence int, impl interface{}, returnType reflect.Type, params ...predicate.TypePredicate) {
	t.Helper()
	sig := signature.New(precedence, params...)
	fn.Register(method.New(sig, returnType, owner, reflect.ValueOf(impl)))
}

func TestCallDispatchesToMostSpecific(t *testing.T) {
	fn := New("describe")
	register(t, fn, "describe", 0, func(v int) string { return "int" }, reflect.TypeOf(""), predicate.NewNominal(0))
	register(t, fn, "describe", 0, func(v string) string { return "string" }, reflect.TypeOf(""), predicate.NewNominal(""))

	out, err := fn.Call(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "int" {
		t.Errorf("expected dispatch to the int overload, got %v", out[0])
	}
}

func TestCallCachesAcrossCalls(t *testing.T) {
	fn := New("double")
	register(t, fn, "double", 0, func(v int) int { return v * 2 }, reflect.TypeOf(0), predicate.NewNominal(0))

	if _, err := fn.Call(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := cacheKey([]interface{}{3})
	fn.mu.Lock()
	_, cached := fn.cache[key]
	fn.mu.Unlock()
	if !cached {
		t.Errorf("a faithful call should populate the cache")
	}

	out, err := fn.Call(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 8 {
		t.Errorf("cached dispatch should still invoke correctly for a new value of the same type, got %v", out[0])
	}
}

func TestCallDoesNotCacheUnfaithfulResolution(t *testing.T) {
	fn := New("flagged")
	probe := func(v interface{}) bool { return v.(int) > 0 }
	register(t, fn, "flagged", 0,
		func(v int) string { return "positive" },
		reflect.TypeOf(""),
		predicate.NewParametric(reflect.TypeOf(0), nil, probe))

	if _, err := fn.Call(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fn.mu.Lock()
	size := len(fn.cache)
	fn.mu.Unlock()
	if size != 0 {
		t.Errorf("expected an unfaithful registration to leave the cache empty, got size %d", size)
	}
}

func TestCallNotFound(t *testing.T) {
	fn := New("onlyInts")
	register(t, fn, "onlyInts", 0, func(v int) int { return v }, reflect.TypeOf(0), predicate.NewNominal(0))

	_, err := fn.Call("x")
	var nf *resolver.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected a wrapped NotFoundError, got %v", err)
	}
}

func TestCallPrefersUnionOverAny(t *testing.T) {
	fn := New("ambi")
	register(t, fn, "ambi", 0, func(v interface{}) string { return "a" }, reflect.TypeOf(""), predicate.NewUnion(predicate.NewNominal(0)))
	register(t, fn, "ambi", 0, func(v interface{}) string { return "b" }, reflect.TypeOf(""), predicate.NewUnion(predicate.NewNominal(0)))
	// Two equal signatures replace each other rather than becoming
	// ambiguous, so fn is left uncalled; fn2 pairs Union(int, string) with
	// Any instead.
	fn2 := New("ambi2")
	register(t, fn2, "ambi2", 0, func(v int) string { return "a" }, reflect.TypeOf(""), predicate.NewUnion(predicate.NewNominal(0), predicate.NewNominal("")))
	register(t, fn2, "ambi2", 0, func(v int) string { return "b" }, reflect.TypeOf(""), predicate.Any)
	// Union(int,string) <= Any, so this is not ambiguous: the antichain
	// reduction keeps only the Union overload.
	out, err := fn2.Call(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "a" {
		t.Errorf("the more specific Union overload should win over Any, got %v", out[0])
	}
}

func TestHierarchyFallback(t *testing.T) {
	type Number struct{}
	type Integer struct{}

	fn := New("classify")
	fn.SetHierarchy(hierarchy.NewWalker(func(t reflect.Type) []reflect.Type {
		if t == reflect.TypeOf(Integer{}) {
			return []reflect.Type{reflect.TypeOf(Number{})}
		}
		return nil
	}))
	register(t, fn, "classify", 0, func(v Number) string { return "number" }, reflect.TypeOf(""), predicate.NewNominal(Number{}))

	out, err := fn.Call(Integer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "number" {
		t.Errorf("expected hierarchy fallback to resolve Integer via its Number ancestor, got %v", out[0])
	}
}

func TestOwnerFallbackConsultsAncestorsOwnFunction(t *testing.T) {
	type Base struct{}
	type Sub struct{}

	base := New("speak@Base")
	register(t, base, "speak", 0, func(v Base) string { return "base" }, reflect.TypeOf(""), predicate.NewNominal(Base{}))

	sub := New("speak@Sub")
	register(t, sub, "speak", 0, func(v Sub, n int) string { return "sub" }, reflect.TypeOf(""), predicate.NewNominal(Sub{}), predicate.NewNominal(0))
	sub.SetHierarchy(hierarchy.NewWalker(func(t reflect.Type) []reflect.Type {
		if t == reflect.TypeOf(Sub{}) {
			return []reflect.Type{reflect.TypeOf(Base{})}
		}
		return nil
	}))
	sub.SetOwnerFallback(func(owner reflect.Type) (*Function, bool) {
		if owner == reflect.TypeOf(Base{}) {
			return base, true
		}
		return nil, false
	})

	// sub's own Function has no one-argument overload, so this must route
	// through OwnerFallback to base's own Function rather than trying to
	// substitute Base into sub's own resolver.
	out, err := sub.Call(Sub{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "base" {
		t.Errorf("expected the ancestor owner's own Function to answer, got %v", out[0])
	}

	// sub's own overload still wins when it matches directly.
	out, err = sub.Call(Sub{}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "sub" {
		t.Errorf("expected sub's own overload to answer, got %v", out[0])
	}
}

func TestReturnTypeConversion(t *testing.T) {
	fn := New("toFloat")
	fn.SetConverter(func(value interface{}, target reflect.Type) (interface{}, error) {
		if target == reflect.TypeOf(float64(0)) {
			if i, ok := value.(int); ok {
				return float64(i), nil
			}
		}
		return value, nil
	})
	register(t, fn, "toFloat", 0, func(v int) int { return v }, reflect.TypeOf(float64(0)), predicate.NewNominal(0))

	out, err := fn.Call(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out[0].(float64); !ok {
		t.Errorf("expected the converter to coerce the result to float64, got %T", out[0])
	}
}

func TestBoundPrependsReceiver(t *testing.T) {
	fn := New("greet")
	register(t, fn, "greet", 0, func(name string, greeting string) string { return greeting + " " + name }, reflect.TypeOf(""), predicate.NewNominal(""), predicate.NewNominal(""))

	bound := fn.Bind("World")
	out, err := bound.Call("Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "Hello World" {
		t.Errorf("expected bound call to prepend the receiver, got %v", out[0])
	}
}

func TestPendingRegistrationsDrainBeforeResolve(t *testing.T) {
	fn := New("lazy")
	fn.Register(method.New(signature.New(0, predicate.NewNominal(0)), reflect.TypeOf(0), "lazy", reflect.ValueOf(func(v int) int { return v + 1 })))
	if fn.NumMethods() != 1 {
		t.Fatalf("expected the pending registration to count toward NumMethods")
	}
	out, err := fn.Call(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 2 {
		t.Errorf("expected the pending registration to have drained before resolution, got %v", out[0])
	}
}

func TestCallPropagatesMethodError(t *testing.T) {
	fn := New("fails")
	register(t, fn, "fails", 0, func(v int) (int, error) { return 0, errBoom }, reflect.TypeOf(0), predicate.NewNominal(0))
	_, err := fn.Call(1)
	if err == nil {
		t.Fatalf("expected an error from the method's own error return")
	}
}

var errBoom = errors.New("boom")
