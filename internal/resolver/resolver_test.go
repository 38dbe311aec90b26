package resolver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/predicate"
	"github.com/plumdispatch/plum/internal/signature"
)

func noop() {}

func newMethod(precedence int, owner string, params ...predicate.TypePredicate) method.Method {
	sig := signature.New(precedence, params...)
	return method.New(sig, nil, owner, reflect.ValueOf(noop))
}

func TestResolveUnambiguous(t *testing.T) {
	r := New("f")
	r.Register(newMethod(0, "f", predicate.NewNominal(0)))
	r.Register(newMethod(0, "f", predicate.NewNominal("")))

	m, err := r.Resolve([]interface{}{5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !predicate.Equal(m.Signature.Params[0], predicate.NewNominal(0)) {
		t.Errorf("expected the int overload to be selected")
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New("f")
	r.Register(newMethod(0, "f", predicate.NewNominal(0)))

	_, err := r.Resolve([]interface{}{"x"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestResolveSpecificityPrunesAmbiguity(t *testing.T) {
	type Number struct{}
	type Integer struct{}
	predicate.RegisterSupertype(reflect.TypeOf(Integer{}), reflect.TypeOf(Number{}))

	r := New("f")
	r.Register(newMethod(0, "f", predicate.NewNominal(Number{})))
	r.Register(newMethod(0, "f", predicate.NewNominal(Integer{})))

	m, err := r.Resolve([]interface{}{Integer{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !predicate.Equal(m.Signature.Params[0], predicate.NewNominal(Integer{})) {
		t.Errorf("the more specific Integer overload should win")
	}
}

func TestResolveUnionBeatsAny(t *testing.T) {
	r := New("f")
	r.Register(newMethod(0, "f", predicate.NewUnion(predicate.NewNominal(0), predicate.NewNominal(""))))
	r.Register(newMethod(0, "f", predicate.Any))

	// Both overloads match a string, but Union(int,string) is strictly more
	// specific than Any on the sole position, so the antichain reduction
	// leaves one method and no precedence tie-break is needed.
	m, err := r.Resolve([]interface{}{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Signature.Params) != 1 {
		t.Fatalf("expected a 1-arity method to be selected")
	}
}

func TestRegisterReplacesEqualUnionSignature(t *testing.T) {
	r := New("f")
	r.Register(newMethod(0, "f", predicate.NewLiteral(1)))
	r.Register(newMethod(0, "f", predicate.NewLiteral(1)))
	// Re-registering an equal signature replaces in place, for Literal and
	// Union predicates alike.
	r2 := New("g")
	r2.Register(newMethod(0, "g", predicate.NewUnion(predicate.NewNominal(0))))
	r2.Register(newMethod(0, "g", predicate.NewUnion(predicate.NewNominal(0))))
	if len(r2.Methods) != 1 {
		t.Fatalf("registering an equal signature twice should replace, not append; got %d methods", len(r2.Methods))
	}
}

func TestRegisterReplacesEqualSignature(t *testing.T) {
	r := New("f")
	first := newMethod(0, "f", predicate.NewNominal(0))
	second := newMethod(0, "f", predicate.NewNominal(0))
	replaced := r.Register(first)
	if replaced {
		t.Errorf("the first registration should not report a replacement")
	}
	replaced = r.Register(second)
	if !replaced {
		t.Errorf("registering an equal signature again should report a replacement")
	}
	if len(r.Methods) != 1 {
		t.Fatalf("expected exactly one method after replacement, got %d", len(r.Methods))
	}
}

func TestIsFaithful(t *testing.T) {
	r := New("f")
	r.Register(newMethod(0, "f", predicate.NewNominal(0)))
	if !r.IsFaithful() {
		t.Errorf("a resolver with only Nominal predicates should be faithful")
	}
	r.Register(newMethod(0, "f", predicate.NewLiteral(1)))
	if r.IsFaithful() {
		t.Errorf("adding a Literal-based method should make the resolver unfaithful")
	}
}
