package method

import (
	"reflect"
	"testing"

	"github.com/plumdispatch/plum/internal/predicate"
	"github.com/plumdispatch/plum/internal/signature"
)

func addInts(a, b int) int { return a + b }

func TestNewAssignsFreshID(t *testing.T) {
	sig := signature.New(0, predicate.NewNominal(0), predicate.NewNominal(0))
	m1 := New(sig, reflect.TypeOf(0), "add", reflect.ValueOf(addInts))
	m2 := New(sig, reflect.TypeOf(0), "add", reflect.ValueOf(addInts))
	if m1.ID == m2.ID {
		t.Errorf("two calls to New should mint distinct IDs")
	}
}

func TestEqualIgnoresID(t *testing.T) {
	sig := signature.New(0, predicate.NewNominal(0), predicate.NewNominal(0))
	m1 := New(sig, reflect.TypeOf(0), "add", reflect.ValueOf(addInts))
	m2 := New(sig, reflect.TypeOf(0), "add", reflect.ValueOf(addInts))
	if !m1.Equal(m2) {
		t.Errorf("methods with the same signature/owner/return type/impl should be Equal regardless of ID")
	}
}

func TestEqualDetectsDifferentOwner(t *testing.T) {
	sig := signature.New(0, predicate.NewNominal(0), predicate.NewNominal(0))
	m1 := New(sig, reflect.TypeOf(0), "add", reflect.ValueOf(addInts))
	m2 := New(sig, reflect.TypeOf(0), "sum", reflect.ValueOf(addInts))
	if m1.Equal(m2) {
		t.Errorf("methods registered under different owners should not be Equal")
	}
}

func TestCallInvokesImpl(t *testing.T) {
	sig := signature.New(0, predicate.NewNominal(0), predicate.NewNominal(0))
	m := New(sig, reflect.TypeOf(0), "add", reflect.ValueOf(addInts))
	out := m.Call([]reflect.Value{reflect.ValueOf(2), reflect.ValueOf(3)})
	if len(out) != 1 || out[0].Interface().(int) != 5 {
		t.Errorf("Call should invoke the wrapped implementation, got %v", out)
	}
}
