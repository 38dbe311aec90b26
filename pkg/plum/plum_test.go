package plum

import (
	"reflect"
	"testing"
)

type Animal struct{ Name string }
type Dog struct{ Animal }
type Cat struct{ Animal }

func TestDispatchOnRuntimeType(t *testing.T) {
	d := NewDispatcher("animals")
	if _, err := d.Dispatch("speak", func(a Dog) string { return a.Name + " says Woof" }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Dispatch("speak", func(a Cat) string { return a.Name + " says Meow" }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := d.Call("speak", Dog{Animal{Name: "Rex"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "Rex says Woof" {
		t.Errorf("expected dog dispatch, got %v", out[0])
	}
}

func TestAnyAndLiteralPredicates(t *testing.T) {
	d := NewDispatcher("parse")
	_, err := d.Register("render", 0, func(v interface{}) string { return "other" }, WithParam(0, Any))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = d.Register("render", 1, func(v interface{}) string { return "flagged" }, WithParam(0, Literal("on")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := d.Call("render", "on")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "flagged" {
		t.Errorf("expected the more specific Literal(\"on\") overload to win over Any, got %v", out[0])
	}

	out, err = d.Call("render", "off")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "other" {
		t.Errorf("expected the Any overload for a non-matching literal, got %v", out[0])
	}
}

func TestClearAllCacheIsProcessWide(t *testing.T) {
	d := NewDispatcher("cachetest")
	if _, err := d.Dispatch("id", func(v int) int { return v }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Call("id", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ClearAllCache()
	out, err := d.Call("id", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != 2 {
		t.Errorf("expected dispatch to keep working after ClearAllCache, got %v", out[0])
	}
}

func TestConvertAndPromoteThroughFacade(t *testing.T) {
	out, err := Convert(3, reflect.TypeOf(float64(0)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(float64) != 3.0 {
		t.Errorf("expected Convert to produce 3.0, got %v", out)
	}

	promoted, err := Promote(1, 2.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := promoted[0].(float64); !ok {
		t.Errorf("expected Promote to produce float64 values, got %T", promoted[0])
	}
}

func TestRegisterSupertypeAffectsSpecificity(t *testing.T) {
	type Number struct{}
	type Integer struct{}
	RegisterSupertype(reflect.TypeOf(Integer{}), reflect.TypeOf(Number{}))

	d := NewDispatcher("hierarchy")
	if _, err := d.Dispatch("classify", func(n Number) string { return "number" }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Dispatch("classify", func(n Integer) string { return "integer" }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := d.Call("classify", Integer{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0] != "integer" {
		t.Errorf("expected the more specific Integer overload to win, got %v", out[0])
	}
}

func TestDispatchMultiAnswersEveryListedSignature(t *testing.T) {
	d := NewDispatcher("describe")
	label := func(v interface{}) string { return "labelled" }
	intSig := NewSignature(0, Nominal(0))
	strSig := NewSignature(0, Nominal(""))
	if _, err := DispatchMulti(d, "describe", label, intSig, strSig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, v := range []interface{}{1, "x"} {
		out, err := d.Call("describe", v)
		if err != nil {
			t.Fatalf("unexpected error dispatching %v: %v", v, err)
		}
		if out[0] != "labelled" {
			t.Errorf("expected labelled for %v, got %v", v, out[0])
		}
	}
}

func TestNotFoundErrorType(t *testing.T) {
	d := NewDispatcher("strict")
	if _, err := d.Dispatch("onlyInt", func(v int) int { return v }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := d.Call("onlyInt", "nope")
	if err == nil {
		t.Fatalf("expected an error calling with a mismatched type")
	}
}
