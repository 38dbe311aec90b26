package introspect

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func callArgs(vals ...interface{}) []reflect.Value {
	out := make([]reflect.Value, len(vals))
	for i, v := range vals {
		out[i] = reflect.ValueOf(v)
	}
	return out
}

func addInts(a, b int) int { return a + b }

func variadicSum(prefix string, nums ...int) int {
	total := 0
	for _, n := range nums {
		total += n
	}
	return total
}

func mayFail(a int) (string, error) { return "", nil }

func describeK(a int, b int, c float64) string {
	return fmt.Sprintf("%d-%d-%g", a, b, c)
}

func TestSignatureFixedArity(t *testing.T) {
	sig, err := Signature(addInts, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Len() != 2 {
		t.Fatalf("expected arity 2, got %d", sig.Len())
	}
	if sig.HasVariadic() {
		t.Errorf("addInts should not produce a variadic signature")
	}
	if !sig.Matches([]interface{}{1, 2}) {
		t.Errorf("derived signature should match (int, int)")
	}
	if sig.Matches([]interface{}{"x", "y"}) {
		t.Errorf("derived signature should not match (string, string)")
	}
}

func TestSignatureVariadic(t *testing.T) {
	sig, err := Signature(variadicSum, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sig.HasVariadic() {
		t.Errorf("variadicSum should produce a variadic signature")
	}
	if sig.Len() != 1 {
		t.Fatalf("expected fixed arity 1 (the prefix), got %d", sig.Len())
	}
	if !sig.Matches([]interface{}{"p", 1, 2, 3}) {
		t.Errorf("derived variadic signature should accept trailing ints")
	}
}

func TestSignatureRejectsNonFunc(t *testing.T) {
	_, err := Signature(42, 0)
	var nf *NotAFunctionError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotAFunctionError, got %v", err)
	}
}

func TestReturnTypeExcludesTrailingError(t *testing.T) {
	rt := ReturnType(mayFail)
	if rt == nil || rt.Kind().String() != "string" {
		t.Errorf("expected return type string, got %v", rt)
	}
	if !ReturnsError(mayFail) {
		t.Errorf("mayFail should be detected as returning a trailing error")
	}
}

func TestReturnTypeNoReturns(t *testing.T) {
	noop := func() {}
	if rt := ReturnType(noop); rt != nil {
		t.Errorf("a function with no return values should report nil return type, got %v", rt)
	}
}

func TestExpandDefaultsProducesOneSignaturePerOmittedSuffix(t *testing.T) {
	expansions, err := ExpandDefaults(describeK, 0,
		[]string{"a", "b", "c"},
		map[string]interface{}{"b": 4, "c": 5.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expansions) != 3 {
		t.Fatalf("expected 3 expansions (arities 1, 2, 3), got %d", len(expansions))
	}

	for i, want := range []int{1, 2, 3} {
		if got := expansions[i].Signature.Len(); got != want {
			t.Errorf("expansion %d: expected arity %d, got %d", i, want, got)
		}
	}

	one := expansions[0].Impl.Call(callArgs(1))
	if one[0].String() != "1-4-5" {
		t.Errorf("expected the 1-arg adapter to fill in both defaults, got %q", one[0].String())
	}
	two := expansions[1].Impl.Call(callArgs(1, 9))
	if two[0].String() != "1-9-5" {
		t.Errorf("expected the 2-arg adapter to fill in the trailing default only, got %q", two[0].String())
	}
	three := expansions[2].Impl.Call(callArgs(1, 9, 2.5))
	if three[0].String() != "1-9-2.5" {
		t.Errorf("expected the 3-arg adapter to pass all arguments through, got %q", three[0].String())
	}
}

func TestExpandDefaultsRejectsNonTrailingDefault(t *testing.T) {
	_, err := ExpandDefaults(describeK, 0,
		[]string{"a", "b", "c"},
		map[string]interface{}{"a": 1, "c": 5.0})
	var nt *DefaultsNotTrailingError
	if !errors.As(err, &nt) {
		t.Fatalf("expected DefaultsNotTrailingError, got %v", err)
	}
}

func TestExpandDefaultsRejectsVariadic(t *testing.T) {
	_, err := ExpandDefaults(variadicSum, 0, []string{"prefix"}, map[string]interface{}{"prefix": "x"})
	if err == nil {
		t.Errorf("expected an error expanding defaults over a variadic function")
	}
}
