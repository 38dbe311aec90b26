package hierarchy

import (
	"reflect"
	"testing"
)

type base struct{}
type mid struct{}
type leaf struct{}

func staticAncestors(t reflect.Type) []reflect.Type {
	switch t {
	case reflect.TypeOf(leaf{}):
		return []reflect.Type{reflect.TypeOf(mid{}), reflect.TypeOf(base{})}
	case reflect.TypeOf(mid{}):
		return []reflect.Type{reflect.TypeOf(base{})}
	default:
		return nil
	}
}

func TestResolveFindsNearestAncestor(t *testing.T) {
	w := NewWalker(staticAncestors)
	found, ok := w.Resolve(reflect.TypeOf(leaf{}), func(candidate reflect.Type) bool {
		return candidate == reflect.TypeOf(mid{})
	})
	if !ok || found != reflect.TypeOf(mid{}) {
		t.Fatalf("expected to resolve to mid, got %v, ok=%v", found, ok)
	}
}

func TestResolveFallsThroughToFurtherAncestor(t *testing.T) {
	w := NewWalker(staticAncestors)
	found, ok := w.Resolve(reflect.TypeOf(leaf{}), func(candidate reflect.Type) bool {
		return candidate == reflect.TypeOf(base{})
	})
	if !ok || found != reflect.TypeOf(base{}) {
		t.Fatalf("expected to resolve to base, got %v, ok=%v", found, ok)
	}
}

func TestResolveNoMatch(t *testing.T) {
	w := NewWalker(staticAncestors)
	_, ok := w.Resolve(reflect.TypeOf(leaf{}), func(reflect.Type) bool { return false })
	if ok {
		t.Errorf("expected no ancestor to satisfy the predicate")
	}
}

func TestNoneHierarchyFindsNothing(t *testing.T) {
	w := NewWalker(nil)
	_, ok := w.Resolve(reflect.TypeOf(leaf{}), func(reflect.Type) bool { return true })
	if ok {
		t.Errorf("a Walker with no configured Ancestors should never resolve")
	}
}
