// Package method implements the Method value object of SPEC_FULL.md §4.3,
// grounded on the original implementation's plum/method.py: an immutable
// record pairing a signature with the callable that implements it and the
// owner under whose name it was registered.
package method

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/plumdispatch/plum/internal/signature"
)

// Impl is the callable a Method wraps. Plum dispatches on runtime argument
// types, not Go static types, so the implementation is stored as a
// reflect.Value and invoked through reflect.Value.Call; internal/introspect
// is responsible for deriving a Signature from the same reflect.Value.
type Impl = reflect.Value

// Method is an immutable record of one registered implementation: its
// signature, the callable, the declared return type (nil means "any"), the
// owning function name it was registered under, and a process-unique ID.
//
// Equality and identity follow the original plum/method.py: two methods are
// equal iff their signature, return type, owner, and underlying callable all
// match — the UUID is identity, not a field of value equality, since two
// re-registrations of the textually identical method should still compare
// equal for redefinition detection.
type Method struct {
	ID         uuid.UUID
	Signature  signature.Signature
	ReturnType reflect.Type
	Owner      string
	Impl       Impl
}

// New creates a Method with a fresh identity.
func New(sig signature.Signature, returnType reflect.Type, owner string, impl Impl) Method {
	return Method{
		ID:         uuid.New(),
		Signature:  sig,
		ReturnType: returnType,
		Owner:      owner,
		Impl:       impl,
	}
}

// Equal reports whether m and other denote the same registration: identical
// signature (by the signature package's own Equal, not Go struct equality,
// since two textually different but set-equal predicate trees must compare
// equal), return type, owner, and underlying callable pointer.
//
// This mirrors plum/method.py's Method.__eq__, which compares all fields
// except any per-instance identity token.
func (m Method) Equal(other Method) bool {
	if m.Owner != other.Owner {
		return false
	}
	if m.ReturnType != other.ReturnType {
		return false
	}
	if !signature.Equal(m.Signature, other.Signature) {
		return false
	}
	return samePointer(m.Impl, other.Impl)
}

func samePointer(a, b Impl) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	return a.Pointer() == b.Pointer()
}

// Call invokes the wrapped implementation with args and returns its raw
// results (before return-type conversion, which is internal/function's
// responsibility).
func (m Method) Call(args []reflect.Value) []reflect.Value {
	return m.Impl.Call(args)
}

// String renders the method for diagnostics as "owner(signature) -> return".
func (m Method) String() string {
	ret := "any"
	if m.ReturnType != nil {
		ret = m.ReturnType.String()
	}
	return m.Owner + m.Signature.String() + " -> " + ret
}
