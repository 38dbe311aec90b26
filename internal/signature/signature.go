// Package signature implements §4.2 of SPEC_FULL.md: an ordered tuple of
// parameter predicates, an optional variadic tail, precedence, and the
// specificity partial order used by the resolver.
package signature

import (
	"fmt"

	"github.com/plumdispatch/plum/internal/predicate"
)

// InvalidSignatureError is returned by NewVariadic when the variadic tail
// predicate is nil (§7 InvalidSignature). The variadic-only-at-tail
// invariant of §4.2 holds by construction, since the tail is a field of its
// own rather than a position in Params.
type InvalidSignatureError struct {
	Reason string
}

func (e *InvalidSignatureError) Error() string {
	return "invalid signature: " + e.Reason
}

// Signature is an ordered list of positional predicates, an optional
// trailing variadic predicate, and a precedence used to break ties between
// otherwise-incomparable matches.
type Signature struct {
	Params     []predicate.TypePredicate
	Variadic   predicate.TypePredicate // nil if this signature has no variadic tail
	Precedence int
}

// New constructs a fixed-arity signature. It cannot fail: with no variadic
// tail there is nothing to validate. NewVariadic, which can fail, returns
// its construction error instead of panicking.
func New(precedence int, params ...predicate.TypePredicate) Signature {
	return Signature{Params: params, Precedence: precedence}
}

// NewVariadic constructs a signature whose trailing parameter is variadic,
// matching zero or more trailing arguments against tail.
func NewVariadic(precedence int, tail predicate.TypePredicate, params ...predicate.TypePredicate) (Signature, error) {
	if tail == nil {
		return Signature{}, &InvalidSignatureError{Reason: "variadic tail predicate must not be nil"}
	}
	return Signature{Params: params, Variadic: tail, Precedence: precedence}, nil
}

// HasVariadic reports whether this signature has a variadic tail.
func (s Signature) HasVariadic() bool { return s.Variadic != nil }

// Len returns the fixed arity of the signature (the variadic tail, if any,
// is excluded).
func (s Signature) Len() int { return len(s.Params) }

// IsFaithful is the conjunction of every component predicate's Faithful
// bit, per §3: "derived is_faithful bit (conjunction of all components)."
func (s Signature) IsFaithful() bool {
	for _, p := range s.Params {
		if !p.Faithful() {
			return false
		}
	}
	if s.Variadic != nil && !s.Variadic.Faithful() {
		return false
	}
	return true
}

// ExpandTo returns the positional predicates of s as if its variadic tail
// (if any) had been expanded to produce exactly k total positions. For a
// non-variadic signature, this is simply s.Params, regardless of k (there
// is nothing to expand). Idempotent: ExpandTo(k) applied again to its own
// result (now non-variadic) returns the same slice.
func (s Signature) ExpandTo(k int) []predicate.TypePredicate {
	if !s.HasVariadic() {
		return s.Params
	}
	extra := k - len(s.Params)
	if extra < 0 {
		extra = 0
	}
	out := make([]predicate.TypePredicate, 0, len(s.Params)+extra)
	out = append(out, s.Params...)
	for i := 0; i < extra; i++ {
		out = append(out, s.Variadic)
	}
	return out
}

// Matches reports whether the signature accepts a concrete runtime argument
// tuple, per §4.2: too few args never match; too many require a variadic
// tail; otherwise each predicate matches its positional argument, with the
// variadic tail (if present) consuming all trailing arguments.
func (s Signature) Matches(args []interface{}) bool {
	n := len(s.Params)
	if len(args) < n {
		return false
	}
	if len(args) > n && !s.HasVariadic() {
		return false
	}
	for i := 0; i < n; i++ {
		if !s.Params[i].Matches(args[i]) {
			return false
		}
	}
	if s.HasVariadic() {
		for i := n; i < len(args); i++ {
			if !s.Variadic.Matches(args[i]) {
				return false
			}
		}
	}
	return true
}

// compatible implements §4.2's arity-reconciliation rule: equal arities, or
// the shorter signature has a variadic tail able to extend to meet the
// longer one.
func compatible(s, t Signature) bool {
	if s.Len() == t.Len() {
		return true
	}
	if s.Len() > t.Len() {
		return t.HasVariadic()
	}
	return s.HasVariadic()
}

// LE implements the Signature partial order of §4.2: arity compatibility,
// variadic-tail comparison, then positional (after expansion) comparison.
func (s Signature) LE(t Signature) bool {
	if s.HasVariadic() && !t.HasVariadic() {
		return false
	}
	if !compatible(s, t) {
		return false
	}
	if s.HasVariadic() && t.HasVariadic() {
		if !s.Variadic.LE(t.Variadic) {
			return false
		}
	}

	target := t.Len()
	if s.Len() > target {
		target = s.Len()
	}
	sExp := s.ExpandTo(target)
	tExp := t.ExpandTo(target)
	if len(sExp) != len(tExp) {
		return false
	}
	for i := range sExp {
		if !sExp[i].LE(tExp[i]) {
			return false
		}
	}
	return true
}

// Equal reports whether s and t denote the same set of accepted argument
// tuples and have the same variadic-ness (§8 invariants: S ≤ T ∧ T ≤ S ↔
// S == T).
func Equal(s, t Signature) bool {
	return s.LE(t) && t.LE(s)
}

// Less reports whether s is a strict refinement of t.
func Less(s, t Signature) bool {
	return s.LE(t) && !t.LE(s)
}

// Comparable reports whether s and t are ordered in either direction. Used
// by the resolver's antichain-minimization pass (§4.4.2).
func Comparable(s, t Signature) bool {
	return s.LE(t) || t.LE(s)
}

// Distance counts positional mismatches between s and the runtime types of
// args, for diagnostic display only (§4.2, §7). Arguments beyond s's fixed
// arity count as one mismatch each when s has no variadic tail able to
// absorb them; if s does have a variadic tail, excess arguments are
// checked against it.
func (s Signature) Distance(args []interface{}) int {
	misses, _ := s.Mismatches(args)
	return len(misses)
}

// Mismatches returns the zero-based positions of args that do not match the
// corresponding (possibly expanded) predicate of s, and whether any
// mismatch occurred within the variadic tail. This underlies §7's "top-3
// closest signatures with mismatched positions marked."
func (s Signature) Mismatches(args []interface{}) (positions []int, variadicMismatch bool) {
	n := s.Len()
	for i := 0; i < n && i < len(args); i++ {
		if !s.Params[i].Matches(args[i]) {
			positions = append(positions, i)
		}
	}
	if len(args) < n {
		for i := len(args); i < n; i++ {
			positions = append(positions, i)
		}
	}
	if len(args) > n {
		if !s.HasVariadic() {
			for i := n; i < len(args); i++ {
				positions = append(positions, i)
			}
		} else {
			for i := n; i < len(args); i++ {
				if !s.Variadic.Matches(args[i]) {
					positions = append(positions, i)
					variadicMismatch = true
				}
			}
		}
	}
	return positions, variadicMismatch
}

// String renders the signature for diagnostics, e.g. "(Int, String, Float...)".
func (s Signature) String() string {
	out := "("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		out += p.String()
	}
	if s.HasVariadic() {
		if len(s.Params) > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s...", s.Variadic.String())
	}
	out += ")"
	return out
}
