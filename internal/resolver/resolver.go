// Package resolver implements the candidate-filtering and antichain
// minimization at the heart of dispatch, grounded on plum/resolver.py's
// Resolver.register/Resolver.resolve.
package resolver

import (
	"fmt"
	"strings"

	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/signature"
)

// NotFoundError is returned when no registered method's signature matches
// the given argument tuple.
type NotFoundError struct {
	Owner   string
	Args    []interface{}
	Methods []method.Method
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no matching method for %d argument(s)", e.Owner, len(e.Args))
}

// AmbiguousError is returned when two or more registered methods match the
// given argument tuple and neither is more specific than the other, nor do
// their precedences break the tie.
type AmbiguousError struct {
	Owner      string
	Args       []interface{}
	Candidates []method.Method
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.Signature.String()
	}
	return fmt.Sprintf("%s: ambiguous between %s", e.Owner, strings.Join(names, ", "))
}

// Resolver holds every registered method for one owner name (one Function,
// in dispatcher terms) and resolves a runtime argument tuple to exactly one
// of them.
type Resolver struct {
	Owner   string
	Methods []method.Method
}

// New builds an empty Resolver for owner.
func New(owner string) *Resolver {
	return &Resolver{Owner: owner}
}

// Register adds m to the resolver. If an existing method has an equal
// signature (signature.Equal), it is replaced in place rather than
// appended, matching plum/resolver.py's register() redefinition handling:
// redefining a method updates its implementation without growing the
// candidate set or disturbing registration order for unrelated methods.
func (r *Resolver) Register(m method.Method) (replaced bool) {
	for i, existing := range r.Methods {
		if signature.Equal(existing.Signature, m.Signature) {
			r.Methods[i] = m
			return true
		}
	}
	r.Methods = append(r.Methods, m)
	return false
}

// Resolve finds the single most-specific method matching args, per §4.4:
// filter to every signature that matches, minimize to the antichain of
// maximally-specific matches, then break remaining ties by precedence. An
// empty filtered set is NotFoundError; more than one method surviving both
// the antichain reduction and the precedence tie-break is AmbiguousError.
func (r *Resolver) Resolve(args []interface{}) (method.Method, error) {
	var candidates []method.Method
	for _, m := range r.Methods {
		if m.Signature.Matches(args) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return method.Method{}, &NotFoundError{Owner: r.Owner, Args: args, Methods: r.Methods}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	minimal := minimize(candidates)
	if len(minimal) == 1 {
		return minimal[0], nil
	}

	winners := breakByPrecedence(minimal)
	if len(winners) == 1 {
		return winners[0], nil
	}

	return method.Method{}, &AmbiguousError{Owner: r.Owner, Args: args, Candidates: winners}
}

// minimize reduces candidates to their antichain of maximally specific
// signatures: a candidate is dropped only if some other surviving candidate
// is a strict refinement of it (signature.Less), per §4.4.2.
func minimize(candidates []method.Method) []method.Method {
	var minimal []method.Method
	for i, c := range candidates {
		dominated := false
		for j, other := range candidates {
			if i == j {
				continue
			}
			if signature.Less(other.Signature, c.Signature) {
				dominated = true
				break
			}
		}
		if !dominated {
			minimal = append(minimal, c)
		}
	}
	return minimal
}

// breakByPrecedence keeps only the methods sharing the maximum precedence
// among candidates, matching the original implementation's use of a
// method's declared precedence as the final, explicit tie-breaker once
// specificity alone cannot decide.
func breakByPrecedence(candidates []method.Method) []method.Method {
	max := candidates[0].Signature.Precedence
	for _, c := range candidates[1:] {
		if c.Signature.Precedence > max {
			max = c.Signature.Precedence
		}
	}
	var winners []method.Method
	for _, c := range candidates {
		if c.Signature.Precedence == max {
			winners = append(winners, c)
		}
	}
	return winners
}

// IsFaithful reports whether every registered method's signature is
// faithful, the condition under which a call-time cache entry keyed purely
// by runtime argument types remains valid indefinitely (§4.5.2). A single
// unfaithful method anywhere in the resolver poisons cache faithfulness for
// the whole owner, since an unfaithful method could match or stop matching
// the same argument-type tuple depending on argument contents.
func (r *Resolver) IsFaithful() bool {
	for _, m := range r.Methods {
		if !m.Signature.IsFaithful() {
			return false
		}
	}
	return true
}
