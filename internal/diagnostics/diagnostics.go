// Package diagnostics renders NotFoundError and AmbiguousError into
// human-readable messages, grounded on plum/resolver.py's
// _render_function_call / compute_distance / compute_mismatches. Color
// decisions follow internal/evaluator/builtins_term.go's use of
// github.com/mattn/go-isatty to detect an interactive terminal.
package diagnostics

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/plumdispatch/plum/internal/method"
	"github.com/plumdispatch/plum/internal/resolver"
)

const closestCandidateCount = 3

// colorEnabled reports whether diagnostic output should be ANSI-colored:
// only when stderr is an interactive terminal, matching the teacher's
// double-buffered output's isatty gate.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func bold(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\x1b[1m" + s + "\x1b[0m"
}

func red(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

// candidateDistance pairs a method with its mismatch distance against a
// failed call's arguments, for sorting the "closest candidates" list.
type candidateDistance struct {
	Method    method.Method
	Distance  int
	Positions []int
}

func closest(args []interface{}, methods []method.Method) []candidateDistance {
	ranked := make([]candidateDistance, 0, len(methods))
	for _, m := range methods {
		positions, _ := m.Signature.Mismatches(args)
		ranked = append(ranked, candidateDistance{Method: m, Distance: len(positions), Positions: positions})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})
	if len(ranked) > closestCandidateCount {
		ranked = ranked[:closestCandidateCount]
	}
	return ranked
}

func renderArgs(args []interface{}) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%T", a)
	}
	return strings.Join(parts, ", ")
}

// RenderNotFound builds the multi-line diagnostic for a NotFoundError: the
// failing call, followed by up to the three registered signatures closest
// to matching, each with its mismatched positions marked.
func RenderNotFound(err *resolver.NotFoundError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: could not find a matching method for call %s(%s)\n",
		red("NotFoundLookupError"), bold(err.Owner), renderArgs(err.Args))

	if len(err.Methods) == 0 {
		b.WriteString("  (no methods are registered under this name)\n")
		return b.String()
	}

	b.WriteString("  closest candidates:\n")
	for _, c := range closest(err.Args, err.Methods) {
		fmt.Fprintf(&b, "    %s  (mismatched at %s)\n", c.Method.Signature.String(), positionList(c.Positions))
	}
	return b.String()
}

// RenderAmbiguous builds the diagnostic for an AmbiguousError: the failing
// call followed by every tied candidate signature.
func RenderAmbiguous(err *resolver.AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: call %s(%s) is ambiguous between %d methods\n",
		red("AmbiguousLookupError"), bold(err.Owner), renderArgs(err.Args), len(err.Candidates))
	for _, c := range err.Candidates {
		fmt.Fprintf(&b, "    %s\n", c.Signature.String())
	}
	return b.String()
}

func positionList(positions []int) string {
	if len(positions) == 0 {
		return "none"
	}
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ",")
}
