// Command plumgen scans a Go package for functions annotated with a
// //plum:defaults directive and emits a registration file supplying the
// default argument values Go itself has no syntax for. This replaces the
// role Python's append_default_args (reading a function's own
// inspect.signature() defaults) plays in the original implementation: Go
// function values carry no runtime-visible default parameter list, so the
// defaults have to be captured at build time from source instead.
//
// Grounded on internal/ext/inspector.go's use of golang.org/x/tools/go/packages
// to load and type-check a package, and its //go:generate-driven codegen
// posture (a dev-time tool outside the evaluator core).
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/types"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// directivePrefix marks a doc comment line as a defaults directive, e.g.:
//
//	//plum:defaults base=10 prefix=""
const directivePrefix = "plum:defaults"

// defaultEntry is one function's worth of captured default argument
// expressions, keyed by parameter name in declaration order.
type defaultEntry struct {
	PackageName string
	FuncName    string
	Params      []string // parameter names, in order
	Defaults    map[string]string
}

func main() {
	dir := flag.String("dir", ".", "directory of the package to scan")
	out := flag.String("out", "plum_defaults_gen.go", "output file name, written inside -dir")
	flag.Parse()

	entries, pkgName, err := scan(*dir)
	if err != nil {
		log.Fatalf("plumgen: %v", err)
	}
	if len(entries) == 0 {
		log.Printf("plumgen: no //plum:defaults directives found in %s, nothing to generate", *dir)
		return
	}

	src, err := render(pkgName, entries)
	if err != nil {
		log.Fatalf("plumgen: rendering output: %v", err)
	}

	outPath := filepath.Join(*dir, *out)
	if err := os.WriteFile(outPath, src, 0o644); err != nil {
		log.Fatalf("plumgen: writing %s: %v", outPath, err)
	}
	log.Printf("plumgen: wrote %s (%d function(s))", outPath, len(entries))
}

// scan loads the package at dir and collects a defaultEntry for every
// top-level func whose doc comment carries a //plum:defaults directive.
func scan(dir string) ([]defaultEntry, string, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedTypes |
			packages.NeedTypesInfo |
			packages.NeedSyntax |
			packages.NeedImports,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, "", fmt.Errorf("loading package: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, "", fmt.Errorf("no package found in %s", dir)
	}
	pkg := pkgs[0]
	for _, e := range pkg.Errors {
		return nil, "", fmt.Errorf("%s: %s", pkg.PkgPath, e.Msg)
	}

	var entries []defaultEntry
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Doc == nil || fd.Recv != nil {
				continue
			}
			directive, ok := findDirective(fd.Doc)
			if !ok {
				continue
			}
			entry, err := buildEntry(pkg, fd, directive)
			if err != nil {
				return nil, "", fmt.Errorf("%s: %w", fd.Name.Name, err)
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].FuncName < entries[j].FuncName })
	return entries, pkg.Name, nil
}

func findDirective(doc *ast.CommentGroup) (string, bool) {
	for _, c := range doc.List {
		text := strings.TrimPrefix(c.Text, "//")
		text = strings.TrimSpace(text)
		if strings.HasPrefix(text, directivePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(text, directivePrefix)), true
		}
	}
	return "", false
}

// buildEntry parses a directive body of the form `name=expr name=expr ...`
// and pairs it with fd's parameter names, using go/types to confirm the
// function shape (so a directive naming a parameter that does not exist is
// a generation-time error, not a silently ignored one).
func buildEntry(pkg *packages.Package, fd *ast.FuncDecl, directive string) (defaultEntry, error) {
	obj := pkg.TypesInfo.Defs[fd.Name]
	if obj == nil {
		return defaultEntry{}, fmt.Errorf("no type information for %s", fd.Name.Name)
	}
	sig, ok := obj.Type().(*types.Signature)
	if !ok {
		return defaultEntry{}, fmt.Errorf("%s is not a function", fd.Name.Name)
	}

	names := make([]string, sig.Params().Len())
	index := map[string]bool{}
	for i := 0; i < sig.Params().Len(); i++ {
		names[i] = sig.Params().At(i).Name()
		index[names[i]] = true
	}

	defaults := map[string]string{}
	for _, pair := range strings.Fields(directive) {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return defaultEntry{}, fmt.Errorf("malformed directive clause %q", pair)
		}
		if !index[kv[0]] {
			return defaultEntry{}, fmt.Errorf("directive names unknown parameter %q", kv[0])
		}
		defaults[kv[0]] = kv[1]
	}

	return defaultEntry{
		PackageName: pkg.Name,
		FuncName:    fd.Name.Name,
		Params:      names,
		Defaults:    defaults,
	}, nil
}

const fileTemplate = `// Code generated by plumgen. DO NOT EDIT.

package %s

// plumDefaults maps a function name to its declared default argument
// expressions by parameter name. Pass plumDefaults[name] and
// plumDefaultParams[name] to (*dispatcher.Dispatcher).RegisterWithDefaults
// in place of Register/Dispatch to have it expand into one signature per
// omitted trailing argument.
var plumDefaults = map[string]map[string]interface{}{
%s}

// plumDefaultParams records each function's parameter names in declaration
// order, since reflect.Type carries no parameter names at runtime —
// RegisterWithDefaults needs them to match plumDefaults' keys back to
// positions.
var plumDefaultParams = map[string][]string{
%s}
`

func render(pkgName string, entries []defaultEntry) ([]byte, error) {
	var defaultsBody, paramsBody strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&defaultsBody, "\t%q: {\n", e.FuncName)
		for _, name := range e.Params {
			expr, ok := e.Defaults[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&defaultsBody, "\t\t%q: %s,\n", name, expr)
		}
		defaultsBody.WriteString("\t},\n")

		fmt.Fprintf(&paramsBody, "\t%q: {", e.FuncName)
		for i, name := range e.Params {
			if i > 0 {
				paramsBody.WriteString(", ")
			}
			fmt.Fprintf(&paramsBody, "%q", name)
		}
		paramsBody.WriteString("},\n")
	}

	raw := fmt.Sprintf(fileTemplate, pkgName, defaultsBody.String(), paramsBody.String())
	var buf bytes.Buffer
	formatted, err := format.Source([]byte(raw))
	if err != nil {
		return nil, err
	}
	buf.Write(formatted)
	return buf.Bytes(), nil
}
