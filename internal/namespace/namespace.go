// Package namespace implements the Namespace Manager (C12): synthesizes
// the minimal set of namespace objects so that every surviving dotted
// access in the rewritten bundle resolves, for packages `P.Q.R` where
// only some levels correspond to an actual wrapper module.
//
// Every level of a dotted path that a `ModuleImport`/`StarImport` target
// sits under needs its own namespace object, whether or not that level
// has a module file of its own — `import a.b.c` must make `a.b` resolve
// even if `a` is a bare directory package with no real content. Each
// required level gets one `types.SimpleNamespace()` instance (stdlib, no
// bespoke namespace class needed) and, where it corresponds to an actual
// wrapper module, C11's guard flags alongside it. Parent/child wiring —
// `ns_a.b = ns_a_b` — is kept separate from the declarations themselves,
// matching the Bundle Assembler's split between "namespace scaffolding"
// (early) and "parent/child attribute wiring" (after wrapper init
// functions are in scope).
package namespace

import (
	"sort"
	"strings"

	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/wrapper"
)

// Scaffold is C12's output, split into the two phases C13 places at
// different points in the assembled bundle.
type Scaffold struct {
	// Declarations creates every required namespace object (and, for
	// paths backed by a real wrapper module, its guard flags), in
	// parent-before-child order.
	Declarations []pyast.Stmt
	// Wiring attaches each namespace to its parent's corresponding
	// attribute, in parent-before-child order.
	Wiring []pyast.Stmt
	// VarFor maps a dotted path to the Python identifier holding its
	// namespace object, for every path requiring one.
	VarFor map[string]string
	// RequiresTypesImport is true iff Declarations is non-empty, meaning
	// the bundle needs `import types` hoisted into its stdlib section.
	RequiresTypesImport bool
}

// Build computes the namespace scaffold from C7's role decisions. decisions
// must include an entry for every module C7 classified (wrapper or not);
// dottedNames maps each decision's Module back to its dotted path.
func Build(decisions []classify.Decision, dottedNames map[classify.Decision]string) *Scaffold {
	wrapperDecision := map[string]classify.Decision{}
	for _, d := range decisions {
		if d.Role != classify.Wrapper {
			continue
		}
		if dotted, ok := dottedNames[d]; ok {
			wrapperDecision[dotted] = d
		}
	}

	required := map[string]bool{}
	for dotted := range wrapperDecision {
		for _, prefix := range prefixesOf(dotted) {
			required[prefix] = true
		}
	}

	var paths []string
	for p := range required {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		di, dj := strings.Count(paths[i], "."), strings.Count(paths[j], ".")
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})

	varFor := map[string]string{}
	n := newNamer()
	for _, p := range paths {
		if d, ok := wrapperDecision[p]; ok {
			varFor[p] = wrapper.NamespaceVar(d)
			n.reserve(varFor[p])
		}
	}
	for _, p := range paths {
		if _, ok := varFor[p]; ok {
			continue
		}
		varFor[p] = n.unique("__ns_" + sanitize(p))
	}

	s := &Scaffold{VarFor: varFor}
	for _, p := range paths {
		s.Declarations = append(s.Declarations, assignNamespace(varFor[p]))
		if d, ok := wrapperDecision[p]; ok {
			s.Declarations = append(s.Declarations,
				assignBool(wrapper.InitializingVar(d), false),
				assignBool(wrapper.InitializedVar(d), false),
			)
		}
	}
	s.RequiresTypesImport = len(s.Declarations) > 0

	for _, p := range paths {
		idx := strings.LastIndex(p, ".")
		if idx < 0 {
			continue // top-level name: no parent to wire into
		}
		parent, child := p[:idx], p[idx+1:]
		s.Wiring = append(s.Wiring, &pyast.Assign{
			Targets: []pyast.Expr{&pyast.Attribute{Value: &pyast.Name{Id: varFor[parent]}, Attr: child}},
			Value:   &pyast.Name{Id: varFor[p]},
		})
	}
	return s
}

func prefixesOf(dotted string) []string {
	parts := strings.Split(dotted, ".")
	out := make([]string, len(parts))
	for i := range parts {
		out[i] = strings.Join(parts[:i+1], ".")
	}
	return out
}

func assignNamespace(varName string) *pyast.Assign {
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: varName}},
		Value: &pyast.Call{
			Func: &pyast.Attribute{Value: &pyast.Name{Id: "types"}, Attr: "SimpleNamespace"},
		},
	}
}

func assignBool(name string, value bool) *pyast.Assign {
	literal := "False"
	if value {
		literal = "True"
	}
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: name}},
		Value:   &pyast.Constant{Kind: pyast.ConstBool, Value: literal},
	}
}

func sanitize(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "_")
}

// namer gives ancestor-package placeholder namespace variables
// reserve-then-suffix collision resistance (a numeric `_N` suffix, where
// classify.namer uses a hash suffix for wrapper module namespace names), so a synthesized ancestor path never
// collides with a real wrapper module's own namespace identifier.
type namer struct{ used map[string]bool }

func newNamer() *namer { return &namer{used: map[string]bool{}} }

func (n *namer) reserve(name string) { n.used[name] = true }

func (n *namer) unique(base string) string {
	if !n.used[base] {
		n.used[base] = true
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "_" + itoa(i)
		if !n.used[candidate] {
			n.used[candidate] = true
			return candidate
		}
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
