// Package imports implements the Import Classifier (C2): for every import
// statement in the module graph it decides the imported name's origin
// (stdlib, first-party, third-party) and, for first-party targets, whether
// the import is module-level or a value pulled out of a module's
// namespace. Every later component — the cycle analyzer, the tree shaker,
// the import transformer — reads C2's classification rather than
// re-deriving it, per the single-rule contract below.
package imports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/schema"
	"github.com/pybundle/pybundle/internal/stdlib"
)

// Origin classifies where an imported top-level name comes from.
type Origin int

const (
	OriginStdlib Origin = iota
	OriginFirstParty
	OriginThirdParty
)

func (o Origin) String() string {
	switch o {
	case OriginStdlib:
		return "stdlib"
	case OriginFirstParty:
		return "first-party"
	case OriginThirdParty:
		return "third-party"
	default:
		return "unknown"
	}
}

// Kind distinguishes a module-level import from a value pulled out of a
// module's namespace. `import a.b.c` and `from a.b import c` where `c` is
// itself a submodule are ModuleImport; `from a.b import c` where `c` is a
// name bound inside module a.b is ValueImport; `from a.b import *` is
// StarImport.
type Kind int

const (
	ModuleImport Kind = iota
	ValueImport
	StarImport
)

// Binding is one name introduced into a module's namespace by an import
// statement — `import x.y` introduces a single Binding for the top-level
// name `x`, and `import x.y as z` a single Binding for `z`.
type Binding struct {
	LocalName    string // the name bound in the importing module's namespace
	ImportedName string // the name as it exists in the source module (value imports) or "" (module imports)

	// DirectModule is true when LocalName is bound directly to the
	// Record's Resolved module itself — an aliased `import a.b as x`, or
	// `from a.b import c` where c is itself a submodule. The import
	// transformer collapses a bare reference to LocalName straight to
	// the target's namespace. It's false for an unaliased `import a.b.c`,
	// where LocalName is only the outer package and the transformer must
	// match the full dotted attribute chain used at each reference site.
	DirectModule bool
}

// Record is one fully classified import: the result of running C2 over a
// single pyast.Import/ImportFrom/Alias triple.
type Record struct {
	Owner       modgraph.ModuleID // the module containing the import statement
	Stmt        pyast.Stmt        // the *pyast.Import or *pyast.ImportFrom
	Target      string            // absolute dotted name of the imported module
	Origin      Origin
	Kind        Kind
	Bindings    []Binding
	Resolved    modgraph.ModuleID // valid iff Origin == OriginFirstParty
	HasResolved bool
}

// Classifier runs C2 over a module graph.
type Classifier struct {
	graph   *modgraph.Graph
	version stdlib.Version
}

// New builds a Classifier targeting the given Python stdlib version.
func New(graph *modgraph.Graph, version stdlib.Version) *Classifier {
	return &Classifier{graph: graph, version: version}
}

// ClassifyAll walks every module's AST and returns the Records of every
// import statement (an `import a, b` statement yields one Record per
// alias), in (ModuleID, statement order) order. It also adds the
// corresponding first-party edges to the graph as a side effect, since C1
// and C2 are defined to run as a single pass in practice.
func (c *Classifier) ClassifyAll() ([]Record, []error) {
	var records []Record
	var errs []error
	for _, m := range c.graph.Modules() {
		pyast.Inspect(m.AST.Body, func(n pyast.Node) bool {
			switch s := n.(type) {
			case *pyast.Import:
				recs, err := c.classifyImport(m, s)
				if err != nil {
					errs = append(errs, err)
					return true
				}
				records = append(records, recs...)
			case *pyast.ImportFrom:
				recs, err := c.classifyImportFrom(m, s)
				if err != nil {
					errs = append(errs, err)
					return true
				}
				records = append(records, recs...)
			}
			return true
		})
	}
	return records, errs
}

func (c *Classifier) classifyImport(m *modgraph.Module, s *pyast.Import) ([]Record, error) {
	var out []Record
	for _, a := range s.Names {
		rec := Record{Owner: m.ID, Stmt: s, Target: a.Name, Kind: ModuleImport}
		top := topLevel(a.Name)
		if stdlib.IsStdlib(top, c.version) {
			rec.Origin = OriginStdlib
			local := a.AsName
			if local == "" {
				local = top
			}
			rec.Bindings = []Binding{{LocalName: local}}
		} else if target, ok := c.graph.ModuleByName(a.Name); ok {
			rec.Origin = OriginFirstParty
			rec.Resolved = target.ID
			rec.HasResolved = true
			c.graph.AddEdge(m.ID, target.ID)
			local := a.AsName
			direct := local != ""
			if local == "" {
				local = top
			}
			rec.Bindings = []Binding{{LocalName: local, DirectModule: direct}}
		} else {
			rec.Origin = OriginThirdParty
			local := a.AsName
			if local == "" {
				local = top
			}
			rec.Bindings = []Binding{{LocalName: local}}
		}
		out = append(out, rec)
	}
	return out, nil
}

// classifyImportFrom returns one Record per distinct target module a
// `from ... import ...` statement touches. A plain value import (or a
// wildcard) yields a single Record resolved against the named package.
// A name that is itself a discovered submodule — `from a.b import c`
// where a.b.c is a module — gets its own Record resolved directly
// against c, since that's the module C5/C6/C9 actually need to reason
// about, not the package c happens to live in.
func (c *Classifier) classifyImportFrom(m *modgraph.Module, s *pyast.ImportFrom) ([]Record, error) {
	target, err := resolveRelative(c.graph, m, s)
	if err != nil {
		return nil, err
	}

	if s.Dots == 0 {
		if stdlib.IsStdlib(topLevel(target), c.version) {
			return []Record{{
				Owner: m.ID, Stmt: s, Target: target,
				Origin: OriginStdlib, Kind: kindFor(s), Bindings: bindingsFor(s),
			}}, nil
		}
		if resolvedMod, ok := c.graph.ModuleByName(target); ok {
			return c.splitFirstPartyFrom(m, s, resolvedMod)
		}
		return []Record{{
			Owner: m.ID, Stmt: s, Target: target,
			Origin: OriginThirdParty, Kind: kindFor(s), Bindings: bindingsFor(s),
		}}, nil
	}

	// s.Dots > 0: relative import, always first-party by construction.
	resolvedMod, ok := c.graph.ModuleByName(target)
	if !ok {
		return nil, reportUnresolvedRelative(m, s, target)
	}
	return c.splitFirstPartyFrom(m, s, resolvedMod)
}

// splitFirstPartyFrom applies the governing rule: a `from a.b import c`
// name is a ModuleImport iff `a.b.c` is itself a discovered module (a
// submodule of package a.b); otherwise it's a value pulled from a.b's
// namespace. Each submodule name gets its own Record, resolved straight
// at that submodule; every remaining value (or wildcard) name shares one
// Record resolved at a.b itself.
//
// A name that is BOTH a discovered submodule and a top-level binding
// a.b's own body assigns directly (not merely the submodule import
// itself) is genuinely ambiguous: at runtime which one `from a.b import c`
// yields depends on whether a.b's own `__init__.py` happened to trigger
// the submodule's auto-import before or after binding its own value,
// which this classifier can't know without executing a.b. That case is
// reported as IMP003 rather than silently picking one.
func (c *Classifier) splitFirstPartyFrom(m *modgraph.Module, s *pyast.ImportFrom, target *modgraph.Module) ([]Record, error) {
	c.graph.AddEdge(m.ID, target.ID)

	if s.IsWildcard() {
		return []Record{{
			Owner: m.ID, Stmt: s, Target: target.DottedName,
			Origin: OriginFirstParty, Kind: StarImport,
			Resolved: target.ID, HasResolved: true,
		}}, nil
	}

	var out []Record
	var valueBindings []Binding
	for _, a := range s.Names {
		local := a.AsName
		if local == "" {
			local = a.Name
		}
		candidate := target.DottedName + "." + a.Name
		if sub, ok := c.graph.ModuleByName(candidate); ok {
			if targetOwnBinding(target, a.Name) {
				return nil, reportModuleValueAmbiguity(m, target, a.Name)
			}
			c.graph.AddEdge(m.ID, sub.ID)
			out = append(out, Record{
				Owner: m.ID, Stmt: s, Target: sub.DottedName,
				Origin: OriginFirstParty, Kind: ModuleImport,
				Resolved: sub.ID, HasResolved: true,
				Bindings: []Binding{{LocalName: local, ImportedName: a.Name, DirectModule: true}},
			})
			continue
		}
		valueBindings = append(valueBindings, Binding{LocalName: local, ImportedName: a.Name})
	}
	if len(valueBindings) > 0 {
		out = append(out, Record{
			Owner: m.ID, Stmt: s, Target: target.DottedName,
			Origin: OriginFirstParty, Kind: ValueImport,
			Resolved: target.ID, HasResolved: true,
			Bindings: valueBindings,
		})
	}
	return out, nil
}

// targetOwnBinding reports whether target's own body binds name at top
// level through a non-import statement — a plain assignment, function, or
// class definition that collides with one of target's discovered
// submodules.
func targetOwnBinding(target *modgraph.Module, name string) bool {
	for _, item := range target.Items {
		if item.IsImport {
			continue
		}
		for _, defined := range item.Defines {
			if defined == name {
				return true
			}
		}
	}
	return false
}

func kindFor(s *pyast.ImportFrom) Kind {
	if s.IsWildcard() {
		return StarImport
	}
	return ValueImport
}

func bindingsFor(s *pyast.ImportFrom) []Binding {
	if s.IsWildcard() {
		return nil
	}
	var out []Binding
	for _, a := range s.Names {
		local := a.AsName
		if local == "" {
			local = a.Name
		}
		out = append(out, Binding{LocalName: local, ImportedName: a.Name})
	}
	return out
}

// resolveRelative turns an ImportFrom's Dots+Module pair into an absolute
// dotted name, anchored at the owning module's package.
func resolveRelative(g *modgraph.Graph, m *modgraph.Module, s *pyast.ImportFrom) (string, error) {
	if s.Dots == 0 {
		return s.Module, nil
	}
	anchor := m.ID
	// One dot means "this package"; each additional dot climbs one more
	// parent, matching CPython's level semantics for `from . import x`.
	climb := s.Dots - 1
	if m.Kind != modgraph.KindPackage {
		// A non-package module's "own package" is its parent.
		if !m.HasParent {
			return "", reportUnresolvedRelative(m, s, s.Module)
		}
		anchor = m.Parent
	}
	for i := 0; i < climb; i++ {
		mod := g.ModuleByID(anchor)
		if !mod.HasParent {
			return "", reportUnresolvedRelative(m, s, s.Module)
		}
		anchor = mod.Parent
	}
	base := g.ModuleByID(anchor).DottedName
	if s.Module == "" {
		return base, nil
	}
	return base + "." + s.Module, nil
}

func reportModuleValueAmbiguity(m *modgraph.Module, target *modgraph.Module, name string) error {
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.IMP003,
		Phase:   "imports",
		Message: fmt.Sprintf("%q imports %q from %q, which is both a submodule and a top-level binding of %q — cannot determine statically which one wins", m.DottedName, name, target.DottedName, target.DottedName),
		Data: map[string]any{
			"offending_ref": name,
		},
	})
}

func reportUnresolvedRelative(m *modgraph.Module, s *pyast.ImportFrom, target string) error {
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.IMP001,
		Phase:   "imports",
		Message: fmt.Sprintf("relative import in %q escapes the first-party source root (resolved target %q)", m.DottedName, target),
		Data: map[string]any{
			"offending_ref": fmt.Sprintf("%s%s", strings.Repeat(".", s.Dots), s.Module),
		},
	})
}

func topLevel(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}

// ThirdPartyTopLevels returns the sorted, deduplicated set of top-level
// names classified OriginThirdParty across all records — the input to
// internal/manifest's requirements.txt emission.
func ThirdPartyTopLevels(records []Record) []string {
	seen := map[string]bool{}
	for _, r := range records {
		if r.Origin != OriginThirdParty {
			continue
		}
		seen[topLevel(r.Target)] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
