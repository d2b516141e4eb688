// Package bundler is the orchestrator: it wires every component package,
// C1 through C13, into the single control-flow spec.md §2 describes —
// C1→C2→C3→C4→C5→C6→C7→C8 run in sequence to build the shared artifacts
// every later stage reads, then C9–C13 assemble the final bundle from
// them. Bundle is the library's only public entry point, matching
// spec.md §6's `bundle(entry_path, module_sources, config) -> BundleResult`
// signature (Go idiom: `(*BundleResult, error)` instead of a tagged
// union).
package bundler

import (
	"fmt"
	"sort"

	"github.com/pybundle/pybundle/internal/assemble"
	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/config"
	"github.com/pybundle/pybundle/internal/cycles"
	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/importxform"
	"github.com/pybundle/pybundle/internal/inline"
	"github.com/pybundle/pybundle/internal/manifest"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/namespace"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/pyparse"
	"github.com/pybundle/pybundle/internal/pyprint"
	"github.com/pybundle/pybundle/internal/rename"
	"github.com/pybundle/pybundle/internal/schema"
	"github.com/pybundle/pybundle/internal/semindex"
	"github.com/pybundle/pybundle/internal/sideeffect"
	"github.com/pybundle/pybundle/internal/treeshake"
	"github.com/pybundle/pybundle/internal/wrapper"
)

// ModuleSource is one first-party module's raw input, keyed by its
// absolute dotted name in the map Bundle accepts — spec.md §6's
// `map<absolute_dotted_name, {path, source_text}>`.
type ModuleSource struct {
	Path      string
	Text      string
	IsPackage bool // true if this source is a package's __init__.py
}

// BundleResult is the core's output: the finished bundle plus whatever a
// caller might want alongside it (the emitted dependency manifest). No
// stage reports non-fatal warnings, so Bundle leaves Warnings empty.
type BundleResult struct {
	Bundle   *assemble.Bundle
	Manifest manifest.Manifest
	Warnings []string
}

// Bundle runs the full pipeline over entryDottedName and moduleSources,
// returning the finished single-file bundle or the first fatal error any
// stage reported. moduleSources must contain an entry keyed exactly
// entryDottedName; every other key is a first-party module reachable (or
// not — tree-shaking decides) from it.
func Bundle(entryDottedName string, moduleSources map[string]ModuleSource, cfg config.BundleConfig) (*BundleResult, error) {
	if _, ok := moduleSources[entryDottedName]; !ok {
		return nil, fmt.Errorf("bundler: entry module %q not present in module_sources", entryDottedName)
	}

	names := make([]string, 0, len(moduleSources))
	for name := range moduleSources {
		names = append(names, name)
	}
	sort.Strings(names)

	g := modgraph.New()
	for _, name := range names {
		src := moduleSources[name]
		kind := modgraph.KindRegular
		switch {
		case name == entryDottedName:
			kind = modgraph.KindEntry
		case src.IsPackage:
			kind = modgraph.KindPackage
		}
		lex := pyparse.New(src.Text, src.Path)
		p := pyparse.NewParser(lex, src.Path)
		mod := p.ParseModule(name)
		if errs := p.Errors(); len(errs) > 0 {
			return nil, wrapParseError(name, errs[0])
		}
		m := g.AddModule(name, src.Path, kind, mod)
		modgraph.BuildItems(m)
		sideeffect.Mark(m)
	}

	entry, ok := g.ModuleByName(entryDottedName)
	if !ok {
		return nil, fmt.Errorf("bundler: internal: entry module %q missing after discovery", entryDottedName)
	}

	classifier := imports.New(g, cfg.TargetVersion)
	records, classifyErrs := classifier.ClassifyAll()
	if len(classifyErrs) > 0 {
		return nil, classifyErrs[0]
	}

	indexes := map[modgraph.ModuleID]*semindex.Index{}
	for _, m := range g.Modules() {
		idx, err := semindex.Build(m)
		if err != nil {
			return nil, err
		}
		indexes[m.ID] = idx
	}

	cycleInfo, err := cycles.Analyze(g, records)
	if err != nil {
		return nil, err
	}

	var shaken *treeshake.Result
	if cfg.KeepDeadCode {
		shaken = keepEverything(g)
	} else {
		shaken = treeshake.Shake(g, indexes, records, entry.ID)
	}

	if cfg.StripTypeOnlyImports {
		for _, m := range g.Modules() {
			annotationOnly := semindex.AnnotationOnlyNames(m.AST.Body)
			drop := map[modgraph.ItemID]bool{}
			for _, item := range m.Items {
				if !item.IsImport || len(item.Defines) == 0 {
					continue
				}
				allAnnotationOnly := true
				for _, name := range item.Defines {
					if !annotationOnly[name] {
						allAnnotationOnly = false
						break
					}
				}
				if allAnnotationOnly {
					drop[item.ID] = true
				}
			}
			shaken.ExcludeItems(m.ID, drop)
		}
	}

	decisions := classify.Classify(g, records, cycleInfo, entry.ID)

	renames, err := rename.Rename(g, indexes, decisions)
	if err != nil {
		return nil, err
	}

	xform := importxform.New(decisions, renames, indexes)

	dottedNames := map[classify.Decision]string{}
	decisionByModule := map[modgraph.ModuleID]classify.Decision{}
	for _, d := range decisions {
		dottedNames[d] = g.ModuleByID(d.Module).DottedName
		decisionByModule[d.Module] = d
	}
	scaffold := namespace.Build(decisions, dottedNames)

	wrapperInit := map[modgraph.ModuleID]*pyast.FunctionDef{}
	inlinedBody := map[modgraph.ModuleID][]pyast.Stmt{}
	for _, d := range decisions {
		mod := g.ModuleByID(d.Module)
		switch d.Role {
		case classify.Wrapper:
			keep := func(id modgraph.ItemID) bool { return shaken.IsReachable(mod.ID, id) }
			body := xform.Transform(mod, records, keep)
			wrapperInit[mod.ID] = wrapper.Emit(d, body)
		case classify.Inlinable:
			inlinedBody[mod.ID] = inline.Inline(mod, xform, records, shaken, renames)
		}
	}

	entryKeep := func(id modgraph.ItemID) bool { return shaken.IsReachable(entry.ID, id) }
	entryBody := xform.Transform(entry, records, entryKeep)

	itemOf := map[pyast.Stmt]modgraph.ItemID{}
	for _, m := range g.Modules() {
		for _, item := range m.Items {
			itemOf[item.Stmt] = item.ID
		}
	}
	hoistedFuture, hoistedStdlib := assemble.CollectHoistedImports(records, itemOf, shaken.IsReachable)

	bundle, err := assemble.Assemble(assemble.Input{
		Graph:         g,
		Entry:         entry.ID,
		TopoOrder:     g.TopoOrder(),
		Decisions:     decisionByModule,
		HoistedFuture: hoistedFuture,
		HoistedStdlib: hoistedStdlib,
		Scaffold:      scaffold,
		WrapperInit:   wrapperInit,
		InlinedBody:   inlinedBody,
		EntryBody:     entryBody,
	})
	if err != nil {
		return nil, err
	}

	if !cfg.EmitDocstrings {
		bundle.Stmts = pyast.StripDocstrings(bundle.Stmts)
		bundle.Source = pyprint.Print(bundle.Stmts)
	}

	return &BundleResult{
		Bundle:   bundle,
		Manifest: manifest.Build(entryDottedName, records),
	}, nil
}

// keepEverything builds a treeshake.Result that marks every item of every
// module reachable, the verdict cfg.KeepDeadCode asks for instead of
// running C6's mark-and-sweep.
func keepEverything(g *modgraph.Graph) *treeshake.Result {
	reachable := map[modgraph.ModuleID]map[modgraph.ItemID]bool{}
	for _, m := range g.Modules() {
		items := map[modgraph.ItemID]bool{}
		for _, item := range m.Items {
			items[item.ID] = true
		}
		reachable[m.ID] = items
	}
	return treeshake.NewResultForTest(reachable)
}

func wrapParseError(dottedName string, err error) error {
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.PAR001,
		Phase:   "parser",
		Message: fmt.Sprintf("%s: %s", dottedName, err.Error()),
	})
}
