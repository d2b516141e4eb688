// Package treeshake implements the Tree Shaker (C6): a mark-and-sweep
// reachability pass over the item graph that decides, for every
// non-entry module, which top-level items must survive in the bundle.
//
// Seeds are the entry module's own items (it runs unconditionally, start
// to finish) and every item anywhere flagged side-effecting by C4 (it
// must run regardless of whether its bound names are ever read). From
// there, reachability spreads along two kinds of edge: same-module name
// references resolved through the Semantic Index (C3), and cross-module
// references resolved through the Import Classifier's records (C2) —
// following a `from a.b import c` to c's defining item in a.b; for a
// `from a.b import *`, following a name read but bound nowhere else to
// its defining item in a.b when a.b exports it (C3's Exports); or, for a
// whole-module import, conservatively keeping every item of the target
// module, since a module-level alias can be used through arbitrary
// attribute access the shaker cannot enumerate statically.
package treeshake

import (
	"slices"

	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/semindex"
)

// Result is the reachable-item verdict for one bundling run.
type Result struct {
	reachable map[modgraph.ModuleID]map[modgraph.ItemID]bool
}

// IsReachable reports whether an item survives tree shaking.
func (r *Result) IsReachable(m modgraph.ModuleID, item modgraph.ItemID) bool {
	return r.reachable[m][item]
}

// ExcludeItems removes items from a module's reachable set after the
// mark-and-sweep pass has already run. Used by ambient config options
// (BundleConfig.StripTypeOnlyImports) that drop an item C6 legitimately
// kept reachable, without re-running the pass or changing its algorithm.
func (r *Result) ExcludeItems(m modgraph.ModuleID, items map[modgraph.ItemID]bool) {
	for id := range items {
		delete(r.reachable[m], id)
	}
}

// KeptItems returns the surviving items of a module, in original
// statement order.
func (r *Result) KeptItems(mod *modgraph.Module) []*modgraph.Item {
	var out []*modgraph.Item
	for _, item := range mod.Items {
		if r.reachable[mod.ID][item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// NewResultForTest builds a Result directly from a reachability table,
// for tests in other packages that need a canned shake verdict without
// running the full mark-and-sweep pass.
func NewResultForTest(reachable map[modgraph.ModuleID]map[modgraph.ItemID]bool) *Result {
	return &Result{reachable: reachable}
}

type boundImport struct {
	record  imports.Record
	binding imports.Binding
}

// Shake runs C6. indexes must contain a built semindex.Index for every
// module in g; records is C2's full classification output.
func Shake(g *modgraph.Graph, indexes map[modgraph.ModuleID]*semindex.Index, records []imports.Record, entry modgraph.ModuleID) *Result {
	r := &Result{reachable: map[modgraph.ModuleID]map[modgraph.ItemID]bool{}}
	for _, m := range g.Modules() {
		r.reachable[m.ID] = map[modgraph.ItemID]bool{}
	}

	bindingIndex := map[modgraph.ModuleID]map[string]boundImport{}
	starTargets := map[modgraph.ModuleID][]modgraph.ModuleID{}
	for _, rec := range records {
		if bindingIndex[rec.Owner] == nil {
			bindingIndex[rec.Owner] = map[string]boundImport{}
		}
		for _, b := range rec.Bindings {
			bindingIndex[rec.Owner][b.LocalName] = boundImport{record: rec, binding: b}
		}
		if rec.Kind == imports.StarImport && rec.Origin == imports.OriginFirstParty && rec.HasResolved {
			starTargets[rec.Owner] = append(starTargets[rec.Owner], rec.Resolved)
		}
	}

	type pending struct {
		mod  modgraph.ModuleID
		item modgraph.ItemID
	}
	var queue []pending

	markItem := func(m modgraph.ModuleID, id modgraph.ItemID) {
		if r.reachable[m][id] {
			return
		}
		r.reachable[m][id] = true
		queue = append(queue, pending{m, id})
	}
	markModule := func(m modgraph.ModuleID) {
		for _, item := range g.ModuleByID(m).Items {
			markItem(m, item.ID)
		}
	}

	markModule(entry)
	for _, m := range g.Modules() {
		for _, item := range m.Items {
			if item.IsSideEffect {
				markItem(m.ID, item.ID)
			}
		}
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		m := g.ModuleByID(p.mod)
		item := itemByID(m, p.item)
		if item == nil {
			continue
		}
		idx := indexes[p.mod]
		for _, name := range item.Reads {
			if idx != nil {
				if b, ok := idx.Bindings[name]; ok {
					markItem(p.mod, b.Item.ID)
				}
			}
			bi, ok := bindingIndex[p.mod][name]
			if !ok {
				// A name with no local or explicit import binding may come
				// from a star import: follow it into each target's exports.
				for _, target := range starTargets[p.mod] {
					if ti := indexes[target]; ti != nil && ti.Bindings[name] != nil && slices.Contains(ti.Exports, name) && (idx == nil || idx.Bindings[name] == nil) {
						markItem(target, ti.Bindings[name].Item.ID)
					}
				}
				continue
			}
			if bi.record.Origin != imports.OriginFirstParty || !bi.record.HasResolved {
				continue
			}
			target := bi.record.Resolved
			switch bi.record.Kind {
			case imports.ModuleImport, imports.StarImport:
				markModule(target)
			case imports.ValueImport:
				targetIdx := indexes[target]
				if targetIdx != nil {
					if b, ok := targetIdx.Bindings[bi.binding.ImportedName]; ok {
						markItem(target, b.Item.ID)
						continue
					}
				}
				// The imported name didn't resolve to a known binding
				// (e.g. re-exported from yet another module) — fall back
				// to keeping the whole target rather than silently
				// dropping something it might need.
				markModule(target)
			}
		}
	}

	return r
}

func itemByID(m *modgraph.Module, id modgraph.ItemID) *modgraph.Item {
	for _, item := range m.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}
