// Package rename implements the Symbol Renamer (C8): once every Inlinable
// module's top-level statements are destined to share one flat bundle
// scope, any name bound by more than one inlined module must be made
// unique. Wrapper modules need no renaming at all — their top-level names
// live inside their own init function's local scope, which Python's
// normal function scoping already isolates from every other module.
//
// The algorithm is deterministic: a name with exactly one inlined owner
// keeps its bare spelling. A name with multiple owners keeps its bare
// spelling in the owner earliest in (topo order, ModuleID) order, and
// every other owner gets `name__<sanitized_module>`, where
// sanitized_module is the owning module's dotted name with `.` replaced
// by `_`. If that spelling is already taken (e.g. two owners `a.b` and
// `a_b` sanitize to the same suffix), a numeric tiebreak (`__2`, `__3`,
// ...) is appended, owners taking their turn in that same order, until
// the bounded search (REN001) finds a free slot.
package rename

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/schema"
	"github.com/pybundle/pybundle/internal/semindex"
)

// maxSuffixSearch bounds the numeric-tiebreak search; exhausting it means
// a pathological number of same-sanitized-suffix collisions and is
// reported as REN001 rather than looping forever.
const maxSuffixSearch = 1000

// Map is the renamer's output: per inlined module, original name to final
// bundle-scope name. A module absent from Map needed no renaming at all.
type Map map[modgraph.ModuleID]map[string]string

// Rename runs C8 over every module C7 classified Inlinable. g supplies the
// topological order used to pick each colliding name's winner: per spec.md
// §4.8, the binding from the module earliest in topo order (ties by
// ModuleID) keeps its bare spelling; every other owner is renamed.
func Rename(g *modgraph.Graph, indexes map[modgraph.ModuleID]*semindex.Index, decisions []classify.Decision) (Map, error) {
	inlinable := map[modgraph.ModuleID]bool{}
	for _, d := range decisions {
		if d.Role == classify.Inlinable {
			inlinable[d.Module] = true
		}
	}

	rank := map[modgraph.ModuleID]int{}
	for i, id := range g.TopoOrder() {
		rank[id] = i
	}

	// owners[name] lists every inlined module that binds `name` at top
	// level, ordered by (topo rank, ModuleID) ascending so index 0 is
	// always the deterministic winner.
	owners := map[string][]modgraph.ModuleID{}
	for mod := range inlinable {
		idx := indexes[mod]
		if idx == nil {
			continue
		}
		for _, name := range idx.Order {
			owners[name] = append(owners[name], mod)
		}
	}
	for _, list := range owners {
		sort.Slice(list, func(i, j int) bool {
			if rank[list[i]] != rank[list[j]] {
				return rank[list[i]] < rank[list[j]]
			}
			return list[i] < list[j]
		})
	}

	var names []string
	for name := range owners {
		names = append(names, name)
	}
	sort.Strings(names)

	result := Map{}
	taken := map[string]bool{}
	// Reserve every winner's bare name first, so a later collision-suffixed
	// name never accidentally lands on a bare name some other module
	// legitimately kept.
	for _, name := range names {
		taken[name] = true
	}

	for _, name := range names {
		list := owners[name]
		if len(list) < 2 {
			continue // sole owner keeps the bare name, already reserved above
		}
		for _, mod := range list[1:] {
			final, err := assign(taken, name, mod, indexes)
			if err != nil {
				return nil, err
			}
			if result[mod] == nil {
				result[mod] = map[string]string{}
			}
			result[mod][name] = final
		}
	}
	return result, nil
}

func assign(taken map[string]bool, name string, mod modgraph.ModuleID, indexes map[modgraph.ModuleID]*semindex.Index) (string, error) {
	dotted := indexes[mod].Module.DottedName
	base := name + "__" + sanitize(dotted)
	if !taken[base] {
		taken[base] = true
		return base, nil
	}
	for i := 2; i < maxSuffixSearch; i++ {
		candidate := fmt.Sprintf("%s__%d", base, i)
		if !taken[candidate] {
			taken[candidate] = true
			return candidate, nil
		}
	}
	return "", errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.REN001,
		Phase:   "rename",
		Message: fmt.Sprintf("could not find a unique bundle-scope name for %q in %q after %d attempts", name, dotted, maxSuffixSearch),
	})
}

func sanitize(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "_")
}

// Apply looks up the final bundle-scope name for (mod, name), returning
// the bare name unchanged if C8 found no collision for it.
func (m Map) Apply(mod modgraph.ModuleID, name string) string {
	if renames, ok := m[mod]; ok {
		if final, ok := renames[name]; ok {
			return final
		}
	}
	return name
}
