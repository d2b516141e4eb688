// Package modgraph holds the module dependency graph (C1): the set of
// discovered modules, their import edges, and per-module items, plus SCC
// and topological-order queries the rest of the pipeline depends on.
package modgraph

import (
	"sort"

	"github.com/pybundle/pybundle/internal/pyast"
)

// ModuleID is a dense, monotonically assigned identifier for a discovered
// module. Assignment order is discovery order; once assigned it never
// changes for the lifetime of a bundling run.
type ModuleID int

// ModuleKind distinguishes the three module roles the spec names.
type ModuleKind int

const (
	KindRegular ModuleKind = iota
	KindPackage            // has __init__.py
	KindEntry
)

// ItemID is a statement-level identifier, unique within its module.
type ItemID int

// Item is one top-level statement of a module, carrying the read/write/
// definition facts later stages (C4, C6, C8) need without re-walking the
// AST every time.
type Item struct {
	ID           ItemID
	Stmt         pyast.Stmt
	Defines      []string // names this item binds at module scope
	Reads        []string // free names this item references
	IsSideEffect bool     // set by internal/sideeffect
	IsImport     bool
}

// Module is one discovered first-party module.
type Module struct {
	ID         ModuleID
	DottedName string
	Path       string
	Kind       ModuleKind
	AST        *pyast.Module
	Items      []*Item
	Parent     ModuleID // meaningful only when HasParent is true
	HasParent  bool
}

// Graph holds every discovered module plus the inter-module import edges
// derived from C2's classification.
type Graph struct {
	modules   []*Module
	byName    map[string]ModuleID
	edges     map[ModuleID]map[ModuleID]bool // A -> B iff A imports from B
	nextID    ModuleID
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		byName: map[string]ModuleID{},
		edges:  map[ModuleID]map[ModuleID]bool{},
	}
}

// AddModule registers a module and assigns it the next ModuleID in
// discovery order. mod.ID and mod.HasParent/mod.Parent are set by this
// call based on its dotted name; the caller supplies everything else.
func (g *Graph) AddModule(dottedName, path string, kind ModuleKind, ast *pyast.Module) *Module {
	id := g.nextID
	g.nextID++
	m := &Module{
		ID:         id,
		DottedName: dottedName,
		Path:       path,
		Kind:       kind,
		AST:        ast,
	}
	if idx := lastDot(dottedName); idx >= 0 {
		parentName := dottedName[:idx]
		if parentID, ok := g.byName[parentName]; ok {
			m.Parent = parentID
			m.HasParent = true
		}
	}
	g.modules = append(g.modules, m)
	g.byName[dottedName] = id
	g.edges[id] = map[ModuleID]bool{}
	return m
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// ModuleByName looks up a module by its absolute dotted name.
func (g *Graph) ModuleByName(name string) (*Module, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.modules[id], true
}

// ModuleByID looks up a module by its ModuleID.
func (g *Graph) ModuleByID(id ModuleID) *Module { return g.modules[id] }

// Modules returns every module in discovery (ModuleID) order.
func (g *Graph) Modules() []*Module { return g.modules }

// AddEdge records that module `from` imports something from module `to`.
func (g *Graph) AddEdge(from, to ModuleID) {
	g.edges[from][to] = true
}

// Successors returns the modules `id` imports from, ModuleID-ascending.
func (g *Graph) Successors(id ModuleID) []ModuleID {
	var out []ModuleID
	for succ := range g.edges[id] {
		out = append(out, succ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Predecessors returns the modules that import from `id`, ModuleID-ascending.
func (g *Graph) Predecessors(id ModuleID) []ModuleID {
	var out []ModuleID
	for from, succs := range g.edges {
		if succs[id] {
			out = append(out, from)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ItemsOf returns the items belonging to a module.
func (g *Graph) ItemsOf(id ModuleID) []*Item { return g.modules[id].Items }

// BuildItems splits a module's top-level statement list into Items,
// populating Defines/Reads/IsImport for each. It must run once per module
// after parsing and before C2-C8 consult m.Items.
func BuildItems(m *Module) {
	m.Items = m.Items[:0]
	for i, stmt := range m.AST.Body {
		item := &Item{
			ID:       ItemID(i),
			Stmt:     stmt,
			Defines:  TopLevelDefines(stmt),
			Reads:    pyast.FreeNames([]pyast.Stmt{stmt}),
			IsImport: isImportStmt(stmt),
		}
		m.Items = append(m.Items, item)
	}
}

func isImportStmt(s pyast.Stmt) bool {
	switch s.(type) {
	case *pyast.Import, *pyast.ImportFrom:
		return true
	default:
		return false
	}
}

// TopLevelDefines returns the names one top-level statement binds into its
// module's namespace. For compound statements (if/for/while/try) this
// walks nested simple statements conservatively, since Python has no block
// scoping — a name assigned inside an `if` at module level is a module
// attribute.
func TopLevelDefines(s pyast.Stmt) []string {
	var names []string
	switch st := s.(type) {
	case *pyast.FunctionDef:
		names = append(names, st.Name)
	case *pyast.ClassDef:
		names = append(names, st.Name)
	case *pyast.Import:
		for _, a := range st.Names {
			names = append(names, importLocalName(a))
		}
	case *pyast.ImportFrom:
		if !st.IsWildcard() {
			for _, a := range st.Names {
				names = append(names, importLocalName(a))
			}
		}
	case *pyast.Assign:
		for _, t := range st.Targets {
			names = append(names, targetNames(t)...)
		}
	case *pyast.AnnAssign:
		names = append(names, targetNames(st.Target)...)
	case *pyast.AugAssign:
		names = append(names, targetNames(st.Target)...)
	case *pyast.If:
		names = append(names, flattenDefines(st.Body)...)
		names = append(names, flattenDefines(st.Orelse)...)
	case *pyast.For:
		names = append(names, targetNames(st.Target)...)
		names = append(names, flattenDefines(st.Body)...)
		names = append(names, flattenDefines(st.Orelse)...)
	case *pyast.While:
		names = append(names, flattenDefines(st.Body)...)
		names = append(names, flattenDefines(st.Orelse)...)
	case *pyast.With:
		for _, item := range st.Items {
			if item.OptionalVar != nil {
				names = append(names, targetNames(item.OptionalVar)...)
			}
		}
		names = append(names, flattenDefines(st.Body)...)
	case *pyast.Try:
		names = append(names, flattenDefines(st.Body)...)
		for _, h := range st.Handlers {
			if h.Name != "" {
				names = append(names, h.Name)
			}
			names = append(names, flattenDefines(h.Body)...)
		}
		names = append(names, flattenDefines(st.Orelse)...)
		names = append(names, flattenDefines(st.Finally)...)
	}
	return names
}

func flattenDefines(body []pyast.Stmt) []string {
	var out []string
	for _, s := range body {
		out = append(out, TopLevelDefines(s)...)
	}
	return out
}

func importLocalName(a pyast.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	if idx := lastDot(a.Name); idx >= 0 {
		// bare `import a.b.c` binds only the top-level name `a`.
		return a.Name[:firstDot(a.Name)]
	}
	return a.Name
}

func firstDot(s string) int {
	for i, c := range s {
		if c == '.' {
			return i
		}
	}
	return len(s)
}

func targetNames(e pyast.Expr) []string {
	switch t := e.(type) {
	case *pyast.Name:
		return []string{t.Id}
	case *pyast.Tuple:
		var out []string
		for _, el := range t.Elts {
			out = append(out, targetNames(el)...)
		}
		return out
	case *pyast.List:
		var out []string
		for _, el := range t.Elts {
			out = append(out, targetNames(el)...)
		}
		return out
	case *pyast.Starred:
		return targetNames(t.Value)
	default:
		// Attribute/Subscript targets (e.g. `obj.attr = x`) bind no new
		// module-level name.
		return nil
	}
}

// SCC is a strongly connected component of the module graph: a set of
// module IDs that import from one another, directly or transitively. A
// single module with no self-loop is its own trivial SCC.
type SCC struct {
	Members []ModuleID
}

// SCCs computes the module graph's strongly connected components using
// Tarjan's algorithm, the same algorithm the teacher's call-graph analysis
// uses for recursive binding groups.
func (g *Graph) SCCs() []SCC {
	t := &tarjan{
		g:       g,
		index:   map[ModuleID]int{},
		lowlink: map[ModuleID]int{},
		onStack: map[ModuleID]bool{},
	}
	for _, m := range g.modules {
		if _, seen := t.index[m.ID]; !seen {
			t.strongconnect(m.ID)
		}
	}
	return t.sccs
}

type tarjan struct {
	g       *Graph
	index   map[ModuleID]int
	lowlink map[ModuleID]int
	onStack map[ModuleID]bool
	stack   []ModuleID
	counter int
	sccs    []SCC
}

func (t *tarjan) strongconnect(v ModuleID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.Successors(v) {
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var members []ModuleID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		t.sccs = append(t.sccs, SCC{Members: members})
	}
}

// TopoOrder returns module IDs in dependency order (every module a module
// imports is listed before it), computed on the SCC condensation via a
// Kahn-style sort, with ties broken by ModuleID ascending for
// determinism. Every module in an SCC larger than one is placed
// contiguously, in ModuleID order within the SCC.
func (g *Graph) TopoOrder() []ModuleID {
	sccs := g.SCCs()
	sccOf := map[ModuleID]int{}
	for i, scc := range sccs {
		for _, m := range scc.Members {
			sccOf[m] = i
		}
	}

	// Condensation edges: scc(from) -> scc(to) for each module edge,
	// excluding self-edges.
	condSucc := make([]map[int]bool, len(sccs))
	indegree := make([]int, len(sccs))
	for i := range condSucc {
		condSucc[i] = map[int]bool{}
	}
	for _, m := range g.modules {
		for _, succ := range g.Successors(m.ID) {
			a, b := sccOf[m.ID], sccOf[succ]
			if a == b {
				continue
			}
			if !condSucc[a][b] {
				condSucc[a][b] = true
				indegree[b]++
			}
		}
	}

	// Dependencies must be emitted before dependents: Kahn's algorithm on
	// the transpose, using outdegree as the ready condition, so SCCs that
	// import nothing are emitted first and each SCC becomes ready once
	// everything it imports has been emitted.
	outdegree := make([]int, len(sccs))
	condPred := make([]map[int]bool, len(sccs))
	for i := range condPred {
		condPred[i] = map[int]bool{}
	}
	for a, succs := range condSucc {
		for b := range succs {
			condPred[b][a] = true
			outdegree[a]++
		}
	}

	var ready []int
	for i := range sccs {
		if outdegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)

	var order []int
	visited := make([]bool, len(sccs))
	for len(ready) > 0 {
		sort.Ints(ready)
		n := ready[0]
		ready = ready[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)
		for pred := range condPred[n] {
			outdegree[pred]--
			if outdegree[pred] == 0 {
				ready = append(ready, pred)
			}
		}
	}
	// Any remaining unvisited SCCs are part of a cycle in the
	// condensation, which cannot happen (condensation is acyclic by
	// construction) — defensive fallback appends them in index order.
	for i := range sccs {
		if !visited[i] {
			order = append(order, i)
		}
	}

	var result []ModuleID
	for _, sccIdx := range order {
		result = append(result, sccs[sccIdx].Members...)
	}
	return result
}
