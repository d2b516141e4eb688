// Package classify implements the Module Classifier (C7): for every
// non-entry first-party module it decides whether the module can be
// Inlined (its top-level statements flattened directly into the bundle,
// renamed to avoid collisions) or must be emitted as a Wrapper (a guarded
// init function plus a synthesized namespace object standing in for the
// module at runtime).
//
// A module is a Wrapper candidate when any of four independent reasons
// applies:
//
//  1. Some other module accesses it through a live namespace object —
//     `import a.b` followed by `a.b.NAME` — rather than pulling specific
//     names out of it with `from a.b import NAME`. Inlining discards the
//     module boundary entirely, so there is no object left for `a.b` to
//     evaluate to; a wrapper's synthesized namespace (C12) is what
//     survives to be that object.
//  2. It participates in an SCC classified ClassLevel or ImportTime by
//     C5. A FunctionLevel cycle is harmless to inline (every reference
//     resolves inside a function body, by which time both sides have
//     finished running), but a class-body or plain top-level reference
//     executes at import time, and only a wrapper's on-demand, guarded
//     initializer can provide the "whichever side needs to run first,
//     runs first — and no side is entered twice" ordering a cycle of
//     this severity requires.
//  3. Any of its top-level items was marked side-effecting by C4.
//  4. A segment of its dotted name is not a valid Python identifier.
//
// Everything else is Inlinable.
package classify

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pybundle/pybundle/internal/cycles"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
)

// Role is C7's verdict for one module.
type Role int

const (
	Inlinable Role = iota
	Wrapper
)

func (r Role) String() string {
	if r == Wrapper {
		return "wrapper"
	}
	return "inlinable"
}

// Decision is C7's output for one module.
type Decision struct {
	Module        modgraph.ModuleID
	Role          Role
	Reason        string
	InitFuncName  string // valid only when Role == Wrapper
	NamespaceName string // the identifier the module's namespace object is bound to
}

// Classify runs C7 over every non-entry module in the graph.
func Classify(g *modgraph.Graph, records []imports.Record, cycleInfo []cycles.Classification, entry modgraph.ModuleID) []Decision {
	needsNamespace := map[modgraph.ModuleID]bool{}
	for _, rec := range records {
		if rec.Origin != imports.OriginFirstParty || !rec.HasResolved {
			continue
		}
		if rec.Kind == imports.ModuleImport || rec.Kind == imports.StarImport {
			needsNamespace[rec.Resolved] = true
		}
	}

	cycleLevel := map[modgraph.ModuleID]cycles.Level{}
	for _, c := range cycleInfo {
		for _, id := range c.SCC.Members {
			if c.Level > cycleLevel[id] {
				cycleLevel[id] = c.Level
			}
		}
	}

	names := newNamer()
	var decisions []Decision
	for _, m := range g.Modules() {
		if m.ID == entry {
			continue
		}
		role, reason := Inlinable, ""
		if needsNamespace[m.ID] {
			role, reason = Wrapper, "imported as a module namespace by another module"
		}
		if lvl := cycleLevel[m.ID]; lvl == cycles.ClassLevel || lvl == cycles.ImportTime {
			role, reason = Wrapper, fmt.Sprintf("participates in a %s circular dependency", lvl)
		}
		if hasSideEffect(m) {
			role, reason = Wrapper, "has observable top-level side effects"
		}
		if !hasValidIdentifierSegments(m.DottedName) {
			role, reason = Wrapper, "dotted name contains a segment that is not a valid Python identifier"
		}

		d := Decision{Module: m.ID, Role: role, Reason: reason}
		d.NamespaceName = names.unique(sanitize(m.DottedName))
		if role == Wrapper {
			d.InitFuncName = "__init_" + d.NamespaceName
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// sanitize turns a dotted module name into a valid Python identifier by
// replacing every `.` and every other character that cannot appear in an
// identifier with `_`, and prefixing `_` when the result starts with a digit.
func sanitize(dotted string) string {
	out := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, dotted)
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

// hasSideEffect reports whether any item of m was marked side-effecting by
// C4 (internal/sideeffect.Mark must have already run over m).
func hasSideEffect(m *modgraph.Module) bool {
	for _, item := range m.Items {
		if item.IsSideEffect && !item.IsImport {
			return true
		}
	}
	return false
}

// hasValidIdentifierSegments reports whether every dot-separated segment of
// a dotted module name is a valid Python identifier — spec.md §4.7(c).
func hasValidIdentifierSegments(dotted string) bool {
	for _, seg := range strings.Split(dotted, ".") {
		if !isValidIdentifier(seg) {
			return false
		}
	}
	return true
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isLetter {
				return false
			}
			continue
		}
		if !isLetter && !isDigit {
			return false
		}
	}
	return true
}

// namer hands out collision-free identifiers: distinct dotted names that
// sanitize to the same string (e.g. "a.b_c" and "a_b.c") get a short
// content hash suffix appended to every name after the first.
type namer struct {
	used map[string]bool
}

func newNamer() *namer { return &namer{used: map[string]bool{}} }

func (n *namer) unique(base string) string {
	if !n.used[base] {
		n.used[base] = true
		return base
	}
	h := fnv.New32a()
	h.Write([]byte(base))
	candidate := fmt.Sprintf("%s__%x", base, h.Sum32()&0xffff)
	for n.used[candidate] {
		h.Write([]byte{0})
		candidate = fmt.Sprintf("%s__%x", base, h.Sum32()&0xffff)
	}
	n.used[candidate] = true
	return candidate
}
